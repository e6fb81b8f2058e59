package repository

import (
	"context"
	"errors"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStatusConflict is returned by the guarded status writes when the row's
// status no longer matches the one the caller loaded — a concurrent
// approve/reject won the race.
var ErrStatusConflict = errors.New("entity status changed concurrently")

type SupplierRepository interface {
	Create(ctx context.Context, supplier *model.Supplier) error
	Update(ctx context.Context, supplier *model.Supplier) error
	// UpdateIfStatus persists supplier only while the stored row still has
	// expectedStatus; returns ErrStatusConflict otherwise.
	UpdateIfStatus(ctx context.Context, supplier *model.Supplier, expectedStatus string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	FindByEmail(ctx context.Context, email string) (*model.Supplier, error)
	FindByTaxID(ctx context.Context, taxID string) (*model.Supplier, error)
	FindByRegistrationNumber(ctx context.Context, regNo string) (*model.Supplier, error)
	List(ctx context.Context, status, search string, page, limit int) ([]model.Supplier, int64, error)
	ReplaceCategories(ctx context.Context, supplier *model.Supplier, categories []model.Category) error
	DeleteCategoryLinks(ctx context.Context, supplierID uuid.UUID) error
}

type supplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *model.Supplier) error {
	return GetDB(ctx, r.db).Create(supplier).Error
}

func (r *supplierRepository) Update(ctx context.Context, supplier *model.Supplier) error {
	return GetDB(ctx, r.db).Save(supplier).Error
}

func (r *supplierRepository) UpdateIfStatus(ctx context.Context, supplier *model.Supplier, expectedStatus string) error {
	res := GetDB(ctx, r.db).Model(&model.Supplier{}).
		Where("id = ? AND status = ?", supplier.ID, expectedStatus).
		Updates(map[string]interface{}{
			"status":         supplier.Status,
			"notes":          supplier.Notes,
			"approved_by_id": supplier.ApprovedByID,
			"approved_at":    supplier.ApprovedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *supplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Supplier{}).Error
}

func (r *supplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := GetDB(ctx, r.db).Preload("Categories").First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepository) FindByEmail(ctx context.Context, email string) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := GetDB(ctx, r.db).First(&supplier, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepository) FindByTaxID(ctx context.Context, taxID string) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := GetDB(ctx, r.db).First(&supplier, "tax_id = ?", taxID).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepository) FindByRegistrationNumber(ctx context.Context, regNo string) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := GetDB(ctx, r.db).First(&supplier, "registration_number = ?", regNo).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepository) List(ctx context.Context, status, search string, page, limit int) ([]model.Supplier, int64, error) {
	var suppliers []model.Supplier
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Supplier{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ? OR contact_person ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Model(&model.Supplier{}).Preload("Categories")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if search != "" {
		fetchQuery = fetchQuery.Where("name ILIKE ? OR email ILIKE ? OR contact_person ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&suppliers).Error; err != nil {
		return nil, 0, err
	}

	return suppliers, total, nil
}

func (r *supplierRepository) ReplaceCategories(ctx context.Context, supplier *model.Supplier, categories []model.Category) error {
	return GetDB(ctx, r.db).Model(supplier).Association("Categories").Replace(categories)
}

func (r *supplierRepository) DeleteCategoryLinks(ctx context.Context, supplierID uuid.UUID) error {
	return GetDB(ctx, r.db).Exec("DELETE FROM supplier_categories WHERE supplier_id = ?", supplierID).Error
}
