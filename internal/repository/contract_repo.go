package repository

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractRepository interface {
	Create(ctx context.Context, contract *model.Contract) error
	Update(ctx context.Context, contract *model.Contract) error
	UpdateIfStatus(ctx context.Context, contract *model.Contract, expectedStatus string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	List(ctx context.Context, status, supplierID string, page, limit int) ([]model.Contract, int64, error)
	NextContractNumber(ctx context.Context) (string, error)
}

type contractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) error {
	return GetDB(ctx, r.db).Create(contract).Error
}

func (r *contractRepository) Update(ctx context.Context, contract *model.Contract) error {
	return GetDB(ctx, r.db).Save(contract).Error
}

func (r *contractRepository) UpdateIfStatus(ctx context.Context, contract *model.Contract, expectedStatus string) error {
	res := GetDB(ctx, r.db).Model(&model.Contract{}).
		Where("id = ? AND status = ?", contract.ID, expectedStatus).
		Updates(map[string]interface{}{
			"status":         contract.Status,
			"terms":          contract.Terms,
			"approved_by_id": contract.ApprovedByID,
			"approved_at":    contract.ApprovedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *contractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Contract{}).Error
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := GetDB(ctx, r.db).Preload("Supplier").First(&contract, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) List(ctx context.Context, status, supplierID string, page, limit int) ([]model.Contract, int64, error) {
	var contracts []model.Contract
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Contract{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Model(&model.Contract{}).Preload("Supplier")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if supplierID != "" {
		fetchQuery = fetchQuery.Where("supplier_id = ?", supplierID)
	}

	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&contracts).Error; err != nil {
		return nil, 0, err
	}

	return contracts, total, nil
}

// NextContractNumber issues CTR-YYYYMMDD-NNNNN under an advisory lock so
// concurrent creates cannot draw the same number.
func (r *contractRepository) NextContractNumber(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "CTR-" + time.Now().Format("20060102") + "-"

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Contract{}).
		Where("contract_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
