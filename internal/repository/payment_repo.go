package repository

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	UpdateIfStatus(ctx context.Context, payment *model.Payment, expectedStatus string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	List(ctx context.Context, status, supplierID string, page, limit int) ([]model.Payment, int64, error)
	NextPaymentNumber(ctx context.Context) (string, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Save(payment).Error
}

func (r *paymentRepository) UpdateIfStatus(ctx context.Context, payment *model.Payment, expectedStatus string) error {
	res := GetDB(ctx, r.db).Model(&model.Payment{}).
		Where("id = ? AND status = ?", payment.ID, expectedStatus).
		Updates(map[string]interface{}{
			"status":         payment.Status,
			"notes":          payment.Notes,
			"approved_by_id": payment.ApprovedByID,
			"approved_at":    payment.ApprovedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Payment{}).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).Preload("Supplier").Preload("Contract").First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, status, supplierID string, page, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Payment{})
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
	fetchQuery := db.Model(&model.Payment{}).Preload("Supplier")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if supplierID != "" {
		fetchQuery = fetchQuery.Where("supplier_id = ?", supplierID)
	}

	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

// NextPaymentNumber issues PAY-YYYYMMDD-NNNNN under an advisory lock.
func (r *paymentRepository) NextPaymentNumber(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "PAY-" + time.Now().Format("20060102") + "-"

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Payment{}).
		Where("payment_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
