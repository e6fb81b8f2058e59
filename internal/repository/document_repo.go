package repository

import (
	"context"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *model.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Document, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Document, error)
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, document *model.Document) error {
	return GetDB(ctx, r.db).Create(document).Error
}

func (r *documentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Document{}).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var document model.Document
	if err := GetDB(ctx, r.db).First(&document, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

func (r *documentRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Document, error) {
	var documents []model.Document
	if err := GetDB(ctx, r.db).Where("supplier_id = ?", supplierID).Order("created_at DESC").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *documentRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Document, error) {
	var documents []model.Document
	if err := GetDB(ctx, r.db).Where("contract_id = ?", contractID).Order("created_at DESC").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *documentRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Document, error) {
	var documents []model.Document
	if err := GetDB(ctx, r.db).Where("payment_id = ?", paymentID).Order("created_at DESC").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}
