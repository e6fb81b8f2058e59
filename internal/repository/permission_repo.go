package repository

import (
	"context"

	"procurement-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository interface {
	ListGrantedByRole(ctx context.Context, role string) ([]model.Permission, error)
	Upsert(ctx context.Context, permission *model.Permission) error
	Count(ctx context.Context) (int64, error)
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) ListGrantedByRole(ctx context.Context, role string) ([]model.Permission, error) {
	var permissions []model.Permission
	if err := GetDB(ctx, r.db).Where("role = ? AND is_granted = ?", role, true).Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

// Upsert inserts or updates the grant for a (role, resource, action) triple.
func (r *permissionRepository) Upsert(ctx context.Context, permission *model.Permission) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role"}, {Name: "resource"}, {Name: "action"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_granted"}),
	}).Create(permission).Error
}

func (r *permissionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Permission{}).Count(&count).Error
	return count, err
}
