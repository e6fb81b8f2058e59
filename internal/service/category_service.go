package service

import (
	"context"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
)

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CategoryService interface {
	CreateCategory(ctx context.Context, principal *auth.Principal, req CreateCategoryRequest) (CategoryResponse, error)
	GetCategory(ctx context.Context, principal *auth.Principal, id string) (CategoryResponse, error)
	ListCategories(ctx context.Context, principal *auth.Principal) ([]CategoryResponse, error)
	UpdateCategory(ctx context.Context, principal *auth.Principal, id string, req UpdateCategoryRequest) (CategoryResponse, error)
	DeleteCategory(ctx context.Context, principal *auth.Principal, id string) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	permService  PermissionService
	audit        AuditService
}

func NewCategoryService(categoryRepo repository.CategoryRepository, permService PermissionService, audit AuditService) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		permService:  permService,
		audit:        audit,
	}
}

func (s *categoryService) CreateCategory(ctx context.Context, principal *auth.Principal, req CreateCategoryRequest) (CategoryResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "categories.create"); err != nil {
		return CategoryResponse{}, err
	}
	if _, err := s.categoryRepo.FindByName(ctx, req.Name); err == nil {
		return CategoryResponse{}, ErrBadInput("a category with this name already exists")
	}

	category := &model.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return CategoryResponse{}, ErrInternal("failed to create category", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionCreateCategory, model.EntityTypeCategory, category.ID.String(), nil, category)
	return toCategoryResponse(*category), nil
}

func (s *categoryService) GetCategory(ctx context.Context, principal *auth.Principal, id string) (CategoryResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "categories.read"); err != nil {
		return CategoryResponse{}, err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return CategoryResponse{}, ErrBadInput("invalid category id")
	}
	category, err := s.categoryRepo.FindByID(ctx, cid)
	if err != nil {
		return CategoryResponse{}, asLoadError(err, model.EntityTypeCategory, id)
	}
	return toCategoryResponse(*category), nil
}

func (s *categoryService) ListCategories(ctx context.Context, principal *auth.Principal) ([]CategoryResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "categories.read"); err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, ErrInternal("failed to fetch categories", err)
	}
	return toCategoryResponses(categories), nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, principal *auth.Principal, id string, req UpdateCategoryRequest) (CategoryResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "categories.update"); err != nil {
		return CategoryResponse{}, err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return CategoryResponse{}, ErrBadInput("invalid category id")
	}

	category, err := s.categoryRepo.FindByID(ctx, cid)
	if err != nil {
		return CategoryResponse{}, asLoadError(err, model.EntityTypeCategory, id)
	}

	old := *category
	if req.Name != nil && *req.Name != category.Name {
		if _, err := s.categoryRepo.FindByName(ctx, *req.Name); err == nil {
			return CategoryResponse{}, ErrBadInput("a category with this name already exists")
		}
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return CategoryResponse{}, ErrInternal("failed to update category", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionUpdateCategory, model.EntityTypeCategory, category.ID.String(), old, category)
	return toCategoryResponse(*category), nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.permService.CheckRole(principal, approverRoles, "categories.delete"); err != nil {
		return err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return ErrBadInput("invalid category id")
	}

	category, err := s.categoryRepo.FindByID(ctx, cid)
	if err != nil {
		return asLoadError(err, model.EntityTypeCategory, id)
	}

	if err := s.categoryRepo.Delete(ctx, cid); err != nil {
		return ErrInternal("failed to delete category", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionDeleteCategory, model.EntityTypeCategory, id, category, nil)
	return nil
}

func toCategoryResponse(c model.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
	}
}
