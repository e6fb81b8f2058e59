package service

import (
	"context"
	"testing"

	"procurement-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCategoryService(f *fixture) CategoryService {
	return NewCategoryService(f.categories, f.permService, f.auditService)
}

func TestCreateCategory_ApproverOnly(t *testing.T) {
	f := newFixture()
	svc := newCategoryService(f)

	_, err := svc.CreateCategory(context.Background(), principalWith(model.RoleProcurementSpecialist), CreateCategoryRequest{Name: "Raw Materials"})
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	res, err := svc.CreateCategory(context.Background(), principalWith(model.RoleProcurementManager), CreateCategoryRequest{Name: "Raw Materials"})
	require.NoError(t, err)
	assert.Equal(t, "Raw Materials", res.Name)
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	f := newFixture()
	svc := newCategoryService(f)
	manager := principalWith(model.RoleProcurementManager)

	_, err := svc.CreateCategory(context.Background(), manager, CreateCategoryRequest{Name: "Logistics"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(context.Background(), manager, CreateCategoryRequest{Name: "Logistics"})
	require.Error(t, err)
	assert.Equal(t, CodeBadUserInput, CodeOf(err))
	assert.EqualError(t, err, "a category with this name already exists")
}

func TestListCategories_AnyProcurementRole(t *testing.T) {
	f := newFixture()
	svc := newCategoryService(f)
	manager := principalWith(model.RoleProcurementManager)

	_, err := svc.CreateCategory(context.Background(), manager, CreateCategoryRequest{Name: "IT Services"})
	require.NoError(t, err)

	listed, err := svc.ListCategories(context.Background(), principalWith(model.RoleProcurementSpecialist))
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestDeleteCategory_Audited(t *testing.T) {
	f := newFixture()
	svc := newCategoryService(f)
	manager := principalWith(model.RoleProcurementManager)

	created, err := svc.CreateCategory(context.Background(), manager, CreateCategoryRequest{Name: "Packaging"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(context.Background(), manager, created.ID))

	actions := []string{}
	for _, e := range f.audits.all() {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, model.ActionCreateCategory)
	assert.Contains(t, actions, model.ActionDeleteCategory)
}
