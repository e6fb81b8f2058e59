package repository

import (
	"context"
	"errors"
	"testing"

	"procurement-backend/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestUpdateIfStatus_ConflictWhenNoRowMatches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSupplierRepository(db)

	supplier := &model.Supplier{
		ID:     uuid.New(),
		Status: model.SupplierStatusApproved,
	}

	// The guard predicate matched nothing: a concurrent writer already moved
	// the row off PENDING.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "suppliers" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateIfStatus(context.Background(), supplier, model.SupplierStatusPending)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateIfStatus_AppliesWhenStatusStillMatches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSupplierRepository(db)

	supplier := &model.Supplier{
		ID:     uuid.New(),
		Status: model.SupplierStatusApproved,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "suppliers" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateIfStatus(context.Background(), supplier, model.SupplierStatusPending))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateIfStatus_PropagatesDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSupplierRepository(db)

	supplier := &model.Supplier{ID: uuid.New(), Status: model.SupplierStatusRejected}

	driverErr := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "suppliers" SET`).WillReturnError(driverErr)
	mock.ExpectRollback()

	err := repo.UpdateIfStatus(context.Background(), supplier, model.SupplierStatusPending)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSupplierRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "suppliers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
