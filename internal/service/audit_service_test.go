package service

import (
	"context"
	"errors"
	"testing"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditFixture() (*fakeAuditRepo, AuditService) {
	auditRepo := newFakeAuditRepo()
	perm := NewPermissionService(newFakePermissionRepo(), cache.NewStore(nil))
	return auditRepo, NewAuditService(auditRepo, perm)
}

func TestRecord_CapturesRequestProvenance(t *testing.T) {
	auditRepo, svc := newAuditFixture()
	actor := uuid.New()

	ctx := auth.ContextWithRequestMeta(context.Background(), auth.RequestMeta{
		IPAddress: "203.0.113.7",
		UserAgent: "procurement-ui/2.1",
	})
	svc.Record(ctx, &actor, model.ActionCreateSupplier, model.EntityTypeSupplier, "abc", nil, map[string]string{"name": "Acme"})

	entries := auditRepo.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.7", entries[0].IPAddress)
	assert.Equal(t, "procurement-ui/2.1", entries[0].UserAgent)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, actor, *entries[0].UserID)
	assert.JSONEq(t, `{"name":"Acme"}`, entries[0].NewValues)
}

func TestRecord_SwallowsRepositoryFailure(t *testing.T) {
	auditRepo, svc := newAuditFixture()
	auditRepo.logErr = errors.New("disk full")

	// Must not panic or surface anything — audit loss never aborts the caller
	svc.Record(context.Background(), nil, model.ActionDeleteSupplier, model.EntityTypeSupplier, "abc", nil, nil)

	assert.Empty(t, auditRepo.all())
}

func TestList_RequiresManagerOrAdmin(t *testing.T) {
	_, svc := newAuditFixture()

	_, _, err := svc.List(context.Background(), principalWith(model.RoleProcurementSpecialist), repository.AuditFilter{}, 1, 20)
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	_, _, err = svc.List(context.Background(), principalWith(model.RoleAdmin), repository.AuditFilter{}, 1, 20)
	assert.NoError(t, err)
}

func TestList_MasksSensitiveFields(t *testing.T) {
	auditRepo, svc := newAuditFixture()
	actor := uuid.New()

	svc.Record(context.Background(), &actor, model.ActionUpdateSupplier, model.EntityTypeSupplier, "abc",
		map[string]interface{}{"bank_account_number": "DE89370400440532013000", "name": "Acme"},
		map[string]interface{}{
			"bank_account_number": "NL91ABNA0417164300",
			"nested":              map[string]interface{}{"password": "hunter2", "phone": "555"},
		})

	logs, _, err := svc.List(context.Background(), principalWith(model.RoleAdmin), repository.AuditFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	oldValues := logs[0].OldValues.(map[string]interface{})
	assert.Equal(t, "***REDACTED***", oldValues["bank_account_number"])
	assert.Equal(t, "Acme", oldValues["name"])

	newValues := logs[0].NewValues.(map[string]interface{})
	assert.Equal(t, "***REDACTED***", newValues["bank_account_number"])
	nested := newValues["nested"].(map[string]interface{})
	assert.Equal(t, "***REDACTED***", nested["password"])
	assert.Equal(t, "555", nested["phone"])

	// Masking is a read-time view; stored snapshots stay intact
	assert.Contains(t, auditRepo.all()[0].NewValues, "NL91ABNA0417164300")
}

func TestList_AnonymousEntriesShowSystem(t *testing.T) {
	_, svc := newAuditFixture()

	svc.Record(context.Background(), nil, model.ActionRegisterSupplier, model.EntityTypeSupplier, "abc", nil, nil)

	logs, _, err := svc.List(context.Background(), principalWith(model.RoleAdmin), repository.AuditFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "System", logs[0].Username)
	assert.Empty(t, logs[0].UserID)
}

func TestSanitizeSnapshot_InvalidJSONPassesThrough(t *testing.T) {
	assert.Nil(t, sanitizeSnapshot(""))
	assert.Equal(t, "not-json{", sanitizeSnapshot("not-json{"))
}
