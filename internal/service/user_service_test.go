package service

import (
	"context"
	"testing"
	"time"

	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	users   *fakeUserRepo
	refresh *fakeRefreshTokenRepo
	audits  *fakeAuditRepo
	svc     UserService
}

func newUserFixture() *userFixture {
	users := newFakeUserRepo()
	refresh := newFakeRefreshTokenRepo()
	audits := newFakeAuditRepo()
	perm := NewPermissionService(newFakePermissionRepo(), cache.NewStore(nil))
	return &userFixture{
		users:   users,
		refresh: refresh,
		audits:  audits,
		svc:     NewUserService(users, refresh, perm, NewAuditService(audits, perm)),
	}
}

func (f *userFixture) seedUser(t *testing.T, email, password, role string, active bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Username: "u-" + email,
		Email:    email,
		Password: string(hash),
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestLogin_Success(t *testing.T) {
	f := newUserFixture()
	f.seedUser(t, "manager@example.com", "correct horse", model.RoleProcurementManager, true)

	tokens, err := f.svc.Login(context.Background(), LoginUserRequest{Email: "manager@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	// Login is audited
	entries := f.audits.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionLogin, entries[0].Action)
}

func TestLogin_Failures(t *testing.T) {
	f := newUserFixture()
	f.seedUser(t, "active@example.com", "secret-pass", model.RoleAdmin, true)
	f.seedUser(t, "inactive@example.com", "secret-pass", model.RoleAdmin, false)

	cases := []LoginUserRequest{
		{Email: "active@example.com", Password: "wrong"},
		{Email: "inactive@example.com", Password: "secret-pass"},
		{Email: "unknown@example.com", Password: "secret-pass"},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req)
		require.Error(t, err, "email %s", req.Email)
		// Uniform failure: never reveal which part was wrong
		assert.Equal(t, CodeUnauthenticated, CodeOf(err))
	}
	assert.Empty(t, f.audits.all())
}

func TestRefreshToken_RotatesAndConsumesOld(t *testing.T) {
	f := newUserFixture()
	f.seedUser(t, "admin@example.com", "secret-pass", model.RoleAdmin, true)

	tokens, err := f.svc.Login(context.Background(), LoginUserRequest{Email: "admin@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	rotated, err := f.svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// Replaying the consumed token must fail
	_, err = f.svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, CodeUnauthenticated, CodeOf(err))
}

func TestRefreshToken_ExpiredIsRejectedAndPurged(t *testing.T) {
	f := newUserFixture()
	user := f.seedUser(t, "admin@example.com", "secret-pass", model.RoleAdmin, true)

	stale := &model.RefreshToken{
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.refresh.Create(context.Background(), stale))

	_, err := f.svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: "stale-token"})
	require.Error(t, err)
	assert.Equal(t, CodeUnauthenticated, CodeOf(err))

	_, err = f.refresh.FindByToken(context.Background(), "stale-token")
	assert.Error(t, err)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	f := newUserFixture()
	req := CreateUserRequest{
		Username: "newuser",
		Email:    "new@example.com",
		Password: "longenough",
		Role:     model.RoleProcurementSpecialist,
	}

	_, err := f.svc.CreateUser(context.Background(), principalWith(model.RoleProcurementManager), req)
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	res, err := f.svc.CreateUser(context.Background(), principalWith(model.RoleAdmin), req)
	require.NoError(t, err)
	assert.True(t, res.IsActive)
	assert.Equal(t, model.RoleProcurementSpecialist, res.Role)
}

func TestCreateUser_RejectsUnknownRole(t *testing.T) {
	f := newUserFixture()

	_, err := f.svc.CreateUser(context.Background(), principalWith(model.RoleAdmin), CreateUserRequest{
		Username: "newuser",
		Email:    "new@example.com",
		Password: "longenough",
		Role:     "SUPERUSER",
	})
	require.Error(t, err)
	assert.Equal(t, CodeBadUserInput, CodeOf(err))
}

func TestUpdateUser_SelfLockoutGuard(t *testing.T) {
	f := newUserFixture()
	admin := f.seedUser(t, "admin@example.com", "secret-pass", model.RoleAdmin, true)
	self := principalWith(model.RoleAdmin)
	self.ID = admin.ID

	demoted := model.RoleProcurementSpecialist
	_, err := f.svc.UpdateUser(context.Background(), self, admin.ID.String(), UpdateUserRequest{Role: &demoted})
	require.Error(t, err)
	assert.EqualError(t, err, "cannot change own role or active status")

	inactive := false
	_, err = f.svc.UpdateUser(context.Background(), self, admin.ID.String(), UpdateUserRequest{IsActive: &inactive})
	require.Error(t, err)
	assert.Equal(t, CodeBadUserInput, CodeOf(err))

	// Non-privileged fields remain self-editable
	phone := "555-0100"
	res, err := f.svc.UpdateUser(context.Background(), self, admin.ID.String(), UpdateUserRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, res.Phone)
}

func TestDeleteUser_SelfDeletionRefusedAndSessionsRevoked(t *testing.T) {
	f := newUserFixture()
	admin := f.seedUser(t, "admin@example.com", "secret-pass", model.RoleAdmin, true)
	victim := f.seedUser(t, "victim@example.com", "secret-pass", model.RoleProcurementSpecialist, true)

	self := principalWith(model.RoleAdmin)
	self.ID = admin.ID

	err := f.svc.DeleteUser(context.Background(), self, admin.ID.String())
	require.Error(t, err)
	assert.EqualError(t, err, "cannot delete own account")

	// Give the victim a live session, then delete them
	require.NoError(t, f.refresh.Create(context.Background(), &model.RefreshToken{
		UserID:    victim.ID,
		Token:     "victim-session",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, f.svc.DeleteUser(context.Background(), self, victim.ID.String()))
	_, err = f.refresh.FindByToken(context.Background(), "victim-session")
	assert.Error(t, err)
	_, err = f.users.GetByID(context.Background(), victim.ID.String())
	assert.Error(t, err)
}

func TestGetMe(t *testing.T) {
	f := newUserFixture()
	user := f.seedUser(t, "me@example.com", "secret-pass", model.RoleProcurementSpecialist, true)

	me := principalWith(model.RoleProcurementSpecialist)
	me.ID = user.ID

	res, err := f.svc.GetMe(context.Background(), me)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", res.Email)

	_, err = f.svc.GetMe(context.Background(), nil)
	assert.Equal(t, CodeUnauthenticated, CodeOf(err))
}
