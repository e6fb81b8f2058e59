package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// --- DTOs ---

type CreateUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
}

type UpdateUserRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	IsActive   *bool   `json:"is_active"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse mirrors the User entity minus credentials.
type UserResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Department string `json:"department"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// --- Interface ---

type UserService interface {
	CreateUser(ctx context.Context, principal *auth.Principal, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, principal *auth.Principal, id string) (*UserResponse, error)
	GetMe(ctx context.Context, principal *auth.Principal) (*UserResponse, error)
	ListUsers(ctx context.Context, principal *auth.Principal, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, principal *auth.Principal, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, principal *auth.Principal, id string) error
}

type userService struct {
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	permService PermissionService
	audit       AuditService
}

func NewUserService(userRepo repository.UserRepository, refreshRepo repository.RefreshTokenRepository, permService PermissionService, audit AuditService) UserService {
	return &userService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		permService: permService,
		audit:       audit,
	}
}

var adminOnly = []string{model.RoleAdmin}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}
	return []byte(secret)
}

func (s *userService) signAccessToken(user *model.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	})
	return token.SignedString(jwtSecret())
}

func newRefreshTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, ErrInternal("failed to generate token", err)
	}

	refreshValue, err := newRefreshTokenValue()
	if err != nil {
		return nil, ErrInternal("failed to generate refresh token", err)
	}
	if err := s.refreshRepo.Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshValue,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return nil, ErrInternal("failed to store refresh token", err)
	}

	return &TokenResponse{Token: accessToken, RefreshToken: refreshValue}, nil
}

// --- Auth operations ---

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrUnauthenticated("login")
	}
	if !user.IsActive {
		return nil, ErrUnauthenticated("login")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrUnauthenticated("login")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	uid := user.ID
	s.audit.Record(ctx, &uid, model.ActionLogin, model.EntityTypeUser, user.ID.String(), nil, nil)
	return tokens, nil
}

// RefreshToken rotates the refresh token: the presented token is consumed and
// a fresh pair issued. A reused or expired token is rejected.
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.refreshRepo.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, ErrUnauthenticated("refresh")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.refreshRepo.DeleteByToken(ctx, req.RefreshToken)
		return nil, ErrUnauthenticated("refresh")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID.String())
	if err != nil || !user.IsActive {
		return nil, ErrUnauthenticated("refresh")
	}

	if err := s.refreshRepo.DeleteByToken(ctx, req.RefreshToken); err != nil {
		return nil, ErrInternal("failed to rotate refresh token", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.refreshRepo.DeleteByToken(ctx, refreshToken)
}

// --- CRUD ---

func (s *userService) CreateUser(ctx context.Context, principal *auth.Principal, req CreateUserRequest) (*UserResponse, error) {
	if err := s.permService.CheckRole(principal, adminOnly, "users.create"); err != nil {
		return nil, err
	}
	if !model.ValidRole(req.Role) {
		return nil, ErrBadInput("invalid role: must be ADMIN, PROCUREMENT_MANAGER, or PROCUREMENT_SPECIALIST")
	}
	if err := validateSupplierEmail(req.Email); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrBadInput("username already exists")
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrBadInput("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal("failed to hash password", err)
	}

	user := &model.User{
		Username:   req.Username,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   string(hashedPassword),
		Role:       req.Role,
		Department: req.Department,
		IsActive:   true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, ErrInternal("failed to create user", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionCreateUser, model.EntityTypeUser, user.ID.String(), nil, map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
	return toUserResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, principal *auth.Principal, id string) (*UserResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "users.read"); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, asLoadError(err, model.EntityTypeUser, id)
	}
	return toUserResponse(user), nil
}

func (s *userService) GetMe(ctx context.Context, principal *auth.Principal) (*UserResponse, error) {
	if principal == nil {
		return nil, ErrUnauthenticated("users.me")
	}
	user, err := s.userRepo.GetByID(ctx, principal.ID.String())
	if err != nil {
		return nil, asLoadError(err, model.EntityTypeUser, principal.ID.String())
	}
	return toUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, principal *auth.Principal, page, limit int) ([]UserResponse, int64, error) {
	if err := s.permService.CheckRole(principal, adminOnly, "users.read"); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, ErrInternal("failed to fetch users", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *toUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, principal *auth.Principal, id string, req UpdateUserRequest) (*UserResponse, error) {
	if err := s.permService.CheckRole(principal, adminOnly, "users.update"); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, asLoadError(err, model.EntityTypeUser, id)
	}

	// Admins cannot demote or deactivate themselves — a lockout guard.
	selfEdit := principal != nil && principal.ID.String() == id
	if selfEdit && (req.Role != nil || req.IsActive != nil) {
		return nil, ErrBadInput("cannot change own role or active status")
	}

	old := *user

	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return nil, ErrBadInput("invalid role: must be ADMIN, PROCUREMENT_MANAGER, or PROCUREMENT_SPECIALIST")
		}
		user.Role = *req.Role
	}
	if req.Username != nil && *req.Username != user.Username {
		if _, err := s.userRepo.GetByUsername(ctx, *req.Username); err == nil {
			return nil, ErrBadInput("username already exists")
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if err := validateSupplierEmail(*req.Email); err != nil {
			return nil, err
		}
		if _, err := s.userRepo.GetByEmail(ctx, *req.Email); err == nil {
			return nil, ErrBadInput("email already exists")
		}
		user.Email = *req.Email
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, ErrInternal("failed to update user", err)
	}

	// A role change obsoletes cached grants for both roles.
	if old.Role != user.Role {
		s.permService.InvalidateRole(ctx, old.Role)
		s.permService.InvalidateRole(ctx, user.Role)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionUpdateUser, model.EntityTypeUser, user.ID.String(), map[string]interface{}{
		"username": old.Username, "email": old.Email, "role": old.Role, "is_active": old.IsActive,
	}, map[string]interface{}{
		"username": user.Username, "email": user.Email, "role": user.Role, "is_active": user.IsActive,
	})
	return toUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.permService.CheckRole(principal, adminOnly, "users.delete"); err != nil {
		return err
	}
	if principal != nil && principal.ID.String() == id {
		return ErrBadInput("cannot delete own account")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return asLoadError(err, model.EntityTypeUser, id)
	}

	if err := s.refreshRepo.DeleteByUser(ctx, user.ID); err != nil {
		return ErrInternal("failed to revoke user sessions", err)
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return ErrInternal("failed to delete user", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionDeleteUser, model.EntityTypeUser, id, map[string]interface{}{
		"username": user.Username, "email": user.Email, "role": user.Role,
	}, nil)
	return nil
}

func toUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID.String(),
		Username:   user.Username,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       user.Role,
		Department: user.Department,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.Format(time.RFC3339),
	}
}
