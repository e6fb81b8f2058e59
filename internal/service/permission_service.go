package service

import (
	"context"
	"sync"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	rolePermissionsKeyPrefix = "rolePermissionsMap:"
	rolePermissionsTTL       = 10 * time.Minute
)

// PermissionService decides whether a principal may perform a named action.
// Role and ownership checks are pure; grant lookups run through a two-tier
// cache (in-process map, then Redis) in front of the permissions table.
type PermissionService interface {
	CheckRole(principal *auth.Principal, allowedRoles []string, action string) error
	CheckOwnership(principal *auth.Principal, createdByID *uuid.UUID, action string) error
	HasPermission(ctx context.Context, principal *auth.Principal, resource, action string) (bool, error)
	InvalidateRole(ctx context.Context, role string)
	SeedDefaults(ctx context.Context) error
}

type localPermEntry struct {
	grants    map[string]bool
	expiresAt time.Time
}

type permissionService struct {
	permRepo repository.PermissionRepository
	cache    *cache.Store

	// In-process tier in front of Redis. Constructor-scoped rather than a
	// package-level singleton so tests can reset it deterministically.
	local    sync.Map // role -> localPermEntry
	localTTL time.Duration
}

func NewPermissionService(permRepo repository.PermissionRepository, cacheStore *cache.Store) PermissionService {
	return &permissionService{
		permRepo: permRepo,
		cache:    cacheStore,
		localTTL: rolePermissionsTTL,
	}
}

// CheckRole verifies role-set membership. ADMIN is not implicit — callers
// must include it explicitly where admins should act.
func (s *permissionService) CheckRole(principal *auth.Principal, allowedRoles []string, action string) error {
	if principal == nil {
		return ErrUnauthenticated(action)
	}
	for _, role := range allowedRoles {
		if principal.Role == role {
			return nil
		}
	}
	return ErrForbidden(action, allowedRoles...)
}

// CheckOwnership gates update-class actions: ADMIN and MANAGER bypass,
// SPECIALIST must be the creator. Callers resolve NOT_FOUND before calling.
func (s *permissionService) CheckOwnership(principal *auth.Principal, createdByID *uuid.UUID, action string) error {
	if principal == nil {
		return ErrUnauthenticated(action)
	}
	if principal.Role == model.RoleAdmin || principal.Role == model.RoleProcurementManager {
		return nil
	}
	if createdByID != nil && *createdByID == principal.ID {
		return nil
	}
	return ErrForbiddenOwnership(action)
}

// HasPermission consults the grant table. ADMIN short-circuits to true
// without touching either cache tier.
func (s *permissionService) HasPermission(ctx context.Context, principal *auth.Principal, resource, action string) (bool, error) {
	if principal == nil {
		return false, ErrUnauthenticated(resource + "." + action)
	}
	if principal.Role == model.RoleAdmin {
		return true, nil
	}

	grants, err := s.grantsForRole(ctx, principal.Role)
	if err != nil {
		return false, err
	}
	return grants[resource+":"+action], nil
}

func (s *permissionService) grantsForRole(ctx context.Context, role string) (map[string]bool, error) {
	// Tier 1: in-process
	if v, ok := s.local.Load(role); ok {
		entry := v.(localPermEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.grants, nil
		}
	}

	// Tier 2: Redis
	key := rolePermissionsKeyPrefix + role
	var cached map[string]bool
	if s.cache.Get(ctx, key, &cached) {
		s.local.Store(role, localPermEntry{grants: cached, expiresAt: time.Now().Add(s.localTTL)})
		return cached, nil
	}

	// Source of truth
	permissions, err := s.permRepo.ListGrantedByRole(ctx, role)
	if err != nil {
		return nil, ErrInternal("failed to load permissions for role "+role, err)
	}

	grants := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		grants[p.Resource+":"+p.Action] = true
	}

	s.cache.Set(ctx, key, grants, rolePermissionsTTL)
	s.local.Store(role, localPermEntry{grants: grants, expiresAt: time.Now().Add(s.localTTL)})
	return grants, nil
}

// InvalidateRole drops both cache tiers for a role after its grants change.
func (s *permissionService) InvalidateRole(ctx context.Context, role string) {
	s.local.Delete(role)
	s.cache.Invalidate(ctx, rolePermissionsKeyPrefix+role)
}

// SeedDefaults installs the default grant matrix on first boot.
func (s *permissionService) SeedDefaults(ctx context.Context) error {
	count, err := s.permRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	type grant struct {
		role, resource string
		actions        []string
	}
	allActions := []string{model.PermRead, model.PermCreate, model.PermUpdate, model.PermDelete, model.PermApprove}
	grants := []grant{
		{model.RoleProcurementManager, model.ResourceSuppliers, allActions},
		{model.RoleProcurementManager, model.ResourceContracts, allActions},
		{model.RoleProcurementManager, model.ResourcePayments, allActions},
		{model.RoleProcurementManager, model.ResourceDocuments, []string{model.PermRead, model.PermCreate, model.PermDelete}},
		{model.RoleProcurementManager, model.ResourceCategories, []string{model.PermRead, model.PermCreate, model.PermUpdate, model.PermDelete}},
		{model.RoleProcurementManager, model.ResourceAuditLogs, []string{model.PermRead}},
		{model.RoleProcurementSpecialist, model.ResourceSuppliers, []string{model.PermRead, model.PermCreate, model.PermUpdate}},
		{model.RoleProcurementSpecialist, model.ResourceContracts, []string{model.PermRead, model.PermCreate, model.PermUpdate}},
		{model.RoleProcurementSpecialist, model.ResourcePayments, []string{model.PermRead, model.PermCreate}},
		{model.RoleProcurementSpecialist, model.ResourceDocuments, []string{model.PermRead, model.PermCreate}},
		{model.RoleProcurementSpecialist, model.ResourceCategories, []string{model.PermRead}},
	}

	for _, g := range grants {
		for _, action := range g.actions {
			p := &model.Permission{Role: g.role, Resource: g.resource, Action: action, IsGranted: true}
			if err := s.permRepo.Upsert(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}
