package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
)

// sensitiveFields are masked recursively wherever they appear in old/new
// value snapshots. Masking happens at read time — the snapshots themselves
// are stored unmasked.
var sensitiveFields = map[string]bool{
	"passwordhash":      true,
	"password":          true,
	"secret":            true,
	"token":             true,
	"creditcard":        true,
	"bankaccountnumber": true,
	"bank_account_number": true,
	"iban":              true,
	"ssn":               true,
}

const maskedValue = "***REDACTED***"

type AuditLogResponse struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Username   string      `json:"username"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	OldValues  interface{} `json:"old_values,omitempty"`
	NewValues  interface{} `json:"new_values,omitempty"`
	IPAddress  string      `json:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty"`
	CreatedAt  string      `json:"created_at"`
}

// AuditService records every mutating action. Record is best-effort by
// design: an audit failure is logged and swallowed so it can never abort the
// business operation that triggered it. This is deliberately asymmetric from
// notification dispatch, which fails loudly.
type AuditService interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, oldValues, newValues interface{})
	List(ctx context.Context, principal *auth.Principal, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo   repository.AuditRepository
	permService PermissionService
}

func NewAuditService(auditRepo repository.AuditRepository, permService PermissionService) AuditService {
	return &auditService{auditRepo: auditRepo, permService: permService}
}

// Record appends one immutable audit row. Never returns or raises — any
// failure is logged and swallowed.
func (s *auditService) Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, oldValues, newValues interface{}) {
	entry := &model.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}

	if oldValues != nil {
		if data, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = string(data)
		}
	}
	if newValues != nil {
		if data, err := json.Marshal(newValues); err == nil {
			entry.NewValues = string(data)
		}
	}

	meta := auth.RequestMetaFromContext(ctx)
	entry.IPAddress = meta.IPAddress
	entry.UserAgent = meta.UserAgent

	if err := s.auditRepo.Log(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s on %s %s: %v", action, entityType, entityID, err)
	}
}

// List returns paginated audit entries with sensitive fields masked.
func (s *auditService) List(ctx context.Context, principal *auth.Principal, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := s.permService.CheckRole(principal, []string{model.RoleProcurementManager, model.RoleAdmin}, "audit_logs.read"); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.auditRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, ErrInternal("failed to fetch audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			OldValues:  sanitizeSnapshot(l.OldValues),
			NewValues:  sanitizeSnapshot(l.NewValues),
			IPAddress:  l.IPAddress,
			UserAgent:  l.UserAgent,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}

	return res, total, nil
}

// sanitizeSnapshot parses a stored JSON snapshot and masks sensitive fields
// recursively. Invalid JSON is surfaced as the raw string.
func sanitizeSnapshot(raw string) interface{} {
	if raw == "" {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return maskSensitive(value)
}

func maskSensitive(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			if isSensitiveField(key) {
				out[key] = maskedValue
			} else {
				out[key] = maskSensitive(inner)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = maskSensitive(inner)
		}
		return out
	default:
		return value
	}
}

func isSensitiveField(key string) bool {
	normalized := make([]rune, 0, len(key))
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		normalized = append(normalized, r)
	}
	return sensitiveFields[string(normalized)]
}
