package model

import (
	"time"

	"github.com/google/uuid"
)

// Resource name constants for role-based grants
const (
	ResourceSuppliers     = "suppliers"
	ResourceContracts     = "contracts"
	ResourcePayments      = "payments"
	ResourceDocuments     = "documents"
	ResourceCategories    = "categories"
	ResourceUsers         = "users"
	ResourceAuditLogs     = "audit_logs"
	ResourceNotifications = "notifications"
)

// Grant action constants
const (
	PermRead    = "read"
	PermCreate  = "create"
	PermUpdate  = "update"
	PermDelete  = "delete"
	PermApprove = "approve"
)

// Permission is a role-based grant keyed by the (role, resource, action)
// triple, independent of any specific entity instance.
type Permission struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Role      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_resource_action" json:"role"`
	Resource  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_resource_action" json:"resource"`
	Action    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_resource_action" json:"action"`
	IsGranted bool      `gorm:"default:true" json:"is_granted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
