package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit action constants
const (
	ActionCreateSupplier   = "CREATE_SUPPLIER"
	ActionRegisterSupplier = "REGISTER_SUPPLIER"
	ActionUpdateSupplier   = "UPDATE_SUPPLIER"
	ActionApproveSupplier  = "APPROVE_SUPPLIER"
	ActionRejectSupplier   = "REJECT_SUPPLIER"
	ActionDeleteSupplier   = "DELETE_SUPPLIER"
	ActionRateSupplier     = "RATE_SUPPLIER"

	ActionCreateContract  = "CREATE_CONTRACT"
	ActionUpdateContract  = "UPDATE_CONTRACT"
	ActionApproveContract = "APPROVE_CONTRACT"
	ActionRejectContract  = "REJECT_CONTRACT"
	ActionDeleteContract  = "DELETE_CONTRACT"

	ActionCreatePayment  = "CREATE_PAYMENT"
	ActionUpdatePayment  = "UPDATE_PAYMENT"
	ActionApprovePayment = "APPROVE_PAYMENT"
	ActionRejectPayment  = "REJECT_PAYMENT"
	ActionDeletePayment  = "DELETE_PAYMENT"
	ActionMarkPaymentPaid = "MARK_PAYMENT_PAID"

	ActionUploadDocument = "UPLOAD_DOCUMENT"
	ActionDeleteDocument = "DELETE_DOCUMENT"

	ActionCreateCategory = "CREATE_CATEGORY"
	ActionUpdateCategory = "UPDATE_CATEGORY"
	ActionDeleteCategory = "DELETE_CATEGORY"

	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"
	ActionLogin      = "LOGIN"
)

// Entity type constants used in audit entries, notifications, and cache keys
const (
	EntityTypeSupplier = "SUPPLIER"
	EntityTypeContract = "CONTRACT"
	EntityTypePayment  = "PAYMENT"
	EntityTypeDocument = "DOCUMENT"
	EntityTypeCategory = "CATEGORY"
	EntityTypeUser     = "USER"
)

// AuditLog tracks Who, What, and When for critical system changes.
// Rows are append-only; there is no update or delete path.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for anonymous registration
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50);not null;index" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	OldValues  string     `gorm:"type:jsonb" json:"old_values,omitempty"`
	NewValues  string     `gorm:"type:jsonb" json:"new_values,omitempty"`
	IPAddress  string     `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent  string     `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
