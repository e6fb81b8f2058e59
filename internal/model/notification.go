package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification type constants
const (
	NotificationSupplierCreated  = "SUPPLIER_CREATED"
	NotificationSupplierApproved = "SUPPLIER_APPROVED"
	NotificationSupplierRejected = "SUPPLIER_REJECTED"
	NotificationContractCreated  = "CONTRACT_CREATED"
	NotificationContractApproved = "CONTRACT_APPROVED"
	NotificationContractRejected = "CONTRACT_REJECTED"
	NotificationPaymentCreated   = "PAYMENT_CREATED"
	NotificationPaymentApproved  = "PAYMENT_APPROVED"
	NotificationPaymentRejected  = "PAYMENT_REJECTED"
	NotificationPaymentPaid      = "PAYMENT_PAID"
	NotificationStatusChanged    = "STATUS_CHANGED"
)

// Notification is one row per target user — role fan-out creates a row per
// active user holding the role at dispatch time, never a shared row.
type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"-"`
	Type       string     `gorm:"type:varchar(50);not null;index" json:"type"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	Message    string     `gorm:"type:text" json:"message"`
	IsRead     bool       `gorm:"default:false;index" json:"is_read"`
	EntityType string     `gorm:"type:varchar(50)" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
