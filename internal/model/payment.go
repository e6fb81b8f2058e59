package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus enum constants
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusApproved = "APPROVED"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRejected = "REJECTED"
)

// Payment represents a payment request against a supplier, optionally tied to
// a contract. When ContractID is set the contract must belong to the same
// supplier — enforced at creation time.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentNumber string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"payment_number"`
	SupplierID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier      *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	ContractID    *uuid.UUID      `gorm:"type:uuid;index" json:"contract_id"`
	Contract      *Contract       `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	Description   string          `gorm:"type:text" json:"description"`
	Status        string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	RequestedByID *uuid.UUID      `gorm:"type:uuid;index" json:"requested_by_id"`
	RequestedBy   *User           `gorm:"foreignKey:RequestedByID" json:"requested_by,omitempty"`
	ApprovedByID  *uuid.UUID      `gorm:"type:uuid" json:"approved_by_id"`
	ApprovedBy    *User           `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
