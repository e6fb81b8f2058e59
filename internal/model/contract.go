package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractStatus enum constants. APPROVED exists in the enum but the approval
// transition moves a contract straight to ACTIVE — approval and activation are
// a single step in this workflow.
const (
	ContractStatusDraft           = "DRAFT"
	ContractStatusPendingApproval = "PENDING_APPROVAL"
	ContractStatusApproved        = "APPROVED"
	ContractStatusActive          = "ACTIVE"
	ContractStatusRejected        = "REJECTED"
	ContractStatusExpired         = "EXPIRED"
	ContractStatusTerminated      = "TERMINATED"
)

// Contract represents a procurement agreement with a supplier
type Contract struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractNumber string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"contract_number"`
	SupplierID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier       *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	Status         string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	StartDate      time.Time       `gorm:"not null" json:"start_date"`
	EndDate        time.Time       `gorm:"not null" json:"end_date"`
	Value          decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"value"`
	Terms          string          `gorm:"type:text" json:"terms"`
	CreatedByID    *uuid.UUID      `gorm:"type:uuid;index" json:"created_by_id"`
	CreatedBy      *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	ApprovedByID   *uuid.UUID      `gorm:"type:uuid" json:"approved_by_id"`
	ApprovedBy     *User           `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}
