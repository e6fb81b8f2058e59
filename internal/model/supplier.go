package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplierStatus enum constants
const (
	SupplierStatusPending  = "PENDING"
	SupplierStatusApproved = "APPROVED"
	SupplierStatusRejected = "REJECTED"
	SupplierStatusInactive = "INACTIVE"
)

// Supplier represents a vendor moving through the onboarding/approval workflow
type Supplier struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name               string     `gorm:"type:varchar(255);not null" json:"name"`
	Email              string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	TaxID              string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"tax_id"`
	RegistrationNumber string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"registration_number"`
	Phone              string     `gorm:"type:varchar(50)" json:"phone"`
	Address            string     `gorm:"type:text" json:"address"`
	ContactPerson      string     `gorm:"type:varchar(255)" json:"contact_person"`
	BankAccountNumber  string     `gorm:"type:varchar(100)" json:"bank_account_number"`
	Status             string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Notes              string     `gorm:"type:text" json:"notes"`
	FinancialRating    *int       `json:"financial_rating"`
	QualityRating      *int       `json:"quality_rating"`
	DeliveryRating     *int       `json:"delivery_rating"`
	CommunicationRating *int      `json:"communication_rating"`
	OverallRating      *int       `json:"overall_rating"`
	CreatedByID        *uuid.UUID `gorm:"type:uuid;index" json:"created_by_id"` // Nullable for public self-registration
	CreatedBy          *User      `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	ApprovedByID       *uuid.UUID `gorm:"type:uuid" json:"approved_by_id"`
	ApprovedBy         *User      `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at"`
	Categories         []Category `gorm:"many2many:supplier_categories;" json:"categories"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// Category groups suppliers by the goods or services they provide
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
