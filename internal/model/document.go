package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is file metadata attached to a supplier, contract, or payment.
// At least one parent reference must be set.
type Document struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FileName     string         `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath     string         `gorm:"type:text;not null" json:"file_path"`
	FileSize     int64          `json:"file_size"`
	MimeType     string         `gorm:"type:varchar(100)" json:"mime_type"`
	SupplierID   *uuid.UUID     `gorm:"type:uuid;index" json:"supplier_id"`
	ContractID   *uuid.UUID     `gorm:"type:uuid;index" json:"contract_id"`
	PaymentID    *uuid.UUID     `gorm:"type:uuid;index" json:"payment_id"`
	UploadedByID *uuid.UUID     `gorm:"type:uuid;index" json:"uploaded_by_id"`
	UploadedBy   *User          `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasParent reports whether the document is attached to at least one entity.
func (d *Document) HasParent() bool {
	return d.SupplierID != nil || d.ContractID != nil || d.PaymentID != nil
}
