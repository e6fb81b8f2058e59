package service

import (
	"context"
	"log"

	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"
)

// --- DTOs ---

type RegisterSupplierRequest struct {
	Name               string   `json:"name" binding:"required"`
	Email              string   `json:"email" binding:"required,email"`
	TaxID              string   `json:"tax_id" binding:"required"`
	RegistrationNumber string   `json:"registration_number" binding:"required"`
	Phone              string   `json:"phone"`
	Address            string   `json:"address"`
	ContactPerson      string   `json:"contact_person"`
	Notes              string   `json:"notes"`
	CategoryIDs        []string `json:"category_ids"`
}

// RegistrationResult is always returned with a 200-style shape: the public
// portal form renders Message verbatim whether registration was accepted or
// rejected, so this service reports failures as data, never as errors.
type RegistrationResult struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Supplier *SupplierResponse `json:"supplier,omitempty"`
}

// --- Interface ---

// RegistrationService is the anonymous-facing gateway for supplier
// self-registration. It performs no permission checks — there is no
// principal — and never returns an error to the caller.
type RegistrationService interface {
	RegisterSupplier(ctx context.Context, req RegisterSupplierRequest) RegistrationResult
}

type registrationService struct {
	lifecycleCore
	supplierRepo repository.SupplierRepository
	categoryRepo repository.CategoryRepository
}

func NewRegistrationService(
	supplierRepo repository.SupplierRepository,
	categoryRepo repository.CategoryRepository,
	auditService AuditService,
	notificationService NotificationService,
	cacheStore *cache.Store,
	events EventPublisher,
) RegistrationService {
	return &registrationService{
		lifecycleCore: lifecycleCore{
			desc:     supplierLifecycle,
			audit:    auditService,
			notifier: notificationService,
			cache:    cacheStore,
			events:   events,
		},
		supplierRepo: supplierRepo,
		categoryRepo: categoryRepo,
	}
}

// RegisterSupplier validates and persists a self-registered supplier in
// PENDING status with no creator. Duplicate checks run before any write — a
// rejected registration leaves no row, no audit entry, and no notification.
func (s *registrationService) RegisterSupplier(ctx context.Context, req RegisterSupplierRequest) RegistrationResult {
	if err := validateSupplierEmail(req.Email); err != nil {
		return RegistrationResult{Success: false, Message: "Invalid email format"}
	}

	if _, err := s.supplierRepo.FindByEmail(ctx, req.Email); err == nil {
		return RegistrationResult{Success: false, Message: "A supplier with this email already exists"}
	}
	if _, err := s.supplierRepo.FindByTaxID(ctx, req.TaxID); err == nil {
		return RegistrationResult{Success: false, Message: "A supplier with this tax ID already exists"}
	}
	if _, err := s.supplierRepo.FindByRegistrationNumber(ctx, req.RegistrationNumber); err == nil {
		return RegistrationResult{Success: false, Message: "A supplier with this registration number already exists"}
	}

	var categories []model.Category
	if len(req.CategoryIDs) > 0 {
		categoryIDs, err := parseCategoryIDs(req.CategoryIDs)
		if err != nil {
			return RegistrationResult{Success: false, Message: "One or more category ids are invalid"}
		}
		categories, err = s.categoryRepo.FindByIDs(ctx, categoryIDs)
		if err != nil {
			return RegistrationResult{Success: false, Message: "One or more category ids are invalid"}
		}
	}

	supplier := &model.Supplier{
		Name:               req.Name,
		Email:              req.Email,
		TaxID:              req.TaxID,
		RegistrationNumber: req.RegistrationNumber,
		Phone:              req.Phone,
		Address:            req.Address,
		ContactPerson:      req.ContactPerson,
		Notes:              req.Notes,
		Status:             model.SupplierStatusPending,
		CreatedByID:        nil, // anonymous registration has no creator
		Categories:         categories,
	}

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		log.Printf("registration: failed to create supplier: %v", err)
		return RegistrationResult{Success: false, Message: "Registration could not be completed, please try again later"}
	}

	// Anonymous actor: audit row carries a nil user id.
	s.recordAudit(ctx, nil, model.ActionRegisterSupplier, supplier.ID, nil, supplier)
	s.invalidate(ctx)

	if err := s.notifyManagers(ctx, model.NotificationSupplierCreated, "New supplier registration",
		"Supplier \""+supplier.Name+"\" registered via the public portal and is awaiting review.", supplier.ID); err != nil {
		// The supplier row exists and the caches are already invalidated;
		// the portal caller still gets a success.
		log.Printf("registration: notification dispatch failed for supplier %s: %v", supplier.ID, err)
	}

	res := toSupplierResponse(*supplier)
	return RegistrationResult{
		Success:  true,
		Message:  "Registration submitted successfully. Your application is pending review.",
		Supplier: &res,
	}
}
