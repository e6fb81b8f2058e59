package service

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
)

// Role sets used by the lifecycle gates. ADMIN is listed explicitly wherever
// it should act — it is never implicit.
var (
	approverRoles       = []string{model.RoleProcurementManager, model.RoleAdmin}
	allProcurementRoles = []string{model.RoleProcurementSpecialist, model.RoleProcurementManager, model.RoleAdmin}
)

// --- DTOs ---

type CreateSupplierRequest struct {
	Name               string      `json:"name" binding:"required"`
	Email              string      `json:"email" binding:"required,email"`
	TaxID              string      `json:"tax_id" binding:"required"`
	RegistrationNumber string      `json:"registration_number" binding:"required"`
	Phone              string      `json:"phone"`
	Address            string      `json:"address"`
	ContactPerson      string      `json:"contact_person"`
	BankAccountNumber  string      `json:"bank_account_number"`
	Notes              string      `json:"notes"`
	CategoryIDs        []string    `json:"category_ids"`
}

type UpdateSupplierRequest struct {
	Name              *string   `json:"name"`
	Email             *string   `json:"email"`
	Phone             *string   `json:"phone"`
	Address           *string   `json:"address"`
	ContactPerson     *string   `json:"contact_person"`
	BankAccountNumber *string   `json:"bank_account_number"`
	Notes             *string   `json:"notes"`
	CategoryIDs       *[]string `json:"category_ids"` // pointer so nil = not sent, [] = clear all
}

type RateSupplierRequest struct {
	FinancialRating     *int `json:"financial_rating"`
	QualityRating       *int `json:"quality_rating"`
	DeliveryRating      *int `json:"delivery_rating"`
	CommunicationRating *int `json:"communication_rating"`
	OverallRating       *int `json:"overall_rating"`
}

type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SupplierResponse struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	TaxID               string             `json:"tax_id"`
	RegistrationNumber  string             `json:"registration_number"`
	Phone               string             `json:"phone"`
	Address             string             `json:"address"`
	ContactPerson       string             `json:"contact_person"`
	BankAccountNumber   string             `json:"bank_account_number"`
	Status              string             `json:"status"`
	Notes               string             `json:"notes"`
	FinancialRating     *int               `json:"financial_rating"`
	QualityRating       *int               `json:"quality_rating"`
	DeliveryRating      *int               `json:"delivery_rating"`
	CommunicationRating *int               `json:"communication_rating"`
	OverallRating       *int               `json:"overall_rating"`
	CreatedByID         *string            `json:"created_by_id"`
	ApprovedByID        *string            `json:"approved_by_id"`
	ApprovedAt          *string            `json:"approved_at"`
	Categories          []CategoryResponse `json:"categories"`
	CreatedAt           string             `json:"created_at"`
	UpdatedAt           string             `json:"updated_at"`
}

type SupplierListResult struct {
	Items []SupplierResponse `json:"items"`
	Total int64              `json:"total"`
}

// --- Interface ---

type SupplierService interface {
	CreateSupplier(ctx context.Context, principal *auth.Principal, req CreateSupplierRequest) (SupplierResponse, error)
	GetSupplier(ctx context.Context, principal *auth.Principal, id string) (SupplierResponse, error)
	ListSuppliers(ctx context.Context, principal *auth.Principal, status, search string, page, limit int) ([]SupplierResponse, int64, error)
	UpdateSupplier(ctx context.Context, principal *auth.Principal, id string, req UpdateSupplierRequest) (SupplierResponse, error)
	ApproveSupplier(ctx context.Context, principal *auth.Principal, id string) (SupplierResponse, error)
	RejectSupplier(ctx context.Context, principal *auth.Principal, id string, reason string) (SupplierResponse, error)
	DeleteSupplier(ctx context.Context, principal *auth.Principal, id string) error
	RateSupplier(ctx context.Context, principal *auth.Principal, id string, req RateSupplierRequest) (SupplierResponse, error)
}

type supplierService struct {
	lifecycleCore
	supplierRepo repository.SupplierRepository
	categoryRepo repository.CategoryRepository
	permService  PermissionService
	txManager    repository.TransactionManager
}

func NewSupplierService(
	supplierRepo repository.SupplierRepository,
	categoryRepo repository.CategoryRepository,
	permService PermissionService,
	auditService AuditService,
	notificationService NotificationService,
	cacheStore *cache.Store,
	events EventPublisher,
	txManager repository.TransactionManager,
) SupplierService {
	return &supplierService{
		lifecycleCore: lifecycleCore{
			desc:     supplierLifecycle,
			audit:    auditService,
			notifier: notificationService,
			cache:    cacheStore,
			events:   events,
		},
		supplierRepo: supplierRepo,
		categoryRepo: categoryRepo,
		permService:  permService,
		txManager:    txManager,
	}
}

// --- Validation helpers ---

func validateSupplierEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrBadInput("invalid email format")
	}
	return nil
}

func parseCategoryIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrBadInput("invalid category id: " + raw)
		}
		out = append(out, id)
	}
	return out, nil
}

// --- CRUD ---

func (s *supplierService) CreateSupplier(ctx context.Context, principal *auth.Principal, req CreateSupplierRequest) (SupplierResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "suppliers.create"); err != nil {
		return SupplierResponse{}, err
	}
	if err := validateSupplierEmail(req.Email); err != nil {
		return SupplierResponse{}, err
	}
	if msg := s.duplicateMessage(ctx, req.Email, req.TaxID, req.RegistrationNumber); msg != "" {
		return SupplierResponse{}, ErrBadInput(msg)
	}

	categoryIDs, err := parseCategoryIDs(req.CategoryIDs)
	if err != nil {
		return SupplierResponse{}, err
	}
	categories, err := s.categoryRepo.FindByIDs(ctx, categoryIDs)
	if err != nil {
		return SupplierResponse{}, ErrInternal("failed to resolve categories", err)
	}

	createdBy := principal.ID
	supplier := &model.Supplier{
		Name:               req.Name,
		Email:              req.Email,
		TaxID:              req.TaxID,
		RegistrationNumber: req.RegistrationNumber,
		Phone:              req.Phone,
		Address:            req.Address,
		ContactPerson:      req.ContactPerson,
		BankAccountNumber:  req.BankAccountNumber,
		Notes:              req.Notes,
		Status:             model.SupplierStatusPending,
		CreatedByID:        &createdBy,
		Categories:         categories,
	}

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return SupplierResponse{}, ErrInternal("failed to create supplier", err)
	}

	s.recordAudit(ctx, principal, model.ActionCreateSupplier, supplier.ID, nil, supplier)
	s.invalidate(ctx)

	if err := s.notifyManagers(ctx, model.NotificationSupplierCreated, "New supplier pending approval",
		fmt.Sprintf("Supplier %q was created and is awaiting approval.", supplier.Name), supplier.ID); err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(*supplier), nil
}

// duplicateMessage checks each natural key independently so the caller gets
// a distinct rejection per field, not a generic conflict.
func (s *supplierService) duplicateMessage(ctx context.Context, email, taxID, regNo string) string {
	if _, err := s.supplierRepo.FindByEmail(ctx, email); err == nil {
		return "A supplier with this email already exists"
	}
	if _, err := s.supplierRepo.FindByTaxID(ctx, taxID); err == nil {
		return "A supplier with this tax ID already exists"
	}
	if _, err := s.supplierRepo.FindByRegistrationNumber(ctx, regNo); err == nil {
		return "A supplier with this registration number already exists"
	}
	return ""
}

func (s *supplierService) GetSupplier(ctx context.Context, principal *auth.Principal, id string) (SupplierResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "suppliers.read"); err != nil {
		return SupplierResponse{}, err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, ErrBadInput("invalid supplier id")
	}

	key := cache.EntityKey(s.desc.cachePrefix, id)
	var cached SupplierResponse
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		return SupplierResponse{}, asLoadError(err, model.EntityTypeSupplier, id)
	}

	res := toSupplierResponse(*supplier)
	s.cache.Set(ctx, key, res, cache.EntityTTL)
	return res, nil
}

func (s *supplierService) ListSuppliers(ctx context.Context, principal *auth.Principal, status, search string, page, limit int) ([]SupplierResponse, int64, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "suppliers.read"); err != nil {
		return nil, 0, err
	}

	key := cache.ListKey(s.desc.cachePrefix, page, limit, map[string]string{"status": status, "search": search})
	var cached SupplierListResult
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, cached.Total, nil
	}

	suppliers, total, err := s.supplierRepo.List(ctx, status, search, page, limit)
	if err != nil {
		return nil, 0, ErrInternal("failed to fetch suppliers", err)
	}

	res := make([]SupplierResponse, 0, len(suppliers))
	for _, sup := range suppliers {
		res = append(res, toSupplierResponse(sup))
	}

	s.cache.Set(ctx, key, SupplierListResult{Items: res, Total: total}, cache.ListTTL)
	return res, total, nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, principal *auth.Principal, id string, req UpdateSupplierRequest) (SupplierResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "suppliers.update"); err != nil {
		return SupplierResponse{}, err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, ErrBadInput("invalid supplier id")
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		return SupplierResponse{}, asLoadError(err, model.EntityTypeSupplier, id)
	}
	if err := s.permService.CheckOwnership(principal, supplier.CreatedByID, "suppliers.update"); err != nil {
		return SupplierResponse{}, err
	}

	old := *supplier

	if req.Name != nil {
		if *req.Name == "" {
			return SupplierResponse{}, ErrBadInput("name cannot be empty")
		}
		supplier.Name = *req.Name
	}
	if req.Email != nil {
		if err := validateSupplierEmail(*req.Email); err != nil {
			return SupplierResponse{}, err
		}
		supplier.Email = *req.Email
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.BankAccountNumber != nil {
		supplier.BankAccountNumber = *req.BankAccountNumber
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.Update(txCtx, supplier); err != nil {
			return ErrInternal("failed to update supplier", err)
		}
		if req.CategoryIDs != nil {
			categoryIDs, err := parseCategoryIDs(*req.CategoryIDs)
			if err != nil {
				return err
			}
			categories, err := s.categoryRepo.FindByIDs(txCtx, categoryIDs)
			if err != nil {
				return ErrInternal("failed to resolve categories", err)
			}
			if err := s.supplierRepo.ReplaceCategories(txCtx, supplier, categories); err != nil {
				return ErrInternal("failed to update supplier categories", err)
			}
			supplier.Categories = categories
		}
		return nil
	})
	if err != nil {
		return SupplierResponse{}, err
	}

	s.recordAudit(ctx, principal, model.ActionUpdateSupplier, supplier.ID, old, supplier)
	s.invalidate(ctx, supplier.ID)

	return toSupplierResponse(*supplier), nil
}

// --- Lifecycle transitions ---

func (s *supplierService) ApproveSupplier(ctx context.Context, principal *auth.Principal, id string) (SupplierResponse, error) {
	// Approval authority is role-based, not ownership-based.
	if err := s.permService.CheckRole(principal, approverRoles, "suppliers.approve"); err != nil {
		return SupplierResponse{}, err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, ErrBadInput("invalid supplier id")
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		return SupplierResponse{}, asLoadError(err, model.EntityTypeSupplier, id)
	}
	if supplier.Status != model.SupplierStatusPending {
		return SupplierResponse{}, ErrBadInput("supplier is already " + supplier.Status)
	}

	old := *supplier
	now := time.Now()
	approvedBy := principal.ID
	supplier.Status = model.SupplierStatusApproved
	supplier.ApprovedByID = &approvedBy
	supplier.ApprovedAt = &now

	if err := s.supplierRepo.UpdateIfStatus(ctx, supplier, model.SupplierStatusPending); err != nil {
		if err == repository.ErrStatusConflict {
			return SupplierResponse{}, ErrBadInput("supplier status was changed by another request")
		}
		return SupplierResponse{}, ErrInternal("failed to approve supplier", err)
	}

	s.recordAudit(ctx, principal, model.ActionApproveSupplier, supplier.ID, old, supplier)
	s.invalidate(ctx, supplier.ID)
	s.publishStatus(supplier.ID, supplier.Status)

	if err := s.notifyUser(ctx, supplier.CreatedByID, model.NotificationSupplierApproved, "Supplier approved",
		fmt.Sprintf("Supplier %q has been approved.", supplier.Name), supplier.ID); err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(*supplier), nil
}

func (s *supplierService) RejectSupplier(ctx context.Context, principal *auth.Principal, id string, reason string) (SupplierResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "suppliers.reject"); err != nil {
		return SupplierResponse{}, err
	}
	if reason == "" {
		return SupplierResponse{}, ErrBadInput("rejection reason is required")
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, ErrBadInput("invalid supplier id")
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		return SupplierResponse{}, asLoadError(err, model.EntityTypeSupplier, id)
	}

	old := *supplier
	expected := supplier.Status
	now := time.Now()
	rejectedBy := principal.ID
	supplier.Status = model.SupplierStatusRejected
	supplier.Notes = appendRejectionNote(supplier.Notes, reason)
	supplier.ApprovedByID = &rejectedBy
	supplier.ApprovedAt = &now

	if err := s.supplierRepo.UpdateIfStatus(ctx, supplier, expected); err != nil {
		if err == repository.ErrStatusConflict {
			return SupplierResponse{}, ErrBadInput("supplier status was changed by another request")
		}
		return SupplierResponse{}, ErrInternal("failed to reject supplier", err)
	}

	s.recordAudit(ctx, principal, model.ActionRejectSupplier, supplier.ID, old, map[string]interface{}{
		"status": supplier.Status,
		"reason": reason,
	})
	s.invalidate(ctx, supplier.ID)
	s.publishStatus(supplier.ID, supplier.Status)

	if err := s.notifyUser(ctx, supplier.CreatedByID, model.NotificationSupplierRejected, "Supplier rejected",
		fmt.Sprintf("Supplier %q has been rejected: %s", supplier.Name, reason), supplier.ID); err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(*supplier), nil
}

func (s *supplierService) DeleteSupplier(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "suppliers.delete"); err != nil {
		return err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return ErrBadInput("invalid supplier id")
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		return asLoadError(err, model.EntityTypeSupplier, id)
	}

	// Specialists may only delete their own still-pending suppliers.
	if principal.Role == model.RoleProcurementSpecialist {
		if err := s.permService.CheckOwnership(principal, supplier.CreatedByID, "suppliers.delete"); err != nil {
			return err
		}
		if supplier.Status != model.SupplierStatusPending {
			return ErrForbidden("suppliers.delete", approverRoles...)
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.DeleteCategoryLinks(txCtx, sid); err != nil {
			return ErrInternal("failed to delete supplier category links", err)
		}
		if err := s.supplierRepo.Delete(txCtx, sid); err != nil {
			return ErrInternal("failed to delete supplier", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, principal, model.ActionDeleteSupplier, sid, supplier, nil)
	s.invalidate(ctx, sid)
	return nil
}

// RateSupplier records organizational ratings. Rating is a shared judgment,
// so any authenticated procurement role may rate — no ownership restriction.
func (s *supplierService) RateSupplier(ctx context.Context, principal *auth.Principal, id string, req RateSupplierRequest) (SupplierResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "suppliers.rate"); err != nil {
		return SupplierResponse{}, err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, ErrBadInput("invalid supplier id")
	}

	provided := []*int{req.FinancialRating, req.QualityRating, req.DeliveryRating, req.CommunicationRating, req.OverallRating}
	names := []string{"financial_rating", "quality_rating", "delivery_rating", "communication_rating", "overall_rating"}
	for i, r := range provided {
		if r != nil && (*r < 1 || *r > 5) {
			return SupplierResponse{}, ErrBadInput(names[i] + " must be between 1 and 5")
		}
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		return SupplierResponse{}, asLoadError(err, model.EntityTypeSupplier, id)
	}

	old := *supplier

	if req.FinancialRating != nil {
		supplier.FinancialRating = req.FinancialRating
	}
	if req.QualityRating != nil {
		supplier.QualityRating = req.QualityRating
	}
	if req.DeliveryRating != nil {
		supplier.DeliveryRating = req.DeliveryRating
	}
	if req.CommunicationRating != nil {
		supplier.CommunicationRating = req.CommunicationRating
	}
	if req.OverallRating != nil {
		supplier.OverallRating = req.OverallRating
	} else if overall := roundedMeanRating(req.FinancialRating, req.QualityRating, req.DeliveryRating, req.CommunicationRating); overall != nil {
		supplier.OverallRating = overall
	}

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		return SupplierResponse{}, ErrInternal("failed to rate supplier", err)
	}

	s.recordAudit(ctx, principal, model.ActionRateSupplier, supplier.ID, old, supplier)
	s.invalidate(ctx, supplier.ID)

	return toSupplierResponse(*supplier), nil
}

// roundedMeanRating computes the rounded mean of the provided component
// ratings, or nil when none were provided.
func roundedMeanRating(ratings ...*int) *int {
	sum, count := 0, 0
	for _, r := range ratings {
		if r != nil {
			sum += *r
			count++
		}
	}
	if count == 0 {
		return nil
	}
	overall := int(math.Round(float64(sum) / float64(count)))
	return &overall
}

// --- Response mappers ---

func toCategoryResponses(categories []model.Category) []CategoryResponse {
	res := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, CategoryResponse{
			ID:          c.ID.String(),
			Name:        c.Name,
			Description: c.Description,
		})
	}
	return res
}

func toSupplierResponse(s model.Supplier) SupplierResponse {
	res := SupplierResponse{
		ID:                  s.ID.String(),
		Name:                s.Name,
		Email:               s.Email,
		TaxID:               s.TaxID,
		RegistrationNumber:  s.RegistrationNumber,
		Phone:               s.Phone,
		Address:             s.Address,
		ContactPerson:       s.ContactPerson,
		BankAccountNumber:   s.BankAccountNumber,
		Status:              s.Status,
		Notes:               s.Notes,
		FinancialRating:     s.FinancialRating,
		QualityRating:       s.QualityRating,
		DeliveryRating:      s.DeliveryRating,
		CommunicationRating: s.CommunicationRating,
		OverallRating:       s.OverallRating,
		Categories:          toCategoryResponses(s.Categories),
		CreatedAt:           s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           s.UpdatedAt.Format(time.RFC3339),
	}
	if s.CreatedByID != nil {
		v := s.CreatedByID.String()
		res.CreatedByID = &v
	}
	if s.ApprovedByID != nil {
		v := s.ApprovedByID.String()
		res.ApprovedByID = &v
	}
	if s.ApprovedAt != nil {
		v := s.ApprovedAt.Format(time.RFC3339)
		res.ApprovedAt = &v
	}
	return res
}
