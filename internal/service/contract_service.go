package service

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateContractRequest struct {
	SupplierID  string `json:"supplier_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" binding:"required"` // RFC 3339 date
	EndDate     string `json:"end_date" binding:"required"`
	Value       string `json:"value" binding:"required"` // decimal string
	Terms       string `json:"terms"`
}

type UpdateContractRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Value       *string `json:"value"`
	Terms       *string `json:"terms"`
	Status      *string `json:"status"`
}

type ContractResponse struct {
	ID             string  `json:"id"`
	ContractNumber string  `json:"contract_number"`
	SupplierID     string  `json:"supplier_id"`
	SupplierName   string  `json:"supplier_name,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Value          string  `json:"value"`
	Terms          string  `json:"terms"`
	CreatedByID    *string `json:"created_by_id"`
	ApprovedByID   *string `json:"approved_by_id"`
	ApprovedAt     *string `json:"approved_at"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type ContractListResult struct {
	Items []ContractResponse `json:"items"`
	Total int64              `json:"total"`
}

var validContractStatuses = map[string]bool{
	model.ContractStatusDraft:           true,
	model.ContractStatusPendingApproval: true,
	model.ContractStatusApproved:        true,
	model.ContractStatusActive:          true,
	model.ContractStatusRejected:        true,
	model.ContractStatusExpired:         true,
	model.ContractStatusTerminated:      true,
}

// --- Interface ---

type ContractService interface {
	CreateContract(ctx context.Context, principal *auth.Principal, req CreateContractRequest) (ContractResponse, error)
	GetContract(ctx context.Context, principal *auth.Principal, id string) (ContractResponse, error)
	ListContracts(ctx context.Context, principal *auth.Principal, status, supplierID string, page, limit int) ([]ContractResponse, int64, error)
	UpdateContract(ctx context.Context, principal *auth.Principal, id string, req UpdateContractRequest) (ContractResponse, error)
	ApproveContract(ctx context.Context, principal *auth.Principal, id string) (ContractResponse, error)
	RejectContract(ctx context.Context, principal *auth.Principal, id string, reason string) (ContractResponse, error)
	DeleteContract(ctx context.Context, principal *auth.Principal, id string) error
}

type contractService struct {
	lifecycleCore
	contractRepo repository.ContractRepository
	supplierRepo repository.SupplierRepository
	permService  PermissionService
	txManager    repository.TransactionManager
}

func NewContractService(
	contractRepo repository.ContractRepository,
	supplierRepo repository.SupplierRepository,
	permService PermissionService,
	auditService AuditService,
	notificationService NotificationService,
	cacheStore *cache.Store,
	events EventPublisher,
	txManager repository.TransactionManager,
) ContractService {
	return &contractService{
		lifecycleCore: lifecycleCore{
			desc:     contractLifecycle,
			audit:    auditService,
			notifier: notificationService,
			cache:    cacheStore,
			events:   events,
		},
		contractRepo: contractRepo,
		supplierRepo: supplierRepo,
		permService:  permService,
		txManager:    txManager,
	}
}

// --- Validation helpers ---

func parseContractDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept plain dates too
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, ErrBadInput("invalid " + field + ": expected RFC 3339 or YYYY-MM-DD")
		}
	}
	return t, nil
}

func validateContractDates(start, end time.Time) error {
	if !end.After(start) {
		return ErrBadInput("end_date must be after start_date")
	}
	return nil
}

// --- CRUD ---

func (s *contractService) CreateContract(ctx context.Context, principal *auth.Principal, req CreateContractRequest) (ContractResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "contracts.create"); err != nil {
		return ContractResponse{}, err
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return ContractResponse{}, ErrBadInput("invalid supplier_id")
	}
	startDate, err := parseContractDate(req.StartDate, "start_date")
	if err != nil {
		return ContractResponse{}, err
	}
	endDate, err := parseContractDate(req.EndDate, "end_date")
	if err != nil {
		return ContractResponse{}, err
	}
	if err := validateContractDates(startDate, endDate); err != nil {
		return ContractResponse{}, err
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return ContractResponse{}, ErrBadInput("invalid value: must be a decimal string")
	}
	if value.IsNegative() {
		return ContractResponse{}, ErrBadInput("value cannot be negative")
	}

	if _, err := s.supplierRepo.FindByID(ctx, supplierID); err != nil {
		return ContractResponse{}, asLoadError(err, model.EntityTypeSupplier, req.SupplierID)
	}

	createdBy := principal.ID
	contract := &model.Contract{
		SupplierID:  supplierID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.ContractStatusDraft,
		StartDate:   startDate,
		EndDate:     endDate,
		Value:       value,
		Terms:       req.Terms,
		CreatedByID: &createdBy,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.contractRepo.NextContractNumber(txCtx)
		if err != nil {
			return ErrInternal("failed to generate contract number", err)
		}
		contract.ContractNumber = number
		if err := s.contractRepo.Create(txCtx, contract); err != nil {
			return ErrInternal("failed to create contract", err)
		}
		return nil
	})
	if err != nil {
		return ContractResponse{}, err
	}

	s.recordAudit(ctx, principal, model.ActionCreateContract, contract.ID, nil, contract)
	s.invalidate(ctx)

	if err := s.notifyManagers(ctx, model.NotificationContractCreated, "New contract drafted",
		fmt.Sprintf("Contract %s (%q) was created and may need approval.", contract.ContractNumber, contract.Title), contract.ID); err != nil {
		return ContractResponse{}, err
	}

	return toContractResponse(*contract), nil
}

func (s *contractService) GetContract(ctx context.Context, principal *auth.Principal, id string) (ContractResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "contracts.read"); err != nil {
		return ContractResponse{}, err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return ContractResponse{}, ErrBadInput("invalid contract id")
	}

	key := cache.EntityKey(s.desc.cachePrefix, id)
	var cached ContractResponse
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	contract, err := s.contractRepo.FindByID(ctx, cid)
	if err != nil {
		return ContractResponse{}, asLoadError(err, model.EntityTypeContract, id)
	}

	res := toContractResponse(*contract)
	s.cache.Set(ctx, key, res, cache.EntityTTL)
	return res, nil
}

func (s *contractService) ListContracts(ctx context.Context, principal *auth.Principal, status, supplierID string, page, limit int) ([]ContractResponse, int64, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "contracts.read"); err != nil {
		return nil, 0, err
	}

	key := cache.ListKey(s.desc.cachePrefix, page, limit, map[string]string{"status": status, "supplier_id": supplierID})
	var cached ContractListResult
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, cached.Total, nil
	}

	contracts, total, err := s.contractRepo.List(ctx, status, supplierID, page, limit)
	if err != nil {
		return nil, 0, ErrInternal("failed to fetch contracts", err)
	}

	res := make([]ContractResponse, 0, len(contracts))
	for _, c := range contracts {
		res = append(res, toContractResponse(c))
	}

	s.cache.Set(ctx, key, ContractListResult{Items: res, Total: total}, cache.ListTTL)
	return res, total, nil
}

func (s *contractService) UpdateContract(ctx context.Context, principal *auth.Principal, id string, req UpdateContractRequest) (ContractResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "contracts.update"); err != nil {
		return ContractResponse{}, err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return ContractResponse{}, ErrBadInput("invalid contract id")
	}

	contract, err := s.contractRepo.FindByID(ctx, cid)
	if err != nil {
		return ContractResponse{}, asLoadError(err, model.EntityTypeContract, id)
	}
	if err := s.permService.CheckOwnership(principal, contract.CreatedByID, "contracts.update"); err != nil {
		return ContractResponse{}, err
	}

	old := *contract
	datesTouched := false

	if req.Title != nil {
		if *req.Title == "" {
			return ContractResponse{}, ErrBadInput("title cannot be empty")
		}
		contract.Title = *req.Title
	}
	if req.Description != nil {
		contract.Description = *req.Description
	}
	if req.StartDate != nil {
		start, err := parseContractDate(*req.StartDate, "start_date")
		if err != nil {
			return ContractResponse{}, err
		}
		contract.StartDate = start
		datesTouched = true
	}
	if req.EndDate != nil {
		end, err := parseContractDate(*req.EndDate, "end_date")
		if err != nil {
			return ContractResponse{}, err
		}
		contract.EndDate = end
		datesTouched = true
	}
	if datesTouched {
		if err := validateContractDates(contract.StartDate, contract.EndDate); err != nil {
			return ContractResponse{}, err
		}
	}
	if req.Value != nil {
		value, err := decimal.NewFromString(*req.Value)
		if err != nil {
			return ContractResponse{}, ErrBadInput("invalid value: must be a decimal string")
		}
		if value.IsNegative() {
			return ContractResponse{}, ErrBadInput("value cannot be negative")
		}
		contract.Value = value
	}
	if req.Terms != nil {
		contract.Terms = *req.Terms
	}
	if req.Status != nil {
		if !validContractStatuses[*req.Status] {
			return ContractResponse{}, ErrBadInput("invalid contract status: " + *req.Status)
		}
		contract.Status = *req.Status
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return ContractResponse{}, ErrInternal("failed to update contract", err)
	}

	s.recordAudit(ctx, principal, model.ActionUpdateContract, contract.ID, old, contract)
	s.invalidate(ctx, contract.ID)

	if old.Status != contract.Status {
		s.publishStatus(contract.ID, contract.Status)
		if err := s.notifyUser(ctx, contract.CreatedByID, model.NotificationStatusChanged, "Contract status changed",
			fmt.Sprintf("Contract %s is now %s.", contract.ContractNumber, contract.Status), contract.ID); err != nil {
			return ContractResponse{}, err
		}
	}

	return toContractResponse(*contract), nil
}

// --- Lifecycle transitions ---

// ApproveContract activates the contract directly: approval and activation
// are a single transition here, so the terminal success state is ACTIVE, not
// APPROVED.
func (s *contractService) ApproveContract(ctx context.Context, principal *auth.Principal, id string) (ContractResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "contracts.approve"); err != nil {
		return ContractResponse{}, err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return ContractResponse{}, ErrBadInput("invalid contract id")
	}

	contract, err := s.contractRepo.FindByID(ctx, cid)
	if err != nil {
		return ContractResponse{}, asLoadError(err, model.EntityTypeContract, id)
	}
	if contract.Status != model.ContractStatusDraft && contract.Status != model.ContractStatusPendingApproval {
		return ContractResponse{}, ErrBadInput("contract is already " + contract.Status)
	}

	old := *contract
	expected := contract.Status
	now := time.Now()
	approvedBy := principal.ID
	contract.Status = model.ContractStatusActive
	contract.ApprovedByID = &approvedBy
	contract.ApprovedAt = &now

	if err := s.contractRepo.UpdateIfStatus(ctx, contract, expected); err != nil {
		if err == repository.ErrStatusConflict {
			return ContractResponse{}, ErrBadInput("contract status was changed by another request")
		}
		return ContractResponse{}, ErrInternal("failed to approve contract", err)
	}

	s.recordAudit(ctx, principal, model.ActionApproveContract, contract.ID, old, contract)
	s.invalidate(ctx, contract.ID)
	s.publishStatus(contract.ID, contract.Status)

	if err := s.notifyUser(ctx, contract.CreatedByID, model.NotificationContractApproved, "Contract approved",
		fmt.Sprintf("Contract %s (%q) has been approved and is now active.", contract.ContractNumber, contract.Title), contract.ID); err != nil {
		return ContractResponse{}, err
	}

	return toContractResponse(*contract), nil
}

func (s *contractService) RejectContract(ctx context.Context, principal *auth.Principal, id string, reason string) (ContractResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "contracts.reject"); err != nil {
		return ContractResponse{}, err
	}
	if reason == "" {
		return ContractResponse{}, ErrBadInput("rejection reason is required")
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return ContractResponse{}, ErrBadInput("invalid contract id")
	}

	contract, err := s.contractRepo.FindByID(ctx, cid)
	if err != nil {
		return ContractResponse{}, asLoadError(err, model.EntityTypeContract, id)
	}

	old := *contract
	expected := contract.Status
	now := time.Now()
	rejectedBy := principal.ID
	contract.Status = model.ContractStatusRejected
	contract.Terms = appendRejectionNote(contract.Terms, reason)
	contract.ApprovedByID = &rejectedBy
	contract.ApprovedAt = &now

	if err := s.contractRepo.UpdateIfStatus(ctx, contract, expected); err != nil {
		if err == repository.ErrStatusConflict {
			return ContractResponse{}, ErrBadInput("contract status was changed by another request")
		}
		return ContractResponse{}, ErrInternal("failed to reject contract", err)
	}

	s.recordAudit(ctx, principal, model.ActionRejectContract, contract.ID, old, map[string]interface{}{
		"status": contract.Status,
		"reason": reason,
	})
	s.invalidate(ctx, contract.ID)
	s.publishStatus(contract.ID, contract.Status)

	if err := s.notifyUser(ctx, contract.CreatedByID, model.NotificationContractRejected, "Contract rejected",
		fmt.Sprintf("Contract %s has been rejected: %s", contract.ContractNumber, reason), contract.ID); err != nil {
		return ContractResponse{}, err
	}

	return toContractResponse(*contract), nil
}

func (s *contractService) DeleteContract(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "contracts.delete"); err != nil {
		return err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return ErrBadInput("invalid contract id")
	}

	contract, err := s.contractRepo.FindByID(ctx, cid)
	if err != nil {
		return asLoadError(err, model.EntityTypeContract, id)
	}

	// Specialists may only delete their own drafts.
	if principal.Role == model.RoleProcurementSpecialist {
		if err := s.permService.CheckOwnership(principal, contract.CreatedByID, "contracts.delete"); err != nil {
			return err
		}
		if contract.Status != model.ContractStatusDraft {
			return ErrForbidden("contracts.delete", approverRoles...)
		}
	}

	if err := s.contractRepo.Delete(ctx, cid); err != nil {
		return ErrInternal("failed to delete contract", err)
	}

	s.recordAudit(ctx, principal, model.ActionDeleteContract, cid, contract, nil)
	s.invalidate(ctx, cid)
	return nil
}

// --- Response mappers ---

func toContractResponse(c model.Contract) ContractResponse {
	res := ContractResponse{
		ID:             c.ID.String(),
		ContractNumber: c.ContractNumber,
		SupplierID:     c.SupplierID.String(),
		Title:          c.Title,
		Description:    c.Description,
		Status:         c.Status,
		StartDate:      c.StartDate.Format(time.RFC3339),
		EndDate:        c.EndDate.Format(time.RFC3339),
		Value:          c.Value.StringFixed(4),
		Terms:          c.Terms,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
	if c.Supplier != nil {
		res.SupplierName = c.Supplier.Name
	}
	if c.CreatedByID != nil {
		v := c.CreatedByID.String()
		res.CreatedByID = &v
	}
	if c.ApprovedByID != nil {
		v := c.ApprovedByID.String()
		res.ApprovedByID = &v
	}
	if c.ApprovedAt != nil {
		v := c.ApprovedAt.Format(time.RFC3339)
		res.ApprovedAt = &v
	}
	return res
}
