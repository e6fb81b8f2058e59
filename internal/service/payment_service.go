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

type CreatePaymentRequest struct {
	SupplierID  string  `json:"supplier_id" binding:"required"`
	ContractID  *string `json:"contract_id"`
	Amount      string  `json:"amount" binding:"required"`
	Description string  `json:"description"`
	Notes       string  `json:"notes"`
}

type UpdatePaymentRequest struct {
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

type PaymentResponse struct {
	ID            string  `json:"id"`
	PaymentNumber string  `json:"payment_number"`
	SupplierID    string  `json:"supplier_id"`
	SupplierName  string  `json:"supplier_name,omitempty"`
	ContractID    *string `json:"contract_id"`
	Amount        string  `json:"amount"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Notes         string  `json:"notes"`
	RequestedByID *string `json:"requested_by_id"`
	ApprovedByID  *string `json:"approved_by_id"`
	ApprovedAt    *string `json:"approved_at"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type PaymentListResult struct {
	Items []PaymentResponse `json:"items"`
	Total int64             `json:"total"`
}

// --- Interface ---

type PaymentService interface {
	CreatePayment(ctx context.Context, principal *auth.Principal, req CreatePaymentRequest) (PaymentResponse, error)
	GetPayment(ctx context.Context, principal *auth.Principal, id string) (PaymentResponse, error)
	ListPayments(ctx context.Context, principal *auth.Principal, status, supplierID string, page, limit int) ([]PaymentResponse, int64, error)
	UpdatePayment(ctx context.Context, principal *auth.Principal, id string, req UpdatePaymentRequest) (PaymentResponse, error)
	ApprovePayment(ctx context.Context, principal *auth.Principal, id string) (PaymentResponse, error)
	RejectPayment(ctx context.Context, principal *auth.Principal, id string, reason string) (PaymentResponse, error)
	MarkPaymentPaid(ctx context.Context, principal *auth.Principal, id string) (PaymentResponse, error)
	DeletePayment(ctx context.Context, principal *auth.Principal, id string) error
}

type paymentService struct {
	lifecycleCore
	paymentRepo  repository.PaymentRepository
	supplierRepo repository.SupplierRepository
	contractRepo repository.ContractRepository
	permService  PermissionService
	txManager    repository.TransactionManager
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	supplierRepo repository.SupplierRepository,
	contractRepo repository.ContractRepository,
	permService PermissionService,
	auditService AuditService,
	notificationService NotificationService,
	cacheStore *cache.Store,
	events EventPublisher,
	txManager repository.TransactionManager,
) PaymentService {
	return &paymentService{
		lifecycleCore: lifecycleCore{
			desc:     paymentLifecycle,
			audit:    auditService,
			notifier: notificationService,
			cache:    cacheStore,
			events:   events,
		},
		paymentRepo:  paymentRepo,
		supplierRepo: supplierRepo,
		contractRepo: contractRepo,
		permService:  permService,
		txManager:    txManager,
	}
}

func parsePaymentAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrBadInput("invalid amount: must be a decimal string")
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, ErrBadInput("amount must be positive")
	}
	return amount, nil
}

// --- CRUD ---

func (s *paymentService) CreatePayment(ctx context.Context, principal *auth.Principal, req CreatePaymentRequest) (PaymentResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "payments.create"); err != nil {
		return PaymentResponse{}, err
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return PaymentResponse{}, ErrBadInput("invalid supplier_id")
	}
	amount, err := parsePaymentAmount(req.Amount)
	if err != nil {
		return PaymentResponse{}, err
	}

	if _, err := s.supplierRepo.FindByID(ctx, supplierID); err != nil {
		return PaymentResponse{}, asLoadError(err, model.EntityTypeSupplier, req.SupplierID)
	}

	var contractID *uuid.UUID
	if req.ContractID != nil && *req.ContractID != "" {
		cid, err := uuid.Parse(*req.ContractID)
		if err != nil {
			return PaymentResponse{}, ErrBadInput("invalid contract_id")
		}
		contract, err := s.contractRepo.FindByID(ctx, cid)
		if err != nil {
			return PaymentResponse{}, asLoadError(err, model.EntityTypeContract, *req.ContractID)
		}
		if contract.SupplierID != supplierID {
			return PaymentResponse{}, ErrBadInput("contract does not belong to the specified supplier")
		}
		contractID = &cid
	}

	requestedBy := principal.ID
	payment := &model.Payment{
		SupplierID:    supplierID,
		ContractID:    contractID,
		Amount:        amount,
		Description:   req.Description,
		Status:        model.PaymentStatusPending,
		Notes:         req.Notes,
		RequestedByID: &requestedBy,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.paymentRepo.NextPaymentNumber(txCtx)
		if err != nil {
			return ErrInternal("failed to generate payment number", err)
		}
		payment.PaymentNumber = number
		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return ErrInternal("failed to create payment", err)
		}
		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	s.recordAudit(ctx, principal, model.ActionCreatePayment, payment.ID, nil, payment)
	s.invalidate(ctx)

	if err := s.notifyManagers(ctx, model.NotificationPaymentCreated, "New payment request",
		fmt.Sprintf("Payment %s for %s awaits approval.", payment.PaymentNumber, payment.Amount.StringFixed(2)), payment.ID); err != nil {
		return PaymentResponse{}, err
	}

	return toPaymentResponse(*payment), nil
}

func (s *paymentService) GetPayment(ctx context.Context, principal *auth.Principal, id string) (PaymentResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "payments.read"); err != nil {
		return PaymentResponse{}, err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, ErrBadInput("invalid payment id")
	}

	key := cache.EntityKey(s.desc.cachePrefix, id)
	var cached PaymentResponse
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	payment, err := s.paymentRepo.FindByID(ctx, pid)
	if err != nil {
		return PaymentResponse{}, asLoadError(err, model.EntityTypePayment, id)
	}

	res := toPaymentResponse(*payment)
	s.cache.Set(ctx, key, res, cache.EntityTTL)
	return res, nil
}

func (s *paymentService) ListPayments(ctx context.Context, principal *auth.Principal, status, supplierID string, page, limit int) ([]PaymentResponse, int64, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "payments.read"); err != nil {
		return nil, 0, err
	}

	key := cache.ListKey(s.desc.cachePrefix, page, limit, map[string]string{"status": status, "supplier_id": supplierID})
	var cached PaymentListResult
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, cached.Total, nil
	}

	payments, total, err := s.paymentRepo.List(ctx, status, supplierID, page, limit)
	if err != nil {
		return nil, 0, ErrInternal("failed to fetch payments", err)
	}

	res := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		res = append(res, toPaymentResponse(p))
	}

	s.cache.Set(ctx, key, PaymentListResult{Items: res, Total: total}, cache.ListTTL)
	return res, total, nil
}

func (s *paymentService) UpdatePayment(ctx context.Context, principal *auth.Principal, id string, req UpdatePaymentRequest) (PaymentResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "payments.update"); err != nil {
		return PaymentResponse{}, err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, ErrBadInput("invalid payment id")
	}

	payment, err := s.paymentRepo.FindByID(ctx, pid)
	if err != nil {
		return PaymentResponse{}, asLoadError(err, model.EntityTypePayment, id)
	}
	if err := s.permService.CheckOwnership(principal, payment.RequestedByID, "payments.update"); err != nil {
		return PaymentResponse{}, err
	}
	if payment.Status != model.PaymentStatusPending {
		return PaymentResponse{}, ErrBadInput("only pending payments can be edited")
	}

	old := *payment
	if req.Amount != nil {
		amount, err := parsePaymentAmount(*req.Amount)
		if err != nil {
			return PaymentResponse{}, err
		}
		payment.Amount = amount
	}
	if req.Description != nil {
		payment.Description = *req.Description
	}
	if req.Notes != nil {
		payment.Notes = *req.Notes
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return PaymentResponse{}, ErrInternal("failed to update payment", err)
	}

	s.recordAudit(ctx, principal, model.ActionUpdatePayment, payment.ID, old, payment)
	s.invalidate(ctx, payment.ID)

	return toPaymentResponse(*payment), nil
}

// --- Lifecycle transitions ---

func (s *paymentService) ApprovePayment(ctx context.Context, principal *auth.Principal, id string) (PaymentResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "payments.approve"); err != nil {
		return PaymentResponse{}, err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, ErrBadInput("invalid payment id")
	}

	payment, err := s.paymentRepo.FindByID(ctx, pid)
	if err != nil {
		return PaymentResponse{}, asLoadError(err, model.EntityTypePayment, id)
	}
	if payment.Status != model.PaymentStatusPending {
		return PaymentResponse{}, ErrBadInput("payment is already " + payment.Status)
	}

	old := *payment
	now := time.Now()
	approvedBy := principal.ID
	payment.Status = model.PaymentStatusApproved
	payment.ApprovedByID = &approvedBy
	payment.ApprovedAt = &now

	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, model.PaymentStatusPending); err != nil {
		if err == repository.ErrStatusConflict {
			return PaymentResponse{}, ErrBadInput("payment status was changed by another request")
		}
		return PaymentResponse{}, ErrInternal("failed to approve payment", err)
	}

	s.recordAudit(ctx, principal, model.ActionApprovePayment, payment.ID, old, payment)
	s.invalidate(ctx, payment.ID)
	s.publishStatus(payment.ID, payment.Status)

	if err := s.notifyUser(ctx, payment.RequestedByID, model.NotificationPaymentApproved, "Payment approved",
		fmt.Sprintf("Payment %s for %s has been approved.", payment.PaymentNumber, payment.Amount.StringFixed(2)), payment.ID); err != nil {
		return PaymentResponse{}, err
	}

	return toPaymentResponse(*payment), nil
}

func (s *paymentService) RejectPayment(ctx context.Context, principal *auth.Principal, id string, reason string) (PaymentResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "payments.reject"); err != nil {
		return PaymentResponse{}, err
	}
	if reason == "" {
		return PaymentResponse{}, ErrBadInput("rejection reason is required")
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, ErrBadInput("invalid payment id")
	}

	payment, err := s.paymentRepo.FindByID(ctx, pid)
	if err != nil {
		return PaymentResponse{}, asLoadError(err, model.EntityTypePayment, id)
	}

	old := *payment
	expected := payment.Status
	now := time.Now()
	rejectedBy := principal.ID
	payment.Status = model.PaymentStatusRejected
	payment.Notes = appendRejectionNote(payment.Notes, reason)
	payment.ApprovedByID = &rejectedBy
	payment.ApprovedAt = &now

	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, expected); err != nil {
		if err == repository.ErrStatusConflict {
			return PaymentResponse{}, ErrBadInput("payment status was changed by another request")
		}
		return PaymentResponse{}, ErrInternal("failed to reject payment", err)
	}

	s.recordAudit(ctx, principal, model.ActionRejectPayment, payment.ID, old, map[string]interface{}{
		"status": payment.Status,
		"reason": reason,
	})
	s.invalidate(ctx, payment.ID)
	s.publishStatus(payment.ID, payment.Status)

	if err := s.notifyUser(ctx, payment.RequestedByID, model.NotificationPaymentRejected, "Payment rejected",
		fmt.Sprintf("Payment %s has been rejected: %s", payment.PaymentNumber, reason), payment.ID); err != nil {
		return PaymentResponse{}, err
	}

	return toPaymentResponse(*payment), nil
}

// MarkPaymentPaid settles an approved payment. Only APPROVED payments can
// transition to PAID.
func (s *paymentService) MarkPaymentPaid(ctx context.Context, principal *auth.Principal, id string) (PaymentResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "payments.approve"); err != nil {
		return PaymentResponse{}, err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, ErrBadInput("invalid payment id")
	}

	payment, err := s.paymentRepo.FindByID(ctx, pid)
	if err != nil {
		return PaymentResponse{}, asLoadError(err, model.EntityTypePayment, id)
	}
	if payment.Status != model.PaymentStatusApproved {
		return PaymentResponse{}, ErrBadInput("only approved payments can be marked as paid")
	}

	old := *payment
	payment.Status = model.PaymentStatusPaid

	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, model.PaymentStatusApproved); err != nil {
		if err == repository.ErrStatusConflict {
			return PaymentResponse{}, ErrBadInput("payment status was changed by another request")
		}
		return PaymentResponse{}, ErrInternal("failed to mark payment as paid", err)
	}

	s.recordAudit(ctx, principal, model.ActionMarkPaymentPaid, payment.ID, old, payment)
	s.invalidate(ctx, payment.ID)
	s.publishStatus(payment.ID, payment.Status)

	if err := s.notifyUser(ctx, payment.RequestedByID, model.NotificationPaymentPaid, "Payment completed",
		fmt.Sprintf("Payment %s for %s has been paid.", payment.PaymentNumber, payment.Amount.StringFixed(2)), payment.ID); err != nil {
		return PaymentResponse{}, err
	}

	return toPaymentResponse(*payment), nil
}

func (s *paymentService) DeletePayment(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "payments.delete"); err != nil {
		return err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return ErrBadInput("invalid payment id")
	}

	payment, err := s.paymentRepo.FindByID(ctx, pid)
	if err != nil {
		return asLoadError(err, model.EntityTypePayment, id)
	}

	// Specialists may only delete their own pending requests.
	if principal.Role == model.RoleProcurementSpecialist {
		if err := s.permService.CheckOwnership(principal, payment.RequestedByID, "payments.delete"); err != nil {
			return err
		}
		if payment.Status != model.PaymentStatusPending {
			return ErrForbidden("payments.delete", approverRoles...)
		}
	}

	if err := s.paymentRepo.Delete(ctx, pid); err != nil {
		return ErrInternal("failed to delete payment", err)
	}

	s.recordAudit(ctx, principal, model.ActionDeletePayment, pid, payment, nil)
	s.invalidate(ctx, pid)
	return nil
}

// --- Response mappers ---

func toPaymentResponse(p model.Payment) PaymentResponse {
	res := PaymentResponse{
		ID:            p.ID.String(),
		PaymentNumber: p.PaymentNumber,
		SupplierID:    p.SupplierID.String(),
		Amount:        p.Amount.StringFixed(4),
		Description:   p.Description,
		Status:        p.Status,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Supplier != nil {
		res.SupplierName = p.Supplier.Name
	}
	if p.ContractID != nil {
		v := p.ContractID.String()
		res.ContractID = &v
	}
	if p.RequestedByID != nil {
		v := p.RequestedByID.String()
		res.RequestedByID = &v
	}
	if p.ApprovedByID != nil {
		v := p.ApprovedByID.String()
		res.ApprovedByID = &v
	}
	if p.ApprovedAt != nil {
		v := p.ApprovedAt.Format(time.RFC3339)
		res.ApprovedAt = &v
	}
	return res
}
