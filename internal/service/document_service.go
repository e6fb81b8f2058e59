package service

import (
	"context"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	FileName   string  `json:"file_name" binding:"required"`
	FilePath   string  `json:"file_path" binding:"required"`
	FileSize   int64   `json:"file_size"`
	MimeType   string  `json:"mime_type"`
	SupplierID *string `json:"supplier_id"`
	ContractID *string `json:"contract_id"`
	PaymentID  *string `json:"payment_id"`
}

type DocumentResponse struct {
	ID           string  `json:"id"`
	FileName     string  `json:"file_name"`
	FilePath     string  `json:"file_path"`
	FileSize     int64   `json:"file_size"`
	MimeType     string  `json:"mime_type"`
	SupplierID   *string `json:"supplier_id"`
	ContractID   *string `json:"contract_id"`
	PaymentID    *string `json:"payment_id"`
	UploadedByID *string `json:"uploaded_by_id"`
	CreatedAt    string  `json:"created_at"`
}

type DocumentService interface {
	UploadDocument(ctx context.Context, principal *auth.Principal, req CreateDocumentRequest) (DocumentResponse, error)
	GetDocument(ctx context.Context, principal *auth.Principal, id string) (DocumentResponse, error)
	ListDocuments(ctx context.Context, principal *auth.Principal, supplierID, contractID, paymentID string) ([]DocumentResponse, error)
	DeleteDocument(ctx context.Context, principal *auth.Principal, id string) error
}

type documentService struct {
	documentRepo repository.DocumentRepository
	supplierRepo repository.SupplierRepository
	contractRepo repository.ContractRepository
	paymentRepo  repository.PaymentRepository
	permService  PermissionService
	audit        AuditService
	cache        *cache.Store
}

func NewDocumentService(
	documentRepo repository.DocumentRepository,
	supplierRepo repository.SupplierRepository,
	contractRepo repository.ContractRepository,
	paymentRepo repository.PaymentRepository,
	permService PermissionService,
	audit AuditService,
	cacheStore *cache.Store,
) DocumentService {
	return &documentService{
		documentRepo: documentRepo,
		supplierRepo: supplierRepo,
		contractRepo: contractRepo,
		paymentRepo:  paymentRepo,
		permService:  permService,
		audit:        audit,
		cache:        cacheStore,
	}
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, ErrBadInput("invalid " + field)
	}
	return &id, nil
}

func (s *documentService) UploadDocument(ctx context.Context, principal *auth.Principal, req CreateDocumentRequest) (DocumentResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "documents.create"); err != nil {
		return DocumentResponse{}, err
	}

	supplierID, err := parseOptionalUUID(req.SupplierID, "supplier_id")
	if err != nil {
		return DocumentResponse{}, err
	}
	contractID, err := parseOptionalUUID(req.ContractID, "contract_id")
	if err != nil {
		return DocumentResponse{}, err
	}
	paymentID, err := parseOptionalUUID(req.PaymentID, "payment_id")
	if err != nil {
		return DocumentResponse{}, err
	}

	uploadedBy := principal.ID
	document := &model.Document{
		FileName:     req.FileName,
		FilePath:     req.FilePath,
		FileSize:     req.FileSize,
		MimeType:     req.MimeType,
		SupplierID:   supplierID,
		ContractID:   contractID,
		PaymentID:    paymentID,
		UploadedByID: &uploadedBy,
	}
	if !document.HasParent() {
		return DocumentResponse{}, ErrBadInput("document must reference a supplier, contract, or payment")
	}

	// Verify each referenced parent exists before attaching.
	if supplierID != nil {
		if _, err := s.supplierRepo.FindByID(ctx, *supplierID); err != nil {
			return DocumentResponse{}, asLoadError(err, model.EntityTypeSupplier, supplierID.String())
		}
	}
	if contractID != nil {
		if _, err := s.contractRepo.FindByID(ctx, *contractID); err != nil {
			return DocumentResponse{}, asLoadError(err, model.EntityTypeContract, contractID.String())
		}
	}
	if paymentID != nil {
		if _, err := s.paymentRepo.FindByID(ctx, *paymentID); err != nil {
			return DocumentResponse{}, asLoadError(err, model.EntityTypePayment, paymentID.String())
		}
	}

	if err := s.documentRepo.Create(ctx, document); err != nil {
		return DocumentResponse{}, ErrInternal("failed to create document", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionUploadDocument, model.EntityTypeDocument, document.ID.String(), nil, document)
	s.invalidateParents(ctx, document)

	return toDocumentResponse(*document), nil
}

// invalidateParents drops the cached parent entities so their document lists
// reflect the change.
func (s *documentService) invalidateParents(ctx context.Context, document *model.Document) {
	var keys []string
	if document.SupplierID != nil {
		keys = append(keys, cache.EntityKey(supplierLifecycle.cachePrefix, document.SupplierID.String()))
	}
	if document.ContractID != nil {
		keys = append(keys, cache.EntityKey(contractLifecycle.cachePrefix, document.ContractID.String()))
	}
	if document.PaymentID != nil {
		keys = append(keys, cache.EntityKey(paymentLifecycle.cachePrefix, document.PaymentID.String()))
	}
	s.cache.Invalidate(ctx, keys...)
}

func (s *documentService) GetDocument(ctx context.Context, principal *auth.Principal, id string) (DocumentResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "documents.read"); err != nil {
		return DocumentResponse{}, err
	}
	did, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, ErrBadInput("invalid document id")
	}
	document, err := s.documentRepo.FindByID(ctx, did)
	if err != nil {
		return DocumentResponse{}, asLoadError(err, model.EntityTypeDocument, id)
	}
	return toDocumentResponse(*document), nil
}

func (s *documentService) ListDocuments(ctx context.Context, principal *auth.Principal, supplierID, contractID, paymentID string) ([]DocumentResponse, error) {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "documents.read"); err != nil {
		return nil, err
	}

	var documents []model.Document
	switch {
	case supplierID != "":
		sid, err := uuid.Parse(supplierID)
		if err != nil {
			return nil, ErrBadInput("invalid supplier_id")
		}
		documents, err = s.documentRepo.ListBySupplier(ctx, sid)
		if err != nil {
			return nil, ErrInternal("failed to fetch documents", err)
		}
	case contractID != "":
		cid, err := uuid.Parse(contractID)
		if err != nil {
			return nil, ErrBadInput("invalid contract_id")
		}
		documents, err = s.documentRepo.ListByContract(ctx, cid)
		if err != nil {
			return nil, ErrInternal("failed to fetch documents", err)
		}
	case paymentID != "":
		pid, err := uuid.Parse(paymentID)
		if err != nil {
			return nil, ErrBadInput("invalid payment_id")
		}
		documents, err = s.documentRepo.ListByPayment(ctx, pid)
		if err != nil {
			return nil, ErrInternal("failed to fetch documents", err)
		}
	default:
		return nil, ErrBadInput("a supplier_id, contract_id, or payment_id filter is required")
	}

	res := make([]DocumentResponse, 0, len(documents))
	for _, d := range documents {
		res = append(res, toDocumentResponse(d))
	}
	return res, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.permService.CheckRole(principal, allProcurementRoles, "documents.delete"); err != nil {
		return err
	}
	did, err := uuid.Parse(id)
	if err != nil {
		return ErrBadInput("invalid document id")
	}

	document, err := s.documentRepo.FindByID(ctx, did)
	if err != nil {
		return asLoadError(err, model.EntityTypeDocument, id)
	}

	// Specialists may only remove their own uploads.
	if principal.Role == model.RoleProcurementSpecialist {
		if err := s.permService.CheckOwnership(principal, document.UploadedByID, "documents.delete"); err != nil {
			return err
		}
	}

	if err := s.documentRepo.Delete(ctx, did); err != nil {
		return ErrInternal("failed to delete document", err)
	}

	s.audit.Record(ctx, actorIDOf(principal), model.ActionDeleteDocument, model.EntityTypeDocument, id, document, nil)
	s.invalidateParents(ctx, document)
	return nil
}

func toDocumentResponse(d model.Document) DocumentResponse {
	res := DocumentResponse{
		ID:        d.ID.String(),
		FileName:  d.FileName,
		FilePath:  d.FilePath,
		FileSize:  d.FileSize,
		MimeType:  d.MimeType,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
	if d.SupplierID != nil {
		v := d.SupplierID.String()
		res.SupplierID = &v
	}
	if d.ContractID != nil {
		v := d.ContractID.String()
		res.ContractID = &v
	}
	if d.PaymentID != nil {
		v := d.PaymentID.String()
		res.PaymentID = &v
	}
	if d.UploadedByID != nil {
		v := d.UploadedByID.String()
		res.UploadedByID = &v
	}
	return res
}
