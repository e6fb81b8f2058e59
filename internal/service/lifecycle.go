package service

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"

	"github.com/google/uuid"
)

// lifecycleDescriptor parameterizes the shared mutation sequence for the
// three lifecycle entities. The supplier/contract/payment services differ in
// fields and notification copy, not in the sequence itself, so the sequence
// lives here once.
type lifecycleDescriptor struct {
	entityType  string // audit/notification entity label
	cachePrefix string // cache key namespace
	displayName string // human-readable name for notification copy
	statusEvent string // websocket event name for status transitions
}

var (
	supplierLifecycle = lifecycleDescriptor{
		entityType:  model.EntityTypeSupplier,
		cachePrefix: "supplier",
		displayName: "Supplier",
		statusEvent: "SUPPLIER_STATUS_UPDATED",
	}
	contractLifecycle = lifecycleDescriptor{
		entityType:  model.EntityTypeContract,
		cachePrefix: "contract",
		displayName: "Contract",
		statusEvent: "CONTRACT_STATUS_UPDATED",
	}
	paymentLifecycle = lifecycleDescriptor{
		entityType:  model.EntityTypePayment,
		cachePrefix: "payment",
		displayName: "Payment",
		statusEvent: "PAYMENT_STATUS_UPDATED",
	}
)

// lifecycleCore bundles the collaborators every lifecycle mutation
// orchestrates: audit (best-effort), notifications (fail loudly), cache
// invalidation (always attempted), and the status event stream.
type lifecycleCore struct {
	desc     lifecycleDescriptor
	audit    AuditService
	notifier NotificationService
	cache    *cache.Store
	events   EventPublisher
}

// actorIDOf returns the principal's id for audit rows, nil for anonymous.
func actorIDOf(principal *auth.Principal) *uuid.UUID {
	if principal == nil {
		return nil
	}
	id := principal.ID
	return &id
}

func (c *lifecycleCore) recordAudit(ctx context.Context, principal *auth.Principal, action string, entityID uuid.UUID, oldValues, newValues interface{}) {
	c.audit.Record(ctx, actorIDOf(principal), action, c.desc.entityType, entityID.String(), oldValues, newValues)
}

// invalidate drops the entity's own key and every list slot for the type.
// It runs before notification dispatch so a correctly applied write can never
// be hidden behind stale reads when the notification path fails.
func (c *lifecycleCore) invalidate(ctx context.Context, entityIDs ...uuid.UUID) {
	keys := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		keys = append(keys, cache.EntityKey(c.desc.cachePrefix, id.String()))
	}
	c.cache.Invalidate(ctx, keys...)
	c.cache.InvalidateByPrefix(ctx, cache.ListPrefix(c.desc.cachePrefix))
}

func (c *lifecycleCore) notifyManagers(ctx context.Context, ntype, title, message string, entityID uuid.UUID) error {
	id := entityID
	_, err := c.notifier.Notify(ctx, NotificationTarget{Role: model.RoleProcurementManager},
		ntype, title, message, c.desc.entityType, &id)
	return err
}

func (c *lifecycleCore) notifyUser(ctx context.Context, userID *uuid.UUID, ntype, title, message string, entityID uuid.UUID) error {
	if userID == nil {
		return nil
	}
	id := entityID
	_, err := c.notifier.Notify(ctx, NotificationTarget{UserID: userID},
		ntype, title, message, c.desc.entityType, &id)
	return err
}

func (c *lifecycleCore) publishStatus(entityID uuid.UUID, status string) {
	if c.events == nil {
		return
	}
	c.events.Publish(c.desc.statusEvent, map[string]interface{}{
		"entity_type": c.desc.entityType,
		"entity_id":   entityID.String(),
		"status":      status,
	})
}

// appendRejectionNote appends a timestamped rejection reason to the entity's
// free-text field. Accumulative — a second rejection appends after the first,
// never overwrites it.
func appendRejectionNote(existing, reason string) string {
	note := fmt.Sprintf("[%s] Rejected: %s", time.Now().Format(time.RFC3339), reason)
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
