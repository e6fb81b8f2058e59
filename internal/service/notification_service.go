package service

import (
	"context"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
)

// NotificationTarget is either a single user or a role cohort. Exactly one
// side should be set; neither set makes the dispatch a structural no-op.
type NotificationTarget struct {
	UserID *uuid.UUID
	Role   string
}

type NotificationResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	IsRead     bool   `json:"is_read"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// NotificationService fans out state-change events to interested users.
// Unlike audit recording, persistence failures here propagate — notification
// loss is a real error, not just lost observability.
type NotificationService interface {
	Notify(ctx context.Context, target NotificationTarget, ntype, title, message, entityType string, entityID *uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, principal *auth.Principal, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	CountUnread(ctx context.Context, principal *auth.Principal) (int64, error)
	MarkAsRead(ctx context.Context, principal *auth.Principal, id string) error
	MarkAllAsRead(ctx context.Context, principal *auth.Principal) error
}

// EventPublisher pushes named events to connected subscribers (websocket hub).
type EventPublisher interface {
	Publish(event string, payload interface{})
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	events           EventPublisher
}

func NewNotificationService(notificationRepo repository.NotificationRepository, userRepo repository.UserRepository, events EventPublisher) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		events:           events,
	}
}

// Notify creates notification rows for the target. A role target snapshots
// the active holders of that role at dispatch time — users granted the role
// later do not retroactively receive it. Returns false only when the target
// is structurally empty.
func (s *notificationService) Notify(ctx context.Context, target NotificationTarget, ntype, title, message, entityType string, entityID *uuid.UUID) (bool, error) {
	switch {
	case target.UserID != nil:
		notification := model.Notification{
			UserID:     *target.UserID,
			Type:       ntype,
			Title:      title,
			Message:    message,
			EntityType: entityType,
			EntityID:   entityID,
		}
		if err := s.notificationRepo.Create(ctx, &notification); err != nil {
			return false, ErrInternal("failed to create notification", err)
		}
		s.publish(notification)
		return true, nil

	case target.Role != "":
		users, err := s.userRepo.ListActiveByRole(ctx, target.Role)
		if err != nil {
			return false, ErrInternal("failed to resolve notification cohort", err)
		}
		if len(users) == 0 {
			return true, nil
		}
		notifications := make([]model.Notification, 0, len(users))
		for _, u := range users {
			notifications = append(notifications, model.Notification{
				UserID:     u.ID,
				Type:       ntype,
				Title:      title,
				Message:    message,
				EntityType: entityType,
				EntityID:   entityID,
			})
		}
		if err := s.notificationRepo.CreateBatch(ctx, notifications); err != nil {
			return false, ErrInternal("failed to create notifications", err)
		}
		for _, n := range notifications {
			s.publish(n)
		}
		return true, nil

	default:
		// Structurally invalid target — neither user nor role
		return false, nil
	}
}

func (s *notificationService) publish(n model.Notification) {
	if s.events == nil {
		return
	}
	s.events.Publish("NOTIFICATION_CREATED", map[string]interface{}{
		"user_id":     n.UserID.String(),
		"type":        n.Type,
		"title":       n.Title,
		"message":     n.Message,
		"entity_type": n.EntityType,
	})
}

func (s *notificationService) ListForUser(ctx context.Context, principal *auth.Principal, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	if principal == nil {
		return nil, 0, ErrUnauthenticated("notifications.read")
	}

	notifications, total, err := s.notificationRepo.ListByUser(ctx, principal.ID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, ErrInternal("failed to fetch notifications", err)
	}

	res := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		res = append(res, toNotificationResponse(n))
	}
	return res, total, nil
}

func (s *notificationService) CountUnread(ctx context.Context, principal *auth.Principal) (int64, error) {
	if principal == nil {
		return 0, ErrUnauthenticated("notifications.read")
	}
	count, err := s.notificationRepo.CountUnread(ctx, principal.ID)
	if err != nil {
		return 0, ErrInternal("failed to count unread notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, principal *auth.Principal, id string) error {
	if principal == nil {
		return ErrUnauthenticated("notifications.update")
	}
	nid, err := uuid.Parse(id)
	if err != nil {
		return ErrBadInput("invalid notification id")
	}

	notification, err := s.notificationRepo.FindByID(ctx, nid)
	if err != nil {
		return asLoadError(err, "NOTIFICATION", id)
	}
	if notification.UserID != principal.ID {
		return ErrForbiddenOwnership("notifications.update")
	}

	if err := s.notificationRepo.MarkRead(ctx, nid); err != nil {
		return ErrInternal("failed to mark notification as read", err)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, principal *auth.Principal) error {
	if principal == nil {
		return ErrUnauthenticated("notifications.update")
	}
	if err := s.notificationRepo.MarkAllRead(ctx, principal.ID); err != nil {
		return ErrInternal("failed to mark notifications as read", err)
	}
	return nil
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	res := NotificationResponse{
		ID:         n.ID.String(),
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		IsRead:     n.IsRead,
		EntityType: n.EntityType,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
	}
	if n.EntityID != nil {
		res.EntityID = n.EntityID.String()
	}
	return res
}
