package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/notify"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

const (
	notificationPageSize = 20

	channelStore = "store"
	channelPush  = "push"
)

// DeliveryRecorder counts notification deliveries per channel.
type DeliveryRecorder interface {
	RecordNotification(channel string, err error)
}

type noopDelivery struct{}

func (noopDelivery) RecordNotification(string, error) {}

// NotificationService turns domain events into stored notifications and live
// pushes, and serves a user's notification inbox.
type NotificationService struct {
	repo       repository.NotificationRepository
	pusher     notify.Pusher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    DeliveryRecorder
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	Pusher           notify.Pusher
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Metrics          DeliveryRecorder
}

// PushedNotification is the body of a "notification" push.
type PushedNotification struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// AdminAlert is the body of an "admin-notification" push.
type AdminAlert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
}

// NotificationPage is one page of a user's inbox.
type NotificationPage struct {
	Notifications []domain.Notification
	Total         int
	TotalPages    int
	CurrentPage   int
	UnreadCount   int
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	svc := &NotificationService{
		repo:       deps.NotificationRepo,
		pusher:     deps.Pusher,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.metrics == nil {
		svc.metrics = noopDelivery{}
	}
	return svc
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	if len(event.Recipients) == 0 {
		return n.alertAdmins(ctx, event)
	}

	r, ok := render(event)
	if !ok {
		n.logger.Debug("no notification template", zap.String("event_type", string(event.Type)))
		return nil
	}

	var errs error
	for _, userID := range event.Recipients {
		if userID == "" {
			continue
		}
		errs = multierr.Append(errs, n.deliver(ctx, userID, r))
	}
	return errs
}

// deliver persists one notification and pushes it. A failed push does not
// undo the stored record.
func (n *NotificationService) deliver(ctx context.Context, userID string, r rendered) error {
	record := &domain.Notification{
		UserID:  userID,
		Title:   r.title,
		Message: r.message,
		Level:   r.level,
		Data:    r.data,
	}
	err := n.repo.Create(ctx, record)
	n.metrics.RecordNotification(channelStore, err)
	if err != nil {
		return fmt.Errorf("store notification for %s: %w", userID, err)
	}

	if n.pusher == nil {
		return nil
	}
	err = n.pusher.Push(ctx, userID, notify.Message{
		Event: "notification",
		Notification: PushedNotification{
			ID:        record.ID,
			Title:     record.Title,
			Message:   record.Message,
			Type:      string(record.Level),
			Timestamp: record.CreatedAt,
			Data:      record.Data,
		},
	})
	n.metrics.RecordNotification(channelPush, err)
	if err != nil {
		return fmt.Errorf("push notification to %s: %w", userID, err)
	}
	return nil
}

func (n *NotificationService) alertAdmins(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SupportPayload)
	if !ok || n.pusher == nil {
		return nil
	}

	alert := AdminAlert{TicketID: event.SubjectID, UserID: event.Actor.ID, UserName: event.Actor.Name}
	switch event.Type {
	case events.EventSupportCreated:
		alert.Type = "new-ticket"
		alert.Message = "New support ticket: " + payload.Subject
	case events.EventSupportUserReplied:
		alert.Type = "ticket-reply"
		alert.Message = "New reply on ticket: " + payload.Subject
	default:
		return nil
	}

	err := n.pusher.Push(ctx, notify.AudienceAdmins, notify.Message{Event: "admin-notification", Notification: alert})
	n.metrics.RecordNotification(channelPush, err)
	return err
}

// List returns a page of the user's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, userID string, page, limit int, unreadOnly bool) (*NotificationPage, error) {
	p := paginate(page, limit, notificationPageSize)
	items, total, err := n.repo.List(ctx, userID, unreadOnly, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	unread, err := n.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return &NotificationPage{
		Notifications: items,
		Total:         total,
		TotalPages:    totalPages(total, p.Limit),
		CurrentPage:   p.Page,
		UnreadCount:   unread,
	}, nil
}

// MarkRead flags one of the user's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	record, err := n.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, translate(err, apperrors.NewNotFoundMessage("Notification not found"))
	}
	return record, nil
}

// MarkAllRead flags every unread notification of the user.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return n.repo.MarkAllRead(ctx, userID)
}

// Delete removes one of the user's notifications.
func (n *NotificationService) Delete(ctx context.Context, userID, id string) error {
	return translate(n.repo.Delete(ctx, id, userID), apperrors.NewNotFoundMessage("Notification not found"))
}

// PurgeRead drops read notifications created before cutoff.
func (n *NotificationService) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	return n.repo.DeleteReadOlderThan(ctx, cutoff)
}
