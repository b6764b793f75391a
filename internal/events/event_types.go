package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEscrowInvitation    EventType = "escrow.invitation"
	EventEscrowResponded     EventType = "escrow.responded"
	EventEscrowMessage       EventType = "escrow.message"
	EventEscrowClosed        EventType = "escrow.closed"
	EventEscrowStatusChanged EventType = "escrow.status_changed"
	EventEscrowReopened      EventType = "escrow.reopened"

	EventSupportCreated       EventType = "support.created"
	EventSupportUserReplied   EventType = "support.user_replied"
	EventSupportAdminReplied  EventType = "support.admin_replied"
	EventSupportStatusChanged EventType = "support.status_changed"

	EventItemCreated          EventType = "item.created"
	EventItemUpdated          EventType = "item.updated"
	EventItemDeleted          EventType = "item.deleted"
	EventItemPaymentRequested EventType = "item.payment_requested"
	EventItemPaymentReviewed  EventType = "item.payment_reviewed"

	EventUserAdminEnabled         EventType = "user.admin_enabled"
	EventUserAdminPasswordChanged EventType = "user.admin_password_changed"
	EventUserStatusChanged        EventType = "user.status_changed"
	EventUserRecovered            EventType = "user.recovered"

	EventAdminDirectMessage EventType = "admin.direct_message"
	EventAdminBroadcast     EventType = "admin.broadcast"
)

// AllEventTypes lists every type the notification sink renders.
var AllEventTypes = []EventType{
	EventEscrowInvitation,
	EventEscrowResponded,
	EventEscrowMessage,
	EventEscrowClosed,
	EventEscrowStatusChanged,
	EventEscrowReopened,
	EventSupportCreated,
	EventSupportUserReplied,
	EventSupportAdminReplied,
	EventSupportStatusChanged,
	EventItemCreated,
	EventItemUpdated,
	EventItemDeleted,
	EventItemPaymentRequested,
	EventItemPaymentReviewed,
	EventUserAdminEnabled,
	EventUserAdminPasswordChanged,
	EventUserStatusChanged,
	EventUserRecovered,
	EventAdminDirectMessage,
	EventAdminBroadcast,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Kind domain.PrincipalKind `json:"kind,omitempty"`
	ID   string               `json:"id,omitempty"`
	Name string               `json:"name,omitempty"`
}

// Event represents a domain event emitted by services. Recipients lists the
// user ids that must be told; an empty list addresses the admin audience.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	SubjectID  string      `json:"subject_id"`
	Actor      Actor       `json:"actor"`
	Recipients []string    `json:"recipients,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, subjectID string, actor Actor, recipients []string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		SubjectID:  subjectID,
		Actor:      actor,
		Recipients: recipients,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// EscrowPayload is carried by every escrow event.
type EscrowPayload struct {
	Title       string              `json:"title"`
	Accepted    bool                `json:"accepted,omitempty"`
	Status      domain.EscrowStatus `json:"status,omitempty"`
	ClosedBy    domain.EscrowRole   `json:"closed_by,omitempty"`
	FromAdmin   bool                `json:"from_admin,omitempty"`
	BodyPreview string              `json:"body_preview,omitempty"`
}

// SupportPayload is carried by helpdesk events.
type SupportPayload struct {
	Subject     string               `json:"subject"`
	Status      domain.SupportStatus `json:"status,omitempty"`
	BodyPreview string               `json:"body_preview,omitempty"`
}

// ItemPayload is carried by invoice events.
type ItemPayload struct {
	ItemName      string  `json:"item_name"`
	InvoiceNumber string  `json:"invoice_number"`
	Amount        float64 `json:"amount"`
	Approved      bool    `json:"approved,omitempty"`
}

// AccountPayload is carried by moderation events on a user account.
type AccountPayload struct {
	Active bool `json:"active"`
}

// AnnouncementPayload is an operator message rendered verbatim.
type AnnouncementPayload struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Preview truncates a message body for notification text.
func Preview(body string, max int) string {
	r := []rune(body)
	if len(r) <= max {
		return body
	}
	return string(r[:max]) + "..."
}
