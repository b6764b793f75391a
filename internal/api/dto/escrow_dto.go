package dto

import (
	"time"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// CreateEscrowRequest payload.
type CreateEscrowRequest struct {
	Title             string                `json:"title" validate:"required"`
	Description       string                `json:"description" validate:"required"`
	RecipientID       string                `json:"recipientId" validate:"required"`
	TransactionAmount *float64              `json:"transactionAmount" validate:"omitempty,gte=0"`
	Currency          string                `json:"currency" validate:"omitempty,len=3"`
	Category          domain.EscrowCategory `json:"category"`
	Priority          domain.TicketPriority `json:"priority"`
}

// RespondEscrowRequest answers an invitation.
type RespondEscrowRequest struct {
	Action string `json:"action" validate:"required"`
}

// MessageRequest carries a thread message for escrow and support tickets.
type MessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// StatusRequest overrides a ticket status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// NotesRequest replaces admin notes; blank clears them.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// EscrowMessageResponse is one thread entry.
type EscrowMessageResponse struct {
	ID        string            `json:"id"`
	Sender    domain.EscrowRole `json:"sender"`
	SenderID  *string           `json:"senderId,omitempty"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
}

// EscrowTicketResponse is the full ticket view.
type EscrowTicketResponse struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Initiator         *UserProfileResponse    `json:"initiator"`
	Recipient         *UserProfileResponse    `json:"recipient"`
	Status            domain.EscrowStatus     `json:"status"`
	InvitationStatus  domain.InvitationStatus `json:"invitationStatus"`
	TransactionAmount float64                 `json:"transactionAmount"`
	Currency          string                  `json:"currency"`
	Category          domain.EscrowCategory   `json:"category"`
	Priority          domain.TicketPriority   `json:"priority"`
	Messages          []EscrowMessageResponse `json:"messages"`
	UnreadCount       int                     `json:"unreadCount,omitempty"`
	LastActivity      time.Time               `json:"lastActivity"`
	InvitationSentAt  time.Time               `json:"invitationSentAt"`
	AcceptedAt        *time.Time              `json:"acceptedAt,omitempty"`
	ClosedAt          *time.Time              `json:"closedAt,omitempty"`
	ClosedBy          *domain.EscrowRole      `json:"closedBy,omitempty"`
	AdminNotes        *string                 `json:"adminNotes,omitempty"`
	DeletedAt         *time.Time              `json:"deletedAt,omitempty"`
	DeletedBy         *string                 `json:"deletedBy,omitempty"`
	Version           int64                   `json:"version"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// EscrowListResponse is one page of tickets.
type EscrowListResponse struct {
	Tickets     []EscrowTicketResponse `json:"tickets"`
	Total       int                    `json:"total"`
	TotalPages  int                    `json:"totalPages"`
	CurrentPage int                    `json:"currentPage"`
}
