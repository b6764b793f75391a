package dto

import (
	"time"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// CreateSupportTicketRequest payload.
type CreateSupportTicketRequest struct {
	Subject     string                 `json:"subject" validate:"required"`
	Description string                 `json:"description" validate:"required"`
	Priority    domain.TicketPriority  `json:"priority"`
	Category    domain.SupportCategory `json:"category"`
}

// PublicSupportRequest is the anonymous contact form.
type PublicSupportRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

// SupportMessageResponse is one user ticket thread entry.
type SupportMessageResponse struct {
	ID        string               `json:"id"`
	Sender    domain.SupportSender `json:"sender"`
	Message   string               `json:"message"`
	Timestamp time.Time            `json:"timestamp"`
	Read      bool                 `json:"read"`
}

// SupportTicketResponse is a user ticket.
type SupportTicketResponse struct {
	ID          string                   `json:"id"`
	User        *UserProfileResponse     `json:"user,omitempty"`
	Subject     string                   `json:"subject"`
	Description string                   `json:"description"`
	Status      domain.SupportStatus     `json:"status"`
	Priority    domain.TicketPriority    `json:"priority"`
	Category    domain.SupportCategory   `json:"category"`
	Messages    []SupportMessageResponse `json:"messages"`
	AssignedTo  string                   `json:"assignedTo,omitempty"`
	LastReply   time.Time                `json:"lastReply"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// SupportListResponse is one page of a user's tickets.
type SupportListResponse struct {
	Tickets     []SupportTicketResponse `json:"tickets"`
	Total       int                     `json:"total"`
	TotalPages  int                     `json:"totalPages"`
	CurrentPage int                     `json:"currentPage"`
}

// PublicResponseResponse is an admin answer to an anonymous ticket.
type PublicResponseResponse struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	RespondedBy string    `json:"respondedBy"`
	RespondedAt time.Time `json:"respondedAt"`
}

// InboxEntryResponse is one row of the admin inbox over both ticket kinds.
type InboxEntryResponse struct {
	ID           string                   `json:"id"`
	Type         domain.SupportKind       `json:"type"`
	Subject      string                   `json:"subject"`
	Description  string                   `json:"description"`
	Status       domain.SupportStatus     `json:"status"`
	Priority     domain.TicketPriority    `json:"priority"`
	Category     domain.SupportCategory   `json:"category"`
	DisplayName  string                   `json:"displayName"`
	DisplayEmail string                   `json:"displayEmail"`
	Messages     []SupportMessageResponse `json:"messages,omitempty"`
	Responses    []PublicResponseResponse `json:"responses,omitempty"`
	Source       string                   `json:"source,omitempty"`
	LastReply    time.Time                `json:"lastReply"`
	CreatedAt    time.Time                `json:"createdAt"`
}

// InboxResponse is one page of the admin inbox.
type InboxResponse struct {
	Tickets     []InboxEntryResponse `json:"tickets"`
	Total       int                  `json:"total"`
	TotalPages  int                  `json:"totalPages"`
	CurrentPage int                  `json:"currentPage"`
}
