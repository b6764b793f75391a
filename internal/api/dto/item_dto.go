package dto

import (
	"time"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// CreateItemRequest payload.
type CreateItemRequest struct {
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description"`
	Price       *float64          `json:"price" validate:"required,gte=0"`
	Status      domain.ItemStatus `json:"status" validate:"omitempty,oneof=paid unpaid pending"`
	Category    string            `json:"category"`
	Tags        []string          `json:"tags"`
	ImageURL    string            `json:"imageUrl" validate:"omitempty,url"`
}

// UpdateItemRequest carries optional replacements.
type UpdateItemRequest struct {
	Name        *string            `json:"name" validate:"omitempty,min=1"`
	Description *string            `json:"description"`
	Price       *float64           `json:"price" validate:"omitempty,gte=0"`
	Status      *domain.ItemStatus `json:"status" validate:"omitempty,oneof=paid unpaid pending"`
	Category    *string            `json:"category"`
	Tags        []string           `json:"tags"`
	ImageURL    *string            `json:"imageUrl" validate:"omitempty,url"`
}

// ApprovePaymentRequest answers a payment claim.
type ApprovePaymentRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

// PaymentRequestResponse is a pending or rejected payment claim.
type PaymentRequestResponse struct {
	Status      domain.PaymentRequestStatus `json:"status"`
	RequestedAt time.Time                   `json:"requestedAt"`
	RejectedAt  *time.Time                  `json:"rejectedAt,omitempty"`
}

// ItemResponse is a listing.
type ItemResponse struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	Price          float64                 `json:"price"`
	Status         domain.ItemStatus       `json:"status"`
	Image          *string                 `json:"image"`
	Category       string                  `json:"category"`
	Tags           []string                `json:"tags"`
	InvoiceNumber  string                  `json:"invoiceNumber"`
	PaymentRequest *PaymentRequestResponse `json:"paymentRequest,omitempty"`
	MarkedAsPaidBy *string                 `json:"markedAsPaidBy,omitempty"`
	MarkedAsPaidAt *time.Time              `json:"markedAsPaidAt,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// ItemListResponse is one page of listings.
type ItemListResponse struct {
	Items       []ItemResponse `json:"items"`
	Total       int            `json:"total"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// ItemStatsResponse summarises listings per status.
type ItemStatsResponse struct {
	TotalItems   int     `json:"totalItems"`
	PaidItems    int     `json:"paidItems"`
	UnpaidItems  int     `json:"unpaidItems"`
	PendingItems int     `json:"pendingItems"`
	TotalRevenue float64 `json:"totalRevenue"`
}
