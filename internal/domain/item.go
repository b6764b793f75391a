package domain

import "time"

// ItemStatus is the payment state of a listing's invoice.
type ItemStatus string

const (
	ItemStatusPaid    ItemStatus = "paid"
	ItemStatusUnpaid  ItemStatus = "unpaid"
	ItemStatusPending ItemStatus = "pending"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPaid, ItemStatusUnpaid, ItemStatusPending:
		return true
	}
	return false
}

// PaymentRequestStatus tracks a customer's "I paid" claim.
type PaymentRequestStatus string

const (
	PaymentRequestPending  PaymentRequestStatus = "pending"
	PaymentRequestRejected PaymentRequestStatus = "rejected"
)

// PaymentRequest is raised from the public invoice link.
type PaymentRequest struct {
	Status      PaymentRequestStatus
	RequestedAt time.Time
	RejectedAt  *time.Time
}

// Item is a listing owned by a user, invoiced under a unique number.
type Item struct {
	ID             string
	UserID         string
	Name           string
	Description    string
	Price          float64
	Status         ItemStatus
	Image          *string
	Category       string
	Tags           []string
	InvoiceNumber  string
	PaymentRequest *PaymentRequest
	MarkedAsPaidBy *string
	MarkedAsPaidAt *time.Time
	IsDeleted      bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemStats summarises a user's listings.
type ItemStats struct {
	TotalItems   int
	PaidItems    int
	UnpaidItems  int
	PendingItems int
	TotalRevenue float64
}
