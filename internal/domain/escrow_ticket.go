package domain

import "time"

// EscrowStatus enumerates lifecycle states of an escrow ticket.
type EscrowStatus string

const (
	EscrowStatusPending   EscrowStatus = "pending"
	EscrowStatusActive    EscrowStatus = "active"
	EscrowStatusClosed    EscrowStatus = "closed"
	EscrowStatusCancelled EscrowStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EscrowStatus) Valid() bool {
	switch s {
	case EscrowStatusPending, EscrowStatusActive, EscrowStatusClosed, EscrowStatusCancelled:
		return true
	}
	return false
}

// Open reports whether parties may still message or close the ticket.
func (s EscrowStatus) Open() bool {
	return s == EscrowStatusPending || s == EscrowStatusActive
}

// InvitationStatus tracks the recipient's answer to the invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// EscrowCategory classifies the underlying deal.
type EscrowCategory string

const (
	EscrowCategoryGoods      EscrowCategory = "goods"
	EscrowCategoryServices   EscrowCategory = "services"
	EscrowCategoryDigital    EscrowCategory = "digital"
	EscrowCategoryRealEstate EscrowCategory = "real-estate"
	EscrowCategoryOther      EscrowCategory = "other"
)

// Valid reports whether c is a known category.
func (c EscrowCategory) Valid() bool {
	switch c {
	case EscrowCategoryGoods, EscrowCategoryServices, EscrowCategoryDigital, EscrowCategoryRealEstate, EscrowCategoryOther:
		return true
	}
	return false
}

// TicketPriority enumerates urgency shared by escrow and support tickets.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// EscrowRole is the standing of an actor on a ticket.
type EscrowRole string

const (
	EscrowRoleNone      EscrowRole = ""
	EscrowRoleInitiator EscrowRole = "initiator"
	EscrowRoleRecipient EscrowRole = "recipient"
	EscrowRoleAdmin     EscrowRole = "admin"
)

// EscrowMessage is one entry of a ticket's append-only thread.
type EscrowMessage struct {
	ID        string
	TicketID  string
	Seq       int64
	Sender    EscrowRole
	SenderID  *string
	Body      string
	Timestamp time.Time
	Read      bool
}

// EscrowMetadata is informational request context captured at creation.
type EscrowMetadata struct {
	IPAddress string
	UserAgent string
	Source    string
}

// EscrowTicket is a mediated two-party conversation with a transaction label.
type EscrowTicket struct {
	ID                string
	Title             string
	Description       string
	InitiatorID       string
	RecipientID       string
	Initiator         *UserProfile
	Recipient         *UserProfile
	Status            EscrowStatus
	InvitationStatus  InvitationStatus
	TransactionAmount float64
	Currency          string
	Category          EscrowCategory
	Priority          TicketPriority
	Messages          []EscrowMessage
	LastActivity      time.Time
	InvitationSentAt  time.Time
	AcceptedAt        *time.Time
	ClosedAt          *time.Time
	ClosedBy          *EscrowRole
	IsDeleted         bool
	DeletedAt         *time.Time
	DeletedBy         *string
	AdminNotes        *string
	Metadata          EscrowMetadata
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ResolveRole maps a caller to their standing on the ticket. Empty ids never
// match, so a ticket whose party reference was lost resolves to none.
func (t *EscrowTicket) ResolveRole(userID string) EscrowRole {
	if t == nil || userID == "" {
		return EscrowRoleNone
	}
	switch userID {
	case t.InitiatorID:
		return EscrowRoleInitiator
	case t.RecipientID:
		return EscrowRoleRecipient
	}
	return EscrowRoleNone
}

// CounterpartyOf returns the id of the party opposite role.
func (t *EscrowTicket) CounterpartyOf(role EscrowRole) string {
	switch role {
	case EscrowRoleInitiator:
		return t.RecipientID
	case EscrowRoleRecipient:
		return t.InitiatorID
	}
	return ""
}

// PartyIDs returns initiator and recipient ids.
func (t *EscrowTicket) PartyIDs() []string {
	return []string{t.InitiatorID, t.RecipientID}
}

// RecomputeLastActivity sets LastActivity to the newest message timestamp,
// falling back to the ticket's own update time when the thread is empty.
func (t *EscrowTicket) RecomputeLastActivity() {
	if n := len(t.Messages); n > 0 {
		t.LastActivity = t.Messages[n-1].Timestamp
		return
	}
	t.LastActivity = t.UpdatedAt
}

// UnreadFor counts messages the given role has not seen yet.
func (t *EscrowTicket) UnreadFor(role EscrowRole) int {
	count := 0
	for _, msg := range t.Messages {
		if !msg.Read && msg.Sender != role && msg.Sender != EscrowRoleAdmin {
			count++
		}
	}
	return count
}
