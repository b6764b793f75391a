package domain

import "time"

// SupportStatus enumerates lifecycle states for helpdesk tickets.
type SupportStatus string

const (
	SupportStatusOpen       SupportStatus = "open"
	SupportStatusInProgress SupportStatus = "in-progress"
	SupportStatusResolved   SupportStatus = "resolved"
	SupportStatusClosed     SupportStatus = "closed"
)

// Valid reports whether s is a known status.
func (s SupportStatus) Valid() bool {
	switch s {
	case SupportStatusOpen, SupportStatusInProgress, SupportStatusResolved, SupportStatusClosed:
		return true
	}
	return false
}

// SupportCategory classifies a helpdesk request.
type SupportCategory string

const (
	SupportCategoryGeneral        SupportCategory = "general"
	SupportCategoryTechnical      SupportCategory = "technical"
	SupportCategoryBilling        SupportCategory = "billing"
	SupportCategoryAccount        SupportCategory = "account"
	SupportCategoryFeatureRequest SupportCategory = "feature-request"
	SupportCategoryOther          SupportCategory = "other"
)

// Valid reports whether c is a known category.
func (c SupportCategory) Valid() bool {
	switch c {
	case SupportCategoryGeneral, SupportCategoryTechnical, SupportCategoryBilling,
		SupportCategoryAccount, SupportCategoryFeatureRequest, SupportCategoryOther:
		return true
	}
	return false
}

// SupportSender indicates who authored a support message.
type SupportSender string

const (
	SupportSenderUser  SupportSender = "user"
	SupportSenderAdmin SupportSender = "admin"
)

// SupportKind distinguishes authenticated tickets from anonymous ones.
type SupportKind string

const (
	SupportKindUser   SupportKind = "user"
	SupportKindPublic SupportKind = "public"
)

// SupportMessage is one entry of a user ticket thread.
type SupportMessage struct {
	ID        string
	TicketID  string
	Seq       int64
	Sender    SupportSender
	Body      string
	Timestamp time.Time
	Read      bool
}

// SupportTicket is a helpdesk request opened by a signed-in user.
type SupportTicket struct {
	ID          string
	UserID      string
	User        *UserProfile
	Subject     string
	Description string
	Status      SupportStatus
	Priority    TicketPriority
	Category    SupportCategory
	Messages    []SupportMessage
	AssignedTo  string
	LastReply   time.Time
	IsDeleted   bool
	DeletedAt   *time.Time
	DeletedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PublicResponse is an admin answer to an anonymous ticket.
type PublicResponse struct {
	ID          string
	TicketID    string
	Message     string
	RespondedBy string
	RespondedAt time.Time
}

// PublicSupportTicket is submitted from the public contact form.
type PublicSupportTicket struct {
	ID             string
	Name           string
	Email          string
	Message        string
	Status         SupportStatus
	Priority       TicketPriority
	Category       SupportCategory
	Source         string
	IPAddress      *string
	UserAgent      *string
	Responses      []PublicResponse
	LastResponseAt *time.Time
	IsDeleted      bool
	DeletedAt      *time.Time
	DeletedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LastReplyAt is the sort key used when merging with user tickets.
func (p *PublicSupportTicket) LastReplyAt() time.Time {
	if p.LastResponseAt != nil {
		return *p.LastResponseAt
	}
	return p.CreatedAt
}
