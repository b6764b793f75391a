package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/repository"
)

// Support is an in-memory SupportRepository.
type Support struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.SupportTicket
}

// NewSupport returns an empty repository.
func NewSupport() *Support {
	return &Support{rows: map[string]domain.SupportTicket{}}
}

func cloneSupport(t domain.SupportTicket) domain.SupportTicket {
	t.Messages = append([]domain.SupportMessage(nil), t.Messages...)
	return t
}

func (r *Support) Create(_ context.Context, ticket *domain.SupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.now()
	ticket.ID = newID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	for i := range ticket.Messages {
		ticket.Messages[i].ID = newID()
		ticket.Messages[i].TicketID = ticket.ID
		ticket.Messages[i].Seq = int64(i + 1)
	}
	r.rows[ticket.ID] = cloneSupport(*ticket)
	return nil
}

func (r *Support) GetByID(_ context.Context, id string) (*domain.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.rows[id]
	if !ok || ticket.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	out := cloneSupport(ticket)
	return &out, nil
}

// Raw returns the stored row, soft-deleted or not.
func (r *Support) Raw(id string) (domain.SupportTicket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.rows[id]
	return cloneSupport(ticket), ok
}

func (r *Support) Update(_ context.Context, ticket *domain.SupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[ticket.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	next := cloneSupport(*ticket)
	next.Messages = stored.Messages
	next.UpdatedAt = r.clock.now()
	ticket.UpdatedAt = next.UpdatedAt
	r.rows[ticket.ID] = next
	return nil
}

func (r *Support) AppendMessage(_ context.Context, ticket *domain.SupportTicket, msg *domain.SupportMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[ticket.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	msg.ID = newID()
	msg.TicketID = ticket.ID
	msg.Seq = int64(len(stored.Messages) + 1)
	stored.Messages = append(stored.Messages, *msg)
	stored.Status = ticket.Status
	stored.LastReply = msg.Timestamp
	stored.UpdatedAt = r.clock.now()
	r.rows[ticket.ID] = stored

	ticket.Messages = append(ticket.Messages, *msg)
	ticket.LastReply = msg.Timestamp
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *Support) MarkMessagesRead(_ context.Context, ticketID string, sender domain.SupportSender) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[ticketID]
	if !ok {
		return 0, nil
	}
	var n int64
	for i := range stored.Messages {
		if !stored.Messages[i].Read && stored.Messages[i].Sender == sender {
			stored.Messages[i].Read = true
			n++
		}
	}
	r.rows[ticketID] = stored
	return n, nil
}

func (r *Support) List(_ context.Context, filter repository.SupportFilter) ([]domain.SupportTicket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.SupportTicket
	for _, t := range r.rows {
		if t.IsDeleted {
			continue
		}
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneSupport(t))
	}
	sortDesc(matched, func(t domain.SupportTicket) time.Time { return t.LastReply })
	return paginate(matched, filter.Limit, filter.Offset, 10), len(matched), nil
}

// PublicSupport is an in-memory PublicSupportRepository.
type PublicSupport struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.PublicSupportTicket
}

// NewPublicSupport returns an empty repository.
func NewPublicSupport() *PublicSupport {
	return &PublicSupport{rows: map[string]domain.PublicSupportTicket{}}
}

func clonePublic(t domain.PublicSupportTicket) domain.PublicSupportTicket {
	t.Responses = append([]domain.PublicResponse(nil), t.Responses...)
	return t
}

func (r *PublicSupport) Create(_ context.Context, ticket *domain.PublicSupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.now()
	ticket.ID = newID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.rows[ticket.ID] = clonePublic(*ticket)
	return nil
}

func (r *PublicSupport) GetByID(_ context.Context, id string) (*domain.PublicSupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.rows[id]
	if !ok || ticket.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	out := clonePublic(ticket)
	return &out, nil
}

func (r *PublicSupport) Update(_ context.Context, ticket *domain.PublicSupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[ticket.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	next := clonePublic(*ticket)
	next.Responses = stored.Responses
	next.UpdatedAt = r.clock.now()
	ticket.UpdatedAt = next.UpdatedAt
	r.rows[ticket.ID] = next
	return nil
}

func (r *PublicSupport) AddResponse(_ context.Context, ticket *domain.PublicSupportTicket, response *domain.PublicResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[ticket.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	response.ID = newID()
	response.TicketID = ticket.ID
	at := response.RespondedAt
	stored.Responses = append(stored.Responses, *response)
	stored.Status = ticket.Status
	stored.LastResponseAt = &at
	stored.UpdatedAt = r.clock.now()
	r.rows[ticket.ID] = stored

	ticket.Responses = append(ticket.Responses, *response)
	ticket.LastResponseAt = &at
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *PublicSupport) List(_ context.Context, status domain.SupportStatus, limit, offset int) ([]domain.PublicSupportTicket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.PublicSupportTicket
	for _, t := range r.rows {
		if t.IsDeleted || (status != "" && t.Status != status) {
			continue
		}
		matched = append(matched, clonePublic(t))
	}
	sortDesc(matched, func(t domain.PublicSupportTicket) time.Time { return t.LastReplyAt() })
	return paginate(matched, limit, offset, 20), len(matched), nil
}
