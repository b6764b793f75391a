package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/repository"
)

// Escrow is an in-memory EscrowRepository with the same version semantics as
// the Postgres implementation.
type Escrow struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.EscrowTicket
}

// NewEscrow returns an empty repository.
func NewEscrow() *Escrow {
	return &Escrow{rows: map[string]domain.EscrowTicket{}}
}

func cloneEscrow(t domain.EscrowTicket) domain.EscrowTicket {
	t.Messages = append([]domain.EscrowMessage(nil), t.Messages...)
	return t
}

func (r *Escrow) Create(_ context.Context, ticket *domain.EscrowTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.now()
	ticket.ID = newID()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.rows[ticket.ID] = cloneEscrow(*ticket)
	return nil
}

func (r *Escrow) GetByID(_ context.Context, id string) (*domain.EscrowTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.rows[id]
	if !ok || ticket.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	out := cloneEscrow(ticket)
	return &out, nil
}

// Raw returns the stored row, soft-deleted or not.
func (r *Escrow) Raw(id string) (domain.EscrowTicket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.rows[id]
	return cloneEscrow(ticket), ok
}

func (r *Escrow) current(id string, version int64) (domain.EscrowTicket, error) {
	stored, ok := r.rows[id]
	if !ok || stored.IsDeleted {
		return domain.EscrowTicket{}, pgx.ErrNoRows
	}
	if stored.Version != version {
		return domain.EscrowTicket{}, repository.ErrVersionConflict
	}
	return stored, nil
}

func (r *Escrow) Update(_ context.Context, ticket *domain.EscrowTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.current(ticket.ID, ticket.Version)
	if err != nil {
		return err
	}
	next := cloneEscrow(*ticket)
	next.Messages = stored.Messages
	next.Version = stored.Version + 1
	next.UpdatedAt = r.clock.now()
	r.rows[ticket.ID] = next

	ticket.Version = next.Version
	ticket.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *Escrow) AppendMessage(_ context.Context, ticket *domain.EscrowTicket, msg *domain.EscrowMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.current(ticket.ID, ticket.Version)
	if err != nil {
		return err
	}
	msg.ID = newID()
	msg.TicketID = ticket.ID
	msg.Seq = int64(len(stored.Messages) + 1)
	stored.Messages = append(stored.Messages, *msg)
	stored.LastActivity = msg.Timestamp
	stored.Version++
	stored.UpdatedAt = r.clock.now()
	r.rows[ticket.ID] = stored

	ticket.Messages = append(ticket.Messages, *msg)
	ticket.LastActivity = msg.Timestamp
	ticket.Version = stored.Version
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *Escrow) MarkMessagesRead(_ context.Context, ticketID string, senders []domain.EscrowRole) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[ticketID]
	if !ok {
		return 0, nil
	}
	var n int64
	for i := range stored.Messages {
		if stored.Messages[i].Read {
			continue
		}
		for _, s := range senders {
			if stored.Messages[i].Sender == s {
				stored.Messages[i].Read = true
				n++
				break
			}
		}
	}
	r.rows[ticketID] = stored
	return n, nil
}

func (r *Escrow) List(_ context.Context, filter repository.EscrowFilter) ([]domain.EscrowTicket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.EscrowTicket
	for _, t := range r.rows {
		if t.IsDeleted {
			continue
		}
		if filter.PartyID != "" {
			switch filter.Scope {
			case repository.EscrowScopeInitiated:
				if t.InitiatorID != filter.PartyID {
					continue
				}
			case repository.EscrowScopeReceived:
				if t.RecipientID != filter.PartyID {
					continue
				}
			default:
				if t.InitiatorID != filter.PartyID && t.RecipientID != filter.PartyID {
					continue
				}
			}
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !containsFold(t.Title, filter.Search) && !containsFold(t.Description, filter.Search) {
			continue
		}
		matched = append(matched, cloneEscrow(t))
	}
	sortDesc(matched, func(t domain.EscrowTicket) time.Time { return t.LastActivity })
	return paginate(matched, filter.Limit, filter.Offset, 10), len(matched), nil
}
