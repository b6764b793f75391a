package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// EscrowScope narrows a party listing to one side of the ticket.
type EscrowScope string

const (
	EscrowScopeAny       EscrowScope = ""
	EscrowScopeInitiated EscrowScope = "initiated"
	EscrowScopeReceived  EscrowScope = "received"
)

// EscrowFilter captures listing parameters. An empty PartyID lists every
// non-deleted ticket.
type EscrowFilter struct {
	PartyID string
	Scope   EscrowScope
	Status  domain.EscrowStatus
	Search  string
	Limit   int
	Offset  int
}

// EscrowRepository persists escrow tickets and their message threads.
// Soft-deleted tickets are invisible to every read.
type EscrowRepository interface {
	Create(ctx context.Context, ticket *domain.EscrowTicket) error
	GetByID(ctx context.Context, id string) (*domain.EscrowTicket, error)
	// Update writes ticket fields if ticket.Version is still current and
	// bumps the version.
	Update(ctx context.Context, ticket *domain.EscrowTicket) error
	// AppendMessage assigns the next sequence number, stores msg and sets the
	// ticket's last activity to msg.Timestamp under the same version check.
	AppendMessage(ctx context.Context, ticket *domain.EscrowTicket, msg *domain.EscrowMessage) error
	MarkMessagesRead(ctx context.Context, ticketID string, senders []domain.EscrowRole) (int64, error)
	List(ctx context.Context, filter EscrowFilter) ([]domain.EscrowTicket, int, error)
}

type escrowRepository struct {
	pool *pgxpool.Pool
}

// NewEscrowRepository returns a Postgres-backed implementation.
func NewEscrowRepository(pool *pgxpool.Pool) EscrowRepository {
	return &escrowRepository{pool: pool}
}

const escrowColumns = `id, title, description, initiator_id, recipient_id, status, invitation_status,
        transaction_amount, currency, category, priority, last_activity, invitation_sent_at, accepted_at,
        closed_at, closed_by, is_deleted, deleted_at, deleted_by, admin_notes, meta_ip_address,
        meta_user_agent, meta_source, version, created_at, updated_at`

func scanEscrowTicket(row pgx.Row) (*domain.EscrowTicket, error) {
	var (
		ticket   domain.EscrowTicket
		closedBy *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.InitiatorID,
		&ticket.RecipientID,
		&ticket.Status,
		&ticket.InvitationStatus,
		&ticket.TransactionAmount,
		&ticket.Currency,
		&ticket.Category,
		&ticket.Priority,
		&ticket.LastActivity,
		&ticket.InvitationSentAt,
		&ticket.AcceptedAt,
		&ticket.ClosedAt,
		&closedBy,
		&ticket.IsDeleted,
		&ticket.DeletedAt,
		&ticket.DeletedBy,
		&ticket.AdminNotes,
		&ticket.Metadata.IPAddress,
		&ticket.Metadata.UserAgent,
		&ticket.Metadata.Source,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if closedBy != nil {
		role := domain.EscrowRole(*closedBy)
		ticket.ClosedBy = &role
	}
	return &ticket, nil
}

func closedByValue(role *domain.EscrowRole) *string {
	if role == nil {
		return nil
	}
	v := string(*role)
	return &v
}

func (r *escrowRepository) Create(ctx context.Context, ticket *domain.EscrowTicket) error {
	const query = `
        INSERT INTO escrow_tickets (title, description, initiator_id, recipient_id, status, invitation_status,
            transaction_amount, currency, category, priority, last_activity, invitation_sent_at,
            meta_ip_address, meta_user_agent, meta_source)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, version, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.InitiatorID,
		ticket.RecipientID,
		string(ticket.Status),
		string(ticket.InvitationStatus),
		ticket.TransactionAmount,
		ticket.Currency,
		string(ticket.Category),
		string(ticket.Priority),
		ticket.LastActivity,
		ticket.InvitationSentAt,
		ticket.Metadata.IPAddress,
		ticket.Metadata.UserAgent,
		ticket.Metadata.Source,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *escrowRepository) GetByID(ctx context.Context, id string) (*domain.EscrowTicket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + escrowColumns + ` FROM escrow_tickets WHERE id=$1 AND NOT is_deleted`
	ticket, err := scanEscrowTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	messages, err := r.loadMessages(ctx, []string{ticket.ID})
	if err != nil {
		return nil, err
	}
	ticket.Messages = messages[ticket.ID]
	return ticket, nil
}

func (r *escrowRepository) Update(ctx context.Context, ticket *domain.EscrowTicket) error {
	const query = `
        UPDATE escrow_tickets SET status=$1, invitation_status=$2, last_activity=$3, accepted_at=$4,
            closed_at=$5, closed_by=$6, is_deleted=$7, deleted_at=$8, deleted_by=$9, admin_notes=$10,
            version=version+1, updated_at=NOW()
        WHERE id=$11 AND version=$12 AND NOT is_deleted
        RETURNING version, updated_at`

	err := r.pool.QueryRow(ctx, query,
		string(ticket.Status),
		string(ticket.InvitationStatus),
		ticket.LastActivity,
		ticket.AcceptedAt,
		ticket.ClosedAt,
		closedByValue(ticket.ClosedBy),
		ticket.IsDeleted,
		ticket.DeletedAt,
		ticket.DeletedBy,
		ticket.AdminNotes,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrConflict(ctx, r.pool, ticket.ID)
	}
	return err
}

func (r *escrowRepository) AppendMessage(ctx context.Context, ticket *domain.EscrowTicket, msg *domain.EscrowMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const bump = `
        UPDATE escrow_tickets SET last_activity=$1, version=version+1, updated_at=NOW()
        WHERE id=$2 AND version=$3 AND NOT is_deleted
        RETURNING version, updated_at`

	var (
		version   int64
		updatedAt time.Time
	)
	err = tx.QueryRow(ctx, bump, msg.Timestamp, ticket.ID, ticket.Version).Scan(&version, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrConflict(ctx, tx, ticket.ID)
	}
	if err != nil {
		return err
	}

	// The row lock taken by the version bump serialises sequence allocation.
	const insert = `
        INSERT INTO escrow_messages (ticket_id, seq, sender, sender_id, body, sent_at, read)
        VALUES ($1, (SELECT COALESCE(MAX(seq), 0) + 1 FROM escrow_messages WHERE ticket_id=$1), $2, $3, $4, $5, FALSE)
        RETURNING id, seq`
	if err := tx.QueryRow(ctx, insert,
		ticket.ID,
		string(msg.Sender),
		msg.SenderID,
		msg.Body,
		msg.Timestamp,
	).Scan(&msg.ID, &msg.Seq); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	msg.TicketID = ticket.ID
	ticket.Version = version
	ticket.UpdatedAt = updatedAt
	ticket.Messages = append(ticket.Messages, *msg)
	ticket.LastActivity = msg.Timestamp
	return nil
}

func (r *escrowRepository) MarkMessagesRead(ctx context.Context, ticketID string, senders []domain.EscrowRole) (int64, error) {
	if len(senders) == 0 || !validID(ticketID) {
		return 0, nil
	}
	values := make([]string, len(senders))
	for i, s := range senders {
		values[i] = string(s)
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE escrow_messages SET read=TRUE WHERE ticket_id=$1 AND NOT read AND sender = ANY($2)`,
		ticketID, values)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *escrowRepository) List(ctx context.Context, filter EscrowFilter) ([]domain.EscrowTicket, int, error) {
	var cond conditions
	cond.raw("NOT is_deleted")

	if filter.PartyID != "" {
		switch filter.Scope {
		case EscrowScopeInitiated:
			cond.add("initiator_id::text=%s", filter.PartyID)
		case EscrowScopeReceived:
			cond.add("recipient_id::text=%s", filter.PartyID)
		default:
			cond.add("(initiator_id::text=%s OR recipient_id::text=%s)", filter.PartyID)
		}
	}
	if filter.Status != "" {
		cond.add("status=%s", string(filter.Status))
	}
	if filter.Search != "" {
		cond.add("(title ILIKE %s OR description ILIKE %s)", searchPattern(filter.Search))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM escrow_tickets`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page(filter.Limit, filter.Offset, 10)
	query := fmt.Sprintf(`SELECT %s FROM escrow_tickets%s ORDER BY last_activity DESC LIMIT %d OFFSET %d`,
		escrowColumns, cond.where(), limit, offset)

	rows, err := r.pool.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		tickets []domain.EscrowTicket
		ids     []string
	)
	for rows.Next() {
		ticket, err := scanEscrowTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *ticket)
		ids = append(ids, ticket.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	messages, err := r.loadMessages(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range tickets {
		tickets[i].Messages = messages[tickets[i].ID]
	}
	return tickets, total, nil
}

func (r *escrowRepository) loadMessages(ctx context.Context, ticketIDs []string) (map[string][]domain.EscrowMessage, error) {
	result := make(map[string][]domain.EscrowMessage, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT id, ticket_id, seq, sender, sender_id, body, sent_at, read
        FROM escrow_messages WHERE ticket_id::text = ANY($1)
        ORDER BY ticket_id, seq`

	rows, err := r.pool.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg    domain.EscrowMessage
			sender string
		)
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.Seq, &sender, &msg.SenderID, &msg.Body, &msg.Timestamp, &msg.Read); err != nil {
			return nil, err
		}
		msg.Sender = domain.EscrowRole(sender)
		result[msg.TicketID] = append(result[msg.TicketID], msg)
	}
	return result, rows.Err()
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// missOrConflict distinguishes a vanished ticket from a stale version after a
// conditional write matched nothing.
func (r *escrowRepository) missOrConflict(ctx context.Context, q rowQuerier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM escrow_tickets WHERE id=$1 AND NOT is_deleted)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return pgx.ErrNoRows
}
