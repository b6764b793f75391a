package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// SupportFilter captures helpdesk listing parameters. An empty UserID lists
// tickets of every user.
type SupportFilter struct {
	UserID string
	Status domain.SupportStatus
	Limit  int
	Offset int
}

// SupportRepository persists user helpdesk tickets and their threads.
type SupportRepository interface {
	// Create stores the ticket together with its initial messages.
	Create(ctx context.Context, ticket *domain.SupportTicket) error
	GetByID(ctx context.Context, id string) (*domain.SupportTicket, error)
	Update(ctx context.Context, ticket *domain.SupportTicket) error
	AppendMessage(ctx context.Context, ticket *domain.SupportTicket, msg *domain.SupportMessage) error
	MarkMessagesRead(ctx context.Context, ticketID string, sender domain.SupportSender) (int64, error)
	List(ctx context.Context, filter SupportFilter) ([]domain.SupportTicket, int, error)
}

type supportRepository struct {
	pool *pgxpool.Pool
}

// NewSupportRepository returns a Postgres-backed implementation.
func NewSupportRepository(pool *pgxpool.Pool) SupportRepository {
	return &supportRepository{pool: pool}
}

const supportColumns = `id, user_id, subject, description, status, priority, category, assigned_to,
        last_reply, is_deleted, deleted_at, deleted_by, created_at, updated_at`

func scanSupportTicket(row pgx.Row) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.AssignedTo,
		&ticket.LastReply,
		&ticket.IsDeleted,
		&ticket.DeletedAt,
		&ticket.DeletedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *supportRepository) Create(ctx context.Context, ticket *domain.SupportTicket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        INSERT INTO support_tickets (user_id, subject, description, status, priority, category, assigned_to, last_reply)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.UserID,
		ticket.Subject,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		string(ticket.Category),
		ticket.AssignedTo,
		ticket.LastReply,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	for i := range ticket.Messages {
		msg := &ticket.Messages[i]
		msg.TicketID = ticket.ID
		msg.Seq = int64(i + 1)
		if err := tx.QueryRow(ctx,
			`INSERT INTO support_messages (ticket_id, seq, sender, body, sent_at, read) VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			ticket.ID, msg.Seq, string(msg.Sender), msg.Body, msg.Timestamp, msg.Read,
		).Scan(&msg.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *supportRepository) GetByID(ctx context.Context, id string) (*domain.SupportTicket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + supportColumns + ` FROM support_tickets WHERE id=$1 AND NOT is_deleted`
	ticket, err := scanSupportTicket(r.pool.QueryRow(ctx, query, id))
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

func (r *supportRepository) Update(ctx context.Context, ticket *domain.SupportTicket) error {
	const query = `
        UPDATE support_tickets SET status=$1, priority=$2, category=$3, assigned_to=$4, last_reply=$5,
            is_deleted=$6, deleted_at=$7, deleted_by=$8, updated_at=NOW()
        WHERE id=$9 AND NOT is_deleted
        RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		string(ticket.Status),
		string(ticket.Priority),
		string(ticket.Category),
		ticket.AssignedTo,
		ticket.LastReply,
		ticket.IsDeleted,
		ticket.DeletedAt,
		ticket.DeletedBy,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *supportRepository) AppendMessage(ctx context.Context, ticket *domain.SupportTicket, msg *domain.SupportMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
        UPDATE support_tickets SET status=$1, last_reply=$2, updated_at=NOW()
        WHERE id=$3 AND NOT is_deleted
        RETURNING updated_at`,
		string(ticket.Status), msg.Timestamp, ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx, `
        INSERT INTO support_messages (ticket_id, seq, sender, body, sent_at, read)
        VALUES ($1, (SELECT COALESCE(MAX(seq), 0) + 1 FROM support_messages WHERE ticket_id=$1), $2, $3, $4, FALSE)
        RETURNING id, seq`,
		ticket.ID, string(msg.Sender), msg.Body, msg.Timestamp,
	).Scan(&msg.ID, &msg.Seq); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	msg.TicketID = ticket.ID
	ticket.LastReply = msg.Timestamp
	ticket.Messages = append(ticket.Messages, *msg)
	return nil
}

func (r *supportRepository) MarkMessagesRead(ctx context.Context, ticketID string, sender domain.SupportSender) (int64, error) {
	if !validID(ticketID) {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE support_messages SET read=TRUE WHERE ticket_id=$1 AND NOT read AND sender=$2`,
		ticketID, string(sender))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *supportRepository) List(ctx context.Context, filter SupportFilter) ([]domain.SupportTicket, int, error) {
	var cond conditions
	cond.raw("NOT is_deleted")
	if filter.UserID != "" {
		cond.add("user_id::text=%s", filter.UserID)
	}
	if filter.Status != "" {
		cond.add("status=%s", string(filter.Status))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM support_tickets`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page(filter.Limit, filter.Offset, 10)
	query := fmt.Sprintf(`SELECT %s FROM support_tickets%s ORDER BY last_reply DESC LIMIT %d OFFSET %d`,
		supportColumns, cond.where(), limit, offset)
	rows, err := r.pool.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		tickets []domain.SupportTicket
		ids     []string
	)
	for rows.Next() {
		ticket, err := scanSupportTicket(rows)
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

func (r *supportRepository) loadMessages(ctx context.Context, ticketIDs []string) (map[string][]domain.SupportMessage, error) {
	result := make(map[string][]domain.SupportMessage, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `
        SELECT id, ticket_id, seq, sender, body, sent_at, read
        FROM support_messages WHERE ticket_id::text = ANY($1)
        ORDER BY ticket_id, seq`, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg domain.SupportMessage
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.Seq, &msg.Sender, &msg.Body, &msg.Timestamp, &msg.Read); err != nil {
			return nil, err
		}
		result[msg.TicketID] = append(result[msg.TicketID], msg)
	}
	return result, rows.Err()
}
