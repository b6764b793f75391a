package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// PublicSupportRepository persists tickets from the anonymous contact form.
type PublicSupportRepository interface {
	Create(ctx context.Context, ticket *domain.PublicSupportTicket) error
	GetByID(ctx context.Context, id string) (*domain.PublicSupportTicket, error)
	Update(ctx context.Context, ticket *domain.PublicSupportTicket) error
	AddResponse(ctx context.Context, ticket *domain.PublicSupportTicket, response *domain.PublicResponse) error
	List(ctx context.Context, status domain.SupportStatus, limit, offset int) ([]domain.PublicSupportTicket, int, error)
}

type publicSupportRepository struct {
	pool *pgxpool.Pool
}

// NewPublicSupportRepository returns a Postgres-backed implementation.
func NewPublicSupportRepository(pool *pgxpool.Pool) PublicSupportRepository {
	return &publicSupportRepository{pool: pool}
}

const publicSupportColumns = `id, name, email, message, status, priority, category, source, ip_address,
        user_agent, last_response_at, is_deleted, deleted_at, deleted_by, created_at, updated_at`

func scanPublicSupportTicket(row pgx.Row) (*domain.PublicSupportTicket, error) {
	var ticket domain.PublicSupportTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Name,
		&ticket.Email,
		&ticket.Message,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Source,
		&ticket.IPAddress,
		&ticket.UserAgent,
		&ticket.LastResponseAt,
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

func (r *publicSupportRepository) Create(ctx context.Context, ticket *domain.PublicSupportTicket) error {
	const query = `
        INSERT INTO public_support_tickets (name, email, message, status, priority, category, source, ip_address, user_agent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		ticket.Name,
		ticket.Email,
		ticket.Message,
		string(ticket.Status),
		string(ticket.Priority),
		string(ticket.Category),
		ticket.Source,
		ticket.IPAddress,
		ticket.UserAgent,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *publicSupportRepository) GetByID(ctx context.Context, id string) (*domain.PublicSupportTicket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + publicSupportColumns + ` FROM public_support_tickets WHERE id=$1 AND NOT is_deleted`
	ticket, err := scanPublicSupportTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	responses, err := r.loadResponses(ctx, []string{ticket.ID})
	if err != nil {
		return nil, err
	}
	ticket.Responses = responses[ticket.ID]
	return ticket, nil
}

func (r *publicSupportRepository) Update(ctx context.Context, ticket *domain.PublicSupportTicket) error {
	const query = `
        UPDATE public_support_tickets SET status=$1, priority=$2, category=$3, last_response_at=$4,
            is_deleted=$5, deleted_at=$6, deleted_by=$7, updated_at=NOW()
        WHERE id=$8 AND NOT is_deleted
        RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		string(ticket.Status),
		string(ticket.Priority),
		string(ticket.Category),
		ticket.LastResponseAt,
		ticket.IsDeleted,
		ticket.DeletedAt,
		ticket.DeletedBy,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *publicSupportRepository) AddResponse(ctx context.Context, ticket *domain.PublicSupportTicket, response *domain.PublicResponse) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
        UPDATE public_support_tickets SET status=$1, last_response_at=$2, updated_at=NOW()
        WHERE id=$3 AND NOT is_deleted
        RETURNING updated_at`,
		string(ticket.Status), response.RespondedAt, ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx, `
        INSERT INTO public_support_responses (ticket_id, message, responded_by, responded_at)
        VALUES ($1,$2,$3,$4) RETURNING id`,
		ticket.ID, response.Message, response.RespondedBy, response.RespondedAt,
	).Scan(&response.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	response.TicketID = ticket.ID
	at := response.RespondedAt
	ticket.LastResponseAt = &at
	ticket.Responses = append(ticket.Responses, *response)
	return nil
}

func (r *publicSupportRepository) List(ctx context.Context, status domain.SupportStatus, limit, offset int) ([]domain.PublicSupportTicket, int, error) {
	var cond conditions
	cond.raw("NOT is_deleted")
	if status != "" {
		cond.add("status=%s", string(status))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM public_support_tickets`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset = page(limit, offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM public_support_tickets%s
        ORDER BY COALESCE(last_response_at, created_at) DESC LIMIT %d OFFSET %d`,
		publicSupportColumns, cond.where(), limit, offset)
	rows, err := r.pool.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		tickets []domain.PublicSupportTicket
		ids     []string
	)
	for rows.Next() {
		ticket, err := scanPublicSupportTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *ticket)
		ids = append(ids, ticket.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	responses, err := r.loadResponses(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range tickets {
		tickets[i].Responses = responses[tickets[i].ID]
	}
	return tickets, total, nil
}

func (r *publicSupportRepository) loadResponses(ctx context.Context, ticketIDs []string) (map[string][]domain.PublicResponse, error) {
	result := make(map[string][]domain.PublicResponse, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `
        SELECT id, ticket_id, message, responded_by, responded_at
        FROM public_support_responses WHERE ticket_id::text = ANY($1)
        ORDER BY responded_at`, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp domain.PublicResponse
		if err := rows.Scan(&resp.ID, &resp.TicketID, &resp.Message, &resp.RespondedBy, &resp.RespondedAt); err != nil {
			return nil, err
		}
		result[resp.TicketID] = append(result[resp.TicketID], resp)
	}
	return result, rows.Err()
}
