package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// ItemFilter captures listing parameters for one owner.
type ItemFilter struct {
	UserID string
	Status domain.ItemStatus
	Search string
	Limit  int
	Offset int
}

// ItemRepository persists listings and their invoice state.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	Update(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.Item, error)
	List(ctx context.Context, filter ItemFilter) ([]domain.Item, int, error)
	Stats(ctx context.Context, userID string) (*domain.ItemStats, error)
}

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns a Postgres-backed implementation.
func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &itemRepository{pool: pool}
}

const itemColumns = `id, user_id, name, description, price, status, image, category, tags, invoice_number,
        payment_request_status, payment_requested_at, payment_rejected_at, marked_as_paid_by,
        marked_as_paid_at, is_deleted, deleted_at, created_at, updated_at`

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item          domain.Item
		requestStatus *string
		requestedAt   *time.Time
		rejectedAt    *time.Time
	)
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Status,
		&item.Image,
		&item.Category,
		&item.Tags,
		&item.InvoiceNumber,
		&requestStatus,
		&requestedAt,
		&rejectedAt,
		&item.MarkedAsPaidBy,
		&item.MarkedAsPaidAt,
		&item.IsDeleted,
		&item.DeletedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if requestStatus != nil {
		req := &domain.PaymentRequest{Status: domain.PaymentRequestStatus(*requestStatus), RejectedAt: rejectedAt}
		if requestedAt != nil {
			req.RequestedAt = *requestedAt
		}
		item.PaymentRequest = req
	}
	return &item, nil
}

func paymentRequestValues(req *domain.PaymentRequest) (*string, *time.Time, *time.Time) {
	if req == nil {
		return nil, nil, nil
	}
	status := string(req.Status)
	requestedAt := req.RequestedAt
	return &status, &requestedAt, req.RejectedAt
}

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	const query = `
        INSERT INTO items (user_id, name, description, price, status, image, category, tags, invoice_number)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		item.UserID,
		item.Name,
		item.Description,
		item.Price,
		string(item.Status),
		item.Image,
		item.Category,
		tags,
		item.InvoiceNumber,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *itemRepository) Update(ctx context.Context, item *domain.Item) error {
	const query = `
        UPDATE items SET name=$1, description=$2, price=$3, status=$4, image=$5, category=$6, tags=$7,
            payment_request_status=$8, payment_requested_at=$9, payment_rejected_at=$10,
            marked_as_paid_by=$11, marked_as_paid_at=$12, is_deleted=$13, deleted_at=$14, updated_at=NOW()
        WHERE id=$15 AND NOT is_deleted
        RETURNING updated_at`

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	reqStatus, requestedAt, rejectedAt := paymentRequestValues(item.PaymentRequest)
	return r.pool.QueryRow(ctx, query,
		item.Name,
		item.Description,
		item.Price,
		string(item.Status),
		item.Image,
		item.Category,
		tags,
		reqStatus,
		requestedAt,
		rejectedAt,
		item.MarkedAsPaidBy,
		item.MarkedAsPaidAt,
		item.IsDeleted,
		item.DeletedAt,
		item.ID,
	).Scan(&item.UpdatedAt)
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id=$1 AND NOT is_deleted`
	return scanItem(r.pool.QueryRow(ctx, query, id))
}

func (r *itemRepository) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE invoice_number=$1 AND NOT is_deleted`
	return scanItem(r.pool.QueryRow(ctx, query, strings.ToUpper(invoiceNumber)))
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter) ([]domain.Item, int, error) {
	var cond conditions
	cond.raw("NOT is_deleted")
	cond.add("user_id::text=%s", filter.UserID)
	if filter.Status != "" {
		cond.add("status=%s", string(filter.Status))
	}
	if filter.Search != "" {
		cond.add("(name ILIKE %s OR description ILIKE %s OR invoice_number ILIKE %s OR category ILIKE %s)", searchPattern(filter.Search))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page(filter.Limit, filter.Offset, 10)
	query := fmt.Sprintf(`SELECT %s FROM items%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		itemColumns, cond.where(), limit, offset)
	rows, err := r.pool.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
	}
	return items, total, rows.Err()
}

func (r *itemRepository) Stats(ctx context.Context, userID string) (*domain.ItemStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='paid'),
               COUNT(*) FILTER (WHERE status='unpaid'),
               COUNT(*) FILTER (WHERE status='pending'),
               COALESCE(SUM(price) FILTER (WHERE status='paid'), 0)::float8
        FROM items WHERE user_id::text=$1 AND NOT is_deleted`

	var stats domain.ItemStats
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalItems,
		&stats.PaidItems,
		&stats.UnpaidItems,
		&stats.PendingItems,
		&stats.TotalRevenue,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}
