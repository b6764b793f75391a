package repotest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/repository"
)

// Items is an in-memory ItemRepository.
type Items struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.Item
}

// NewItems returns an empty repository.
func NewItems() *Items {
	return &Items{rows: map[string]domain.Item{}}
}

func (r *Items) Create(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.InvoiceNumber == item.InvoiceNumber {
			return errDuplicate("items_invoice_number_key")
		}
	}
	now := r.clock.now()
	item.ID = newID()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.rows[item.ID] = *item
	return nil
}

func (r *Items) Update(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[item.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	item.UpdatedAt = r.clock.now()
	r.rows[item.ID] = *item
	return nil
}

func (r *Items) GetByID(_ context.Context, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.rows[id]
	if !ok || item.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

// Raw returns the stored row, soft-deleted or not.
func (r *Items) Raw(id string) (domain.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.rows[id]
	return item, ok
}

func (r *Items) GetByInvoiceNumber(_ context.Context, invoiceNumber string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.rows {
		if !item.IsDeleted && item.InvoiceNumber == strings.ToUpper(invoiceNumber) {
			i := item
			return &i, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *Items) List(_ context.Context, filter repository.ItemFilter) ([]domain.Item, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Item
	for _, item := range r.rows {
		if item.IsDeleted || item.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !containsFold(item.Name, filter.Search) && !containsFold(item.Description, filter.Search) &&
			!containsFold(item.InvoiceNumber, filter.Search) && !containsFold(item.Category, filter.Search) {
			continue
		}
		matched = append(matched, item)
	}
	sortDesc(matched, func(i domain.Item) time.Time { return i.CreatedAt })
	return paginate(matched, filter.Limit, filter.Offset, 10), len(matched), nil
}

func (r *Items) Stats(_ context.Context, userID string) (*domain.ItemStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats domain.ItemStats
	for _, item := range r.rows {
		if item.IsDeleted || item.UserID != userID {
			continue
		}
		stats.TotalItems++
		switch item.Status {
		case domain.ItemStatusPaid:
			stats.PaidItems++
			stats.TotalRevenue += item.Price
		case domain.ItemStatusUnpaid:
			stats.UnpaidItems++
		case domain.ItemStatusPending:
			stats.PendingItems++
		}
	}
	return &stats, nil
}
