package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// Notifications is an in-memory NotificationRepository.
type Notifications struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.Notification
}

// NewNotifications returns an empty repository.
func NewNotifications() *Notifications {
	return &Notifications{rows: map[string]domain.Notification{}}
}

func (r *Notifications) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = newID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.clock.now()
	}
	r.rows[n.ID] = *n
	return nil
}

// ForUser returns every notification of userID, newest first.
func (r *Notifications) ForUser(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sortDesc(out, func(n domain.Notification) time.Time { return n.CreatedAt })
	return out
}

func (r *Notifications) List(_ context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Notification
	for _, n := range r.rows {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		matched = append(matched, n)
	}
	sortDesc(matched, func(n domain.Notification) time.Time { return n.CreatedAt })
	return paginate(matched, limit, offset, 20), len(matched), nil
}

func (r *Notifications) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.rows {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *Notifications) MarkRead(_ context.Context, id, userID string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	if !n.Read {
		now := r.clock.now()
		n.Read = true
		n.ReadAt = &now
		r.rows[id] = n
	}
	return &n, nil
}

func (r *Notifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	now := r.clock.now()
	for id, n := range r.rows {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &now
			r.rows[id] = n
			count++
		}
	}
	return count, nil
}

func (r *Notifications) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

func (r *Notifications) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.rows {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(r.rows, id)
			count++
		}
	}
	return count, nil
}
