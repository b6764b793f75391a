package repotest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// GlobalAdmins is an in-memory GlobalAdminRepository.
type GlobalAdmins struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.GlobalAdmin
}

// NewGlobalAdmins returns an empty repository.
func NewGlobalAdmins() *GlobalAdmins {
	return &GlobalAdmins{rows: map[string]domain.GlobalAdmin{}}
}

func (r *GlobalAdmins) Create(_ context.Context, admin *domain.GlobalAdmin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin.Email = strings.ToLower(admin.Email)
	for _, existing := range r.rows {
		if existing.Email == admin.Email {
			return errDuplicate("global_admins_email_key")
		}
		if admin.IsOriginal && existing.IsOriginal {
			return errDuplicate("global_admins_single_original")
		}
	}
	now := r.clock.now()
	admin.ID = newID()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	r.rows[admin.ID] = *admin
	return nil
}

func (r *GlobalAdmins) Update(_ context.Context, admin *domain.GlobalAdmin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[admin.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.PasswordHash = admin.PasswordHash
	existing.LoginAttempts = admin.LoginAttempts
	existing.LockUntil = admin.LockUntil
	existing.LastLogin = admin.LastLogin
	existing.UpdatedAt = r.clock.now()
	admin.UpdatedAt = existing.UpdatedAt
	r.rows[admin.ID] = existing
	return nil
}

func (r *GlobalAdmins) GetByID(_ context.Context, id string) (*domain.GlobalAdmin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &admin, nil
}

func (r *GlobalAdmins) GetByEmail(_ context.Context, email string) (*domain.GlobalAdmin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, admin := range r.rows {
		if admin.Email == strings.ToLower(email) {
			a := admin
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *GlobalAdmins) List(_ context.Context) ([]domain.GlobalAdmin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.GlobalAdmin, 0, len(r.rows))
	for _, admin := range r.rows {
		out = append(out, admin)
	}
	sortDesc(out, func(a domain.GlobalAdmin) time.Time { return a.CreatedAt })
	return out, nil
}

func (r *GlobalAdmins) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.rows[id]
	if !ok || admin.IsOriginal {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}
