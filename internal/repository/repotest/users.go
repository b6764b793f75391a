package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/repository"
)

// Users is an in-memory UserRepository.
type Users struct {
	mu    sync.Mutex
	clock clock
	rows  map[string]domain.User
}

// NewUsers returns an empty repository.
func NewUsers() *Users {
	return &Users{rows: map[string]domain.User{}}
}

func (r *Users) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, existing := range r.rows {
		if existing.Email == user.Email {
			return errDuplicate("users_email_key")
		}
	}
	now := r.clock.now()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.rows[user.ID] = *user
	return nil
}

func (r *Users) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.Email = strings.ToLower(user.Email)
	user.UpdatedAt = r.clock.now()
	r.rows[user.ID] = *user
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.rows {
		if user.Email == strings.ToLower(email) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *Users) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if user, ok := r.rows[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *Users) Search(_ context.Context, search repository.UserSearch) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.rows {
		if !user.Usable() || user.ID == search.ExcludeID {
			continue
		}
		business := ""
		if user.BusinessName != nil {
			business = *user.BusinessName
		}
		if containsFold(user.FirstName, search.Query) || containsFold(user.LastName, search.Query) ||
			containsFold(user.Email, search.Query) || containsFold(business, search.Query) {
			out = append(out, user)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsRecommended != out[j].IsRecommended {
			return out[i].IsRecommended
		}
		return out[i].FirstName < out[j].FirstName
	})
	return paginate(out, search.Limit, 0, 20), nil
}

func (r *Users) List(_ context.Context, filter repository.UserListFilter) ([]domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.rows {
		if user.IsDeleted {
			continue
		}
		if filter.Active != nil && user.IsActive != *filter.Active {
			continue
		}
		if filter.Search != "" && !containsFold(user.FirstName, filter.Search) &&
			!containsFold(user.LastName, filter.Search) && !containsFold(user.Email, filter.Search) {
			continue
		}
		out = append(out, user)
	}
	sortDesc(out, func(u domain.User) time.Time { return u.CreatedAt })
	return paginate(out, filter.Limit, filter.Offset, 20), len(out), nil
}

func (r *Users) ListActiveIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []domain.User
	for _, user := range r.rows {
		if user.Usable() {
			users = append(users, user)
		}
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	return ids, nil
}
