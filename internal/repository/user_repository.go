package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// UserSearch narrows the recipient directory lookup.
type UserSearch struct {
	Query     string
	ExcludeID string
	Limit     int
}

// UserListFilter narrows the admin user directory. Deleted accounts are
// never listed.
type UserListFilter struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}

// UserRepository defines persistence access for marketplace accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	Search(ctx context.Context, search UserSearch) ([]domain.User, error)
	List(ctx context.Context, filter UserListFilter) ([]domain.User, int, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, profile_image, business_name,
        is_active, is_deleted, is_recommended, deleted_at, admin_password_hash, admin_created_at, last_login,
        created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.BusinessName,
		&user.IsActive,
		&user.IsDeleted,
		&user.IsRecommended,
		&user.DeletedAt,
		&user.AdminPasswordHash,
		&user.AdminCreatedAt,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, profile_image, business_name, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.ProfileImage,
		user.BusinessName,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, email=$3, password_hash=$4, profile_image=$5,
            business_name=$6, is_active=$7, is_deleted=$8, is_recommended=$9, deleted_at=$10,
            admin_password_hash=$11, admin_created_at=$12, last_login=$13, updated_at=NOW()
        WHERE id=$14
        RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.ProfileImage,
		user.BusinessName,
		user.IsActive,
		user.IsDeleted,
		user.IsRecommended,
		user.DeletedAt,
		user.AdminPasswordHash,
		user.AdminCreatedAt,
		user.LastLogin,
		user.ID,
	).Scan(&user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id::text = ANY($1)`
	return r.collect(ctx, query, ids)
}

func (r *userRepository) Search(ctx context.Context, search UserSearch) ([]domain.User, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + userColumns + `
        FROM users
        WHERE is_active AND NOT is_deleted
          AND ($1 = '' OR id::text <> $1)
          AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2 OR COALESCE(business_name, '') ILIKE $2)
        ORDER BY is_recommended DESC, first_name ASC
        LIMIT $3`
	return r.collect(ctx, query, search.ExcludeID, searchPattern(search.Query), limit)
}

func (r *userRepository) List(ctx context.Context, filter UserListFilter) ([]domain.User, int, error) {
	var cond conditions
	cond.raw("NOT is_deleted")
	if filter.Search != "" {
		cond.add("(first_name ILIKE %s OR last_name ILIKE %s OR email ILIKE %s)", searchPattern(filter.Search))
	}
	if filter.Active != nil {
		cond.add("is_active=%s", *filter.Active)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		userColumns, cond.where(), limit, offset)
	users, err := r.collect(ctx, query, cond.args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text FROM users WHERE is_active AND NOT is_deleted ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepository) collect(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
