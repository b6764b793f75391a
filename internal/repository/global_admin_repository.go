package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// GlobalAdminRepository persists the global admin roster.
type GlobalAdminRepository interface {
	Create(ctx context.Context, admin *domain.GlobalAdmin) error
	Update(ctx context.Context, admin *domain.GlobalAdmin) error
	GetByID(ctx context.Context, id string) (*domain.GlobalAdmin, error)
	GetByEmail(ctx context.Context, email string) (*domain.GlobalAdmin, error)
	List(ctx context.Context) ([]domain.GlobalAdmin, error)
	Delete(ctx context.Context, id string) error
}

type globalAdminRepository struct {
	pool *pgxpool.Pool
}

// NewGlobalAdminRepository returns a Postgres-backed implementation.
func NewGlobalAdminRepository(pool *pgxpool.Pool) GlobalAdminRepository {
	return &globalAdminRepository{pool: pool}
}

const globalAdminColumns = `id, email, password_hash, is_original, created_by, login_attempts, lock_until,
        last_login, created_at, updated_at`

func scanGlobalAdmin(row pgx.Row) (*domain.GlobalAdmin, error) {
	var admin domain.GlobalAdmin
	if err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.IsOriginal,
		&admin.CreatedBy,
		&admin.LoginAttempts,
		&admin.LockUntil,
		&admin.LastLogin,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *globalAdminRepository) Create(ctx context.Context, admin *domain.GlobalAdmin) error {
	const query = `
        INSERT INTO global_admins (email, password_hash, is_original, created_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		strings.ToLower(admin.Email),
		admin.PasswordHash,
		admin.IsOriginal,
		admin.CreatedBy,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *globalAdminRepository) Update(ctx context.Context, admin *domain.GlobalAdmin) error {
	const query = `
        UPDATE global_admins SET password_hash=$1, login_attempts=$2, lock_until=$3, last_login=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		admin.PasswordHash,
		admin.LoginAttempts,
		admin.LockUntil,
		admin.LastLogin,
		admin.ID,
	).Scan(&admin.UpdatedAt)
}

func (r *globalAdminRepository) GetByID(ctx context.Context, id string) (*domain.GlobalAdmin, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + globalAdminColumns + ` FROM global_admins WHERE id=$1`
	return scanGlobalAdmin(r.pool.QueryRow(ctx, query, id))
}

func (r *globalAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.GlobalAdmin, error) {
	query := `SELECT ` + globalAdminColumns + ` FROM global_admins WHERE email=$1`
	return scanGlobalAdmin(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *globalAdminRepository) List(ctx context.Context) ([]domain.GlobalAdmin, error) {
	query := `SELECT ` + globalAdminColumns + ` FROM global_admins ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []domain.GlobalAdmin
	for rows.Next() {
		admin, err := scanGlobalAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *admin)
	}
	return admins, rows.Err()
}

func (r *globalAdminRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM global_admins WHERE id=$1 AND NOT is_original`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
