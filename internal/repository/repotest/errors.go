package repotest

import "github.com/jackc/pgx/v5/pgconn"

// errDuplicate mimics the driver error raised by a unique constraint.
func errDuplicate(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}
