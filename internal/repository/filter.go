package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrVersionConflict is returned when a conditional write observes a newer
// version than the one the caller read.
var ErrVersionConflict = errors.New("record was modified concurrently")

// conditions accumulates WHERE clauses with positional arguments.
type conditions struct {
	clauses []string
	args    []any
}

// add appends a clause; every %s in format is replaced by the new placeholder.
func (c *conditions) add(format string, value any) {
	c.args = append(c.args, value)
	placeholder := fmt.Sprintf("$%d", len(c.args))
	c.clauses = append(c.clauses, strings.ReplaceAll(format, "%s", placeholder))
}

// raw appends a clause without an argument.
func (c *conditions) raw(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func page(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func searchPattern(term string) string {
	return "%" + escapeLike(strings.TrimSpace(term)) + "%"
}

// escapeLike neutralises ILIKE wildcards in user input.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// validID reports whether id can be compared against a UUID column.
// Malformed ids are treated as absent rows rather than driver errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
