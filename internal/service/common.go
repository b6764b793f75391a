package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

const maxPageSize = 100

// Pagination is the normalised form of page/limit query values.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

func paginate(page, limit, fallback int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func totalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ActionRecorder receives a count per completed domain action.
type ActionRecorder interface {
	RecordEscrowAction(action string)
}

type noopRecorder struct{}

func (noopRecorder) RecordEscrowAction(string) {}

func systemClock() time.Time {
	return time.Now().UTC()
}

// translate converts repository sentinels into client-facing errors.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("the record was changed by another request, reload and retry", nil)
	}
	return err
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}

func userActor(user *domain.User) events.Actor {
	if user == nil {
		return events.Actor{Kind: domain.PrincipalUser}
	}
	return events.Actor{Kind: domain.PrincipalUser, ID: user.ID, Name: user.FullName()}
}

func adminActor(admin *domain.GlobalAdmin) events.Actor {
	if admin == nil {
		return events.Actor{Kind: domain.PrincipalGlobalAdmin, Name: "Global Admin"}
	}
	return events.Actor{Kind: domain.PrincipalGlobalAdmin, ID: admin.ID, Name: "Global Admin"}
}
