package service

import (
	"context"
	"strings"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

// UserListInput carries the admin user directory filters. Status is
// "active", "inactive" or empty for both.
type UserListInput struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// UserPage is one page of the admin user directory.
type UserPage struct {
	Users       []domain.User
	Total       int
	TotalPages  int
	CurrentPage int
}

func errUserNotFound() error {
	return apperrors.NewNotFoundMessage("User not found")
}

// ListUsers pages through accounts that are not deleted, newest first.
func (s *GlobalAdminService) ListUsers(ctx context.Context, input UserListInput) (*UserPage, error) {
	filter := repository.UserListFilter{Search: strings.TrimSpace(input.Search)}
	switch strings.ToLower(strings.TrimSpace(input.Status)) {
	case "", "all":
	case "active":
		active := true
		filter.Active = &active
	case "inactive":
		inactive := false
		filter.Active = &inactive
	default:
		return nil, apperrors.NewValidationError("status must be active or inactive", map[string]any{"field": "status"})
	}

	p := paginate(input.Page, input.Limit, adminPageSize)
	filter.Limit, filter.Offset = p.Limit, p.Offset
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{Users: users, Total: total, TotalPages: totalPages(total, p.Limit), CurrentPage: p.Page}, nil
}

// liveUser loads an account that has not been deleted.
func (s *GlobalAdminService) liveUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, translate(err, errUserNotFound())
	}
	if user.IsDeleted {
		return nil, errUserNotFound()
	}
	return user, nil
}

// ToggleUserStatus enables or disables an account. A disabled account can no
// longer authenticate or be invited to escrow.
func (s *GlobalAdminService) ToggleUserStatus(ctx context.Context, admin *domain.GlobalAdmin, id string) (*domain.User, error) {
	user, err := s.liveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translate(err, errUserNotFound())
	}
	publish(ctx, s.dispatcher, events.New(events.EventUserStatusChanged, user.ID, adminActor(admin),
		[]string{user.ID}, events.AccountPayload{Active: user.IsActive}))
	return user, nil
}

// ToggleUserRecommendation flips the flag that ranks an account first in
// recipient search.
func (s *GlobalAdminService) ToggleUserRecommendation(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.liveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsRecommended = !user.IsRecommended
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translate(err, errUserNotFound())
	}
	return user, nil
}

// DeleteUser soft-deletes and deactivates an account. Only the original
// global admin may delete.
func (s *GlobalAdminService) DeleteUser(ctx context.Context, admin *domain.GlobalAdmin, id string) error {
	if admin == nil || !admin.IsOriginal {
		return apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original Global Admin can delete users")
	}
	user, err := s.liveUser(ctx, id)
	if err != nil {
		return err
	}
	now := s.now()
	user.IsDeleted = true
	user.DeletedAt = &now
	user.IsActive = false
	return translate(s.users.Update(ctx, user), errUserNotFound())
}

// RecoverUser restores a deleted account and reactivates it.
func (s *GlobalAdminService) RecoverUser(ctx context.Context, admin *domain.GlobalAdmin, id string) (*domain.User, error) {
	if admin == nil || !admin.IsOriginal {
		return nil, apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original Global Admin can recover users")
	}
	user, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, translate(err, errUserNotFound())
	}
	user.IsDeleted = false
	user.DeletedAt = nil
	user.IsActive = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translate(err, errUserNotFound())
	}
	publish(ctx, s.dispatcher, events.New(events.EventUserRecovered, user.ID, adminActor(admin),
		[]string{user.ID}, events.AccountPayload{Active: true}))
	return user, nil
}

// Broadcast notifies every active account and returns how many were
// addressed.
func (s *GlobalAdminService) Broadcast(ctx context.Context, admin *domain.GlobalAdmin, subject, message string) (int, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	if subject == "" || message == "" {
		return 0, apperrors.NewValidationError("subject and message are required", nil)
	}
	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	// An event without recipients would be routed to the admin audience.
	if len(ids) == 0 {
		return 0, nil
	}
	publish(ctx, s.dispatcher, events.New(events.EventAdminBroadcast, "", adminActor(admin), ids,
		events.AnnouncementPayload{Subject: subject, Message: message}))
	return len(ids), nil
}
