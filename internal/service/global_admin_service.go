package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/config"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

// GlobalAdminService manages the platform operator roster, its logins and
// moderation of marketplace accounts.
type GlobalAdminService struct {
	admins      repository.GlobalAdminRepository
	users       repository.UserRepository
	dispatcher  events.Dispatcher
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	bootEmail   string
	bootPass    string
	resetCode   string
	maxAttempts int
	lockFor     time.Duration
	now         func() time.Time
}

// GlobalAdminDependencies bundles collaborators for the admin service.
type GlobalAdminDependencies struct {
	AdminRepo    repository.GlobalAdminRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	TokenManager *auth.TokenManager
	Clock        func() time.Time
}

// AdminSession is a freshly issued credential for a global admin.
type AdminSession struct {
	Admin     *domain.GlobalAdmin
	Token     string
	ExpiresAt time.Time
}

// NewGlobalAdminService builds the service.
func NewGlobalAdminService(cfg config.AuthConfig, deps GlobalAdminDependencies) *GlobalAdminService {
	svc := &GlobalAdminService{
		admins:      deps.AdminRepo,
		users:       deps.UserRepo,
		dispatcher:  deps.Dispatcher,
		tokenMgr:    deps.TokenManager,
		bcryptCost:  cfg.BcryptCost,
		bootEmail:   normalizeEmail(cfg.BootstrapAdminEmail),
		bootPass:    cfg.BootstrapAdminPass,
		resetCode:   cfg.AdminResetCode,
		maxAttempts: cfg.AdminMaxLoginAttempts,
		lockFor:     cfg.AdminLockDuration(),
		now:         deps.Clock,
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = 5
	}
	if svc.now == nil {
		svc.now = systemClock
	}
	return svc
}

// Login authenticates a global admin. The first login with the bootstrap
// email creates the original admin.
func (s *GlobalAdminService) Login(ctx context.Context, email, password string) (*AdminSession, error) {
	email = normalizeEmail(email)
	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) && email == s.bootEmail {
		admin, err = s.bootstrap(ctx)
	}
	if err != nil {
		return nil, translate(err, errInvalidCredentials())
	}

	now := s.now()
	if admin.Locked(now) {
		return nil, apperrors.NewLocked("Account is locked due to too many failed attempts. Use the reset code to unlock.")
	}

	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		s.recordFailure(admin, now)
		if updateErr := s.admins.Update(ctx, admin); updateErr != nil {
			return nil, updateErr
		}
		return nil, errInvalidCredentials()
	}

	admin.LoginAttempts = 0
	admin.LockUntil = nil
	admin.LastLogin = &now
	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(admin.ID, domain.PrincipalGlobalAdmin)
	if err != nil {
		return nil, err
	}
	return &AdminSession{Admin: admin, Token: token, ExpiresAt: exp}, nil
}

// recordFailure counts a bad password. An expired lock restarts the count.
func (s *GlobalAdminService) recordFailure(admin *domain.GlobalAdmin, now time.Time) {
	if admin.LockUntil != nil && !admin.LockUntil.After(now) {
		admin.LoginAttempts = 1
		admin.LockUntil = nil
		return
	}
	admin.LoginAttempts++
	if admin.LoginAttempts >= s.maxAttempts {
		until := now.Add(s.lockFor)
		admin.LockUntil = &until
	}
}

func (s *GlobalAdminService) bootstrap(ctx context.Context) (*domain.GlobalAdmin, error) {
	hash, err := auth.HashPassword(s.bootPass, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	admin := &domain.GlobalAdmin{Email: s.bootEmail, PasswordHash: hash, IsOriginal: true}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Reset restores the bootstrap password and lifts any lock when the reset
// code matches.
func (s *GlobalAdminService) Reset(ctx context.Context, email, code string) error {
	admin, err := s.admins.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return translate(err, errInvalidCredentials())
	}
	if s.resetCode == "" || code != s.resetCode {
		return apperrors.NewBadRequest("INVALID_RESET_CODE", "Invalid reset code")
	}

	hash, err := auth.HashPassword(s.bootPass, s.bcryptCost)
	if err != nil {
		return err
	}
	admin.PasswordHash = hash
	admin.LoginAttempts = 0
	admin.LockUntil = nil
	return s.admins.Update(ctx, admin)
}

// Create adds a non-original admin on behalf of the original one.
func (s *GlobalAdminService) Create(ctx context.Context, creator *domain.GlobalAdmin, email, password string) (*domain.GlobalAdmin, error) {
	if creator == nil || !creator.IsOriginal {
		return nil, apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original Global Admin can create new admins")
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Email and password are required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError("Password must be at least 6 characters long", map[string]any{"field": "password"})
	}
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("Admin with this email already exists", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	createdBy := creator.ID
	admin := &domain.GlobalAdmin{Email: email, PasswordHash: hash, CreatedBy: &createdBy}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// List returns the roster, newest first.
func (s *GlobalAdminService) List(ctx context.Context, requester *domain.GlobalAdmin) ([]domain.GlobalAdmin, error) {
	if requester == nil || !requester.IsOriginal {
		return nil, apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original Global Admin can view all admins")
	}
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, err
	}
	if admins == nil {
		admins = []domain.GlobalAdmin{}
	}
	return admins, nil
}

// Delete revokes a non-original admin.
func (s *GlobalAdminService) Delete(ctx context.Context, requester *domain.GlobalAdmin, id string) error {
	notFound := apperrors.NewNotFoundMessage("Admin not found")
	target, err := s.admins.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return translate(err, notFound)
	}
	if target.IsOriginal {
		return apperrors.NewForbidden("Cannot delete the original Global Admin")
	}
	if requester == nil || !requester.IsOriginal {
		return apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original Global Admin can delete other admins")
	}
	return translate(s.admins.Delete(ctx, target.ID), notFound)
}
