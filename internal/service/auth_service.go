package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
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

const minPasswordLength = 6

// AuthService coordinates registration, login and per-user admin mode.
type AuthService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// RegisterInput describes a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserSession is a freshly issued credential for a user.
type UserSession struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	svc := &AuthService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		now:        deps.Clock,
	}
	if svc.now == nil {
		svc.now = systemClock
	}
	return svc
}

func errInvalidCredentials() error {
	return apperrors.NewDomainError("INVALID_CREDENTIALS", "Invalid credentials", http.StatusUnauthorized, nil)
}

func errInvalidAdminPassword(message string) error {
	return apperrors.NewDomainError("INVALID_ADMIN_PASSWORD", message, http.StatusBadRequest, nil)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserSession, error) {
	email := normalizeEmail(input.Email)
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("Password must be at least 6 characters long", map[string]any{"field": "password"})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("User already exists with this email", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user, domain.PrincipalUser)
}

// Login authenticates a user. Unknown, disabled and deleted accounts fail
// exactly like a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*UserSession, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, translate(err, errInvalidCredentials())
	}
	if !user.Usable() {
		return nil, errInvalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials()
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user, domain.PrincipalUser)
}

// EnableAdminMode sets up per-account admin mode once and returns the
// generated admin password. The plaintext is never stored.
func (s *AuthService) EnableAdminMode(ctx context.Context, user *domain.User) (string, error) {
	if user.AdminConfigured() {
		return "", apperrors.NewBadRequest("ADMIN_ALREADY_CONFIGURED", "Admin access already configured for this account")
	}

	password, err := generateAdminPassword()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", err
	}

	now := s.now()
	user.AdminPasswordHash = &hash
	user.AdminCreatedAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}

	publish(ctx, s.dispatcher, events.New(events.EventUserAdminEnabled, user.ID, userActor(user), []string{user.ID}, nil))
	return password, nil
}

// AdminLogin exchanges the admin password for a USER_ADMIN session.
func (s *AuthService) AdminLogin(ctx context.Context, user *domain.User, adminPassword string) (*UserSession, error) {
	if err := s.checkAdminPassword(user, adminPassword, "Invalid admin password"); err != nil {
		return nil, err
	}
	return s.issue(user, domain.PrincipalUserAdmin)
}

// VerifyAdminPassword re-checks the admin password without issuing a token.
func (s *AuthService) VerifyAdminPassword(_ context.Context, user *domain.User, adminPassword string) error {
	return s.checkAdminPassword(user, adminPassword, "Invalid admin password")
}

// ChangeAdminPassword replaces the admin password after verifying the
// current one.
func (s *AuthService) ChangeAdminPassword(ctx context.Context, user *domain.User, current, next string) error {
	if err := s.checkAdminPassword(user, current, "Current admin password is incorrect"); err != nil {
		return err
	}
	if len(next) < minPasswordLength {
		return apperrors.NewValidationError("New admin password must be at least 6 characters long", map[string]any{"field": "newAdminPassword"})
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	user.AdminPasswordHash = &hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	publish(ctx, s.dispatcher, events.New(events.EventUserAdminPasswordChanged, user.ID, userActor(user), []string{user.ID}, nil))
	return nil
}

func (s *AuthService) checkAdminPassword(user *domain.User, password, message string) error {
	if !user.AdminConfigured() {
		return apperrors.NewBadRequest("ADMIN_NOT_CONFIGURED", "Admin access not configured for this account")
	}
	if err := auth.ComparePassword(*user.AdminPasswordHash, password); err != nil {
		return errInvalidAdminPassword(message)
	}
	return nil
}

func (s *AuthService) issue(user *domain.User, kind domain.PrincipalKind) (*UserSession, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, kind)
	if err != nil {
		return nil, err
	}
	return &UserSession{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func generateAdminPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
