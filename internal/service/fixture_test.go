package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/config"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/notify"
	"github.com/marketbook/marketbook-api/internal/repository/repotest"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

// stepClock returns a strictly increasing time, one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type pushed struct {
	audience string
	msg      notify.Message
}

type pushRecorder struct {
	mu   sync.Mutex
	msgs []pushed
	err  error
}

func (p *pushRecorder) Push(_ context.Context, audience string, msg notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, pushed{audience: audience, msg: msg})
	return p.err
}

func (p *pushRecorder) to(audience string) []notify.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notify.Message
	for _, m := range p.msgs {
		if m.audience == audience {
			out = append(out, m.msg)
		}
	}
	return out
}

type actionCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (a *actionCounter) RecordEscrowAction(action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts == nil {
		a.counts = map[string]int{}
	}
	a.counts[action]++
}

func (a *actionCounter) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[action]
}

type fixture struct {
	store   *repotest.Store
	clock   *stepClock
	pusher  *pushRecorder
	actions *actionCounter
	cfg     config.Config

	escrow        *EscrowService
	notifications *NotificationService
	support       *SupportService
	items         *ItemService
	auth          *AuthService
	admins        *GlobalAdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   repotest.New(),
		clock:   newStepClock(),
		pusher:  &pushRecorder{},
		actions: &actionCounter{},
		cfg: config.Config{Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
			BootstrapAdminEmail:   "root@marketbook.test",
			BootstrapAdminPass:    "bootstrap-pass",
			AdminResetCode:        "3237",
			AdminMaxLoginAttempts: 3,
			AdminLockMinutes:      10,
		}},
	}

	dispatcher := events.NewInMemoryDispatcher(zaptest.NewLogger(t))
	f.notifications = NewNotificationService(NotificationDependencies{
		NotificationRepo: f.store.Notifications,
		Pusher:           f.pusher,
		Dispatcher:       dispatcher,
		Logger:           zaptest.NewLogger(t),
	})
	f.notifications.RegisterHandlers()

	f.escrow = NewEscrowService(EscrowDependencies{
		EscrowRepo: f.store.Escrow,
		UserRepo:   f.store.Users,
		Dispatcher: dispatcher,
		Metrics:    f.actions,
		Clock:      f.clock.Now,
	})
	f.support = NewSupportService(SupportDependencies{
		SupportRepo:       f.store.Support,
		PublicSupportRepo: f.store.PublicSupport,
		UserRepo:          f.store.Users,
		Dispatcher:        dispatcher,
		Clock:             f.clock.Now,
	})
	f.items = NewItemService(ItemDependencies{
		ItemRepo:   f.store.Items,
		Dispatcher: dispatcher,
		Clock:      f.clock.Now,
	})
	f.auth = NewAuthService(f.cfg, AuthDependencies{
		UserRepo:   f.store.Users,
		Dispatcher: dispatcher,
		Clock:      f.clock.Now,
	})
	f.admins = NewGlobalAdminService(f.cfg.Auth, GlobalAdminDependencies{
		AdminRepo:    f.store.Admins,
		UserRepo:     f.store.Users,
		Dispatcher:   dispatcher,
		TokenManager: f.auth.TokenManager(),
		Clock:        f.clock.Now,
	})
	return f
}

func (f *fixture) user(t *testing.T, first, last string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		FirstName:    first,
		LastName:     last,
		Email:        first + "." + last + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) globalAdmin(t *testing.T, email string, original bool) *domain.GlobalAdmin {
	t.Helper()
	hash, err := auth.HashPassword("admin-pass", bcrypt.MinCost)
	require.NoError(t, err)
	a := &domain.GlobalAdmin{Email: email, PasswordHash: hash, IsOriginal: original}
	require.NoError(t, f.store.Admins.Create(context.Background(), a))
	return a
}

func requireCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, code, domainErr.Code)
	require.Equal(t, status, domainErr.HTTPStatus)
}
