// Package repotest provides in-memory repository implementations for service
// and handler tests.
package repotest

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketbook/marketbook-api/internal/repository"
)

// Store bundles one instance of every in-memory repository.
type Store struct {
	Users         *Users
	Admins        *GlobalAdmins
	Escrow        *Escrow
	Support       *Support
	PublicSupport *PublicSupport
	Items         *Items
	Notifications *Notifications
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Users:         NewUsers(),
		Admins:        NewGlobalAdmins(),
		Escrow:        NewEscrow(),
		Support:       NewSupport(),
		PublicSupport: NewPublicSupport(),
		Items:         NewItems(),
		Notifications: NewNotifications(),
	}
}

var (
	_ repository.UserRepository          = (*Users)(nil)
	_ repository.GlobalAdminRepository   = (*GlobalAdmins)(nil)
	_ repository.EscrowRepository        = (*Escrow)(nil)
	_ repository.SupportRepository       = (*Support)(nil)
	_ repository.PublicSupportRepository = (*PublicSupport)(nil)
	_ repository.ItemRepository          = (*Items)(nil)
	_ repository.NotificationRepository  = (*Notifications)(nil)
)

type clock struct {
	mu   sync.Mutex
	last time.Time
}

// now returns strictly increasing timestamps so ordering by time is stable.
func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

func newID() string {
	return uuid.NewString()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func paginate[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortDesc[T any](items []T, key func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return key(items[i]).After(key(items[j]))
	})
}
