package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/marketbook/marketbook-api/internal/api/http/handlers"
	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/config"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/notify"
	"github.com/marketbook/marketbook-api/internal/observability"
	"github.com/marketbook/marketbook-api/internal/repository/repotest"
	"github.com/marketbook/marketbook-api/internal/service"
)

type pushLog struct {
	mu        sync.Mutex
	audiences []string
}

func (p *pushLog) Push(_ context.Context, audience string, _ notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audiences = append(p.audiences, audience)
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type apiFixture struct {
	app   *fiber.App
	store *repotest.Store
	push  *pushLog
}

type response struct {
	status int
	body   map[string]any
}

func newAPIFixture(t *testing.T, redisErr error) *apiFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := repotest.New()
	push := &pushLog{}
	cfg := config.Config{
		App: config.AppConfig{Name: "marketbook-api", Env: "test", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:             "api-secret",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            bcrypt.MinCost,
			BootstrapAdminEmail:   "root@marketbook.test",
			BootstrapAdminPass:    "bootstrap-pass",
			AdminResetCode:        "3237",
			AdminMaxLoginAttempts: 5,
			AdminLockMinutes:      15,
		},
	}
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: store.Users, Dispatcher: dispatcher})
	tokens := authService.TokenManager()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: store.Notifications,
		Pusher:           push,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Metrics:          metrics,
	})
	notifications.RegisterHandlers()
	admins := service.NewGlobalAdminService(cfg.Auth, service.GlobalAdminDependencies{
		AdminRepo:    store.Admins,
		UserRepo:     store.Users,
		Dispatcher:   dispatcher,
		TokenManager: tokens,
	})
	escrow := service.NewEscrowService(service.EscrowDependencies{
		EscrowRepo: store.Escrow,
		UserRepo:   store.Users,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	support := service.NewSupportService(service.SupportDependencies{
		SupportRepo:       store.Support,
		PublicSupportRepo: store.PublicSupport,
		UserRepo:          store.Users,
		Dispatcher:        dispatcher,
	})
	items := service.NewItemService(service.ItemDependencies{ItemRepo: store.Items, Dispatcher: dispatcher})

	app := fiber.New()
	RegisterMiddlewares(app, MiddlewareConfig{Logger: logger, Metrics: metrics, ExposeCause: true})
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("marketbook-api", "test", map[string]handlers.Pinger{
			"postgres": pinger{},
			"redis":    pinger{err: redisErr},
		}),
		Users:          handlers.NewUsersHandler(authService, support),
		AdminMode:      handlers.NewAdminModeHandler(authService),
		GlobalAdmins:   handlers.NewGlobalAdminHandler(admins),
		AdminUsers:     handlers.NewAdminUsersHandler(admins, support),
		Escrow:         handlers.NewEscrowHandler(escrow),
		AdminEscrow:    handlers.NewAdminEscrowHandler(escrow),
		Tickets:        handlers.NewTicketsHandler(support),
		AdminTickets:   handlers.NewAdminTicketsHandler(support),
		Items:          handlers.NewItemsHandler(items),
		Notifications:  handlers.NewNotificationsHandler(notifications),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users, store.Admins),
	})
	return &apiFixture{app: app, store: store, push: push}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, body: map[string]any{}}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

// register signs a new account up and returns its id and token.
func (f *apiFixture) register(t *testing.T, first string) (string, string) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"firstName": first,
		"lastName":  "Tester",
		"email":     first + "@example.com",
		"password":  "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	user := resp.body["user"].(map[string]any)
	return user["id"].(string), resp.body["token"].(string)
}

func (f *apiFixture) adminLogin(t *testing.T, email, password string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/global-admin/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	return resp.body["token"].(string)
}

func object(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	return m
}

func TestEscrowLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, aliceToken := f.register(t, "alice")
	bobID, bobToken := f.register(t, "bob")
	_, carolToken := f.register(t, "carol")

	search := f.do(t, http.MethodGet, "/escrow/search-users?q=bo", aliceToken, nil)
	require.Equal(t, http.StatusOK, search.status)
	require.Len(t, search.body["users"], 1)

	created := f.do(t, http.MethodPost, "/escrow/create", aliceToken, map[string]any{
		"title":             "Road bike",
		"description":       "Carbon frame, size 56",
		"recipientId":       bobID,
		"transactionAmount": 1200,
		"category":          "goods",
	})
	require.Equal(t, http.StatusCreated, created.status, created.body)
	require.Equal(t, "Escrow invitation sent successfully", created.body["message"])
	ticket := object(t, created.body["escrowTicket"])
	require.Equal(t, "pending", ticket["status"])
	require.Equal(t, "pending", ticket["invitationStatus"])
	ticketID := ticket["id"].(string)

	received := f.do(t, http.MethodGet, "/escrow/my-tickets?type=received", bobToken, nil)
	require.Equal(t, http.StatusOK, received.status)
	require.EqualValues(t, 1, received.body["total"])
	require.EqualValues(t, 1, received.body["currentPage"])

	matched := f.do(t, http.MethodGet, "/escrow/my-tickets?search=carbon", aliceToken, nil)
	require.Equal(t, http.StatusOK, matched.status)
	require.EqualValues(t, 1, matched.body["total"])
	unmatched := f.do(t, http.MethodGet, "/escrow/my-tickets?search=piano", aliceToken, nil)
	require.EqualValues(t, 0, unmatched.body["total"])

	accepted := f.do(t, http.MethodPatch, "/escrow/tickets/"+ticketID+"/respond", bobToken, map[string]any{"action": "accept"})
	require.Equal(t, http.StatusOK, accepted.status, accepted.body)
	require.Equal(t, "Escrow invitation accepted successfully", accepted.body["message"])
	require.Equal(t, "active", object(t, accepted.body["ticket"])["status"])

	sent := f.do(t, http.MethodPost, "/escrow/tickets/"+ticketID+"/message", aliceToken, map[string]any{"message": "Shipping tomorrow"})
	require.Equal(t, http.StatusOK, sent.status, sent.body)
	messages := object(t, sent.body["ticket"])["messages"].([]any)
	require.Len(t, messages, 1)
	require.Equal(t, "initiator", object(t, messages[0])["sender"])

	stranger := f.do(t, http.MethodGet, "/escrow/tickets/"+ticketID, carolToken, nil)
	require.Equal(t, http.StatusNotFound, stranger.status)
	require.Equal(t, "NOT_FOUND", stranger.body["code"])
	require.Equal(t, "Escrow ticket not found", stranger.body["message"])

	view := f.do(t, http.MethodGet, "/escrow/tickets/"+ticketID, bobToken, nil)
	require.Equal(t, http.StatusOK, view.status)
	require.Equal(t, true, object(t, view.body["messages"].([]any)[0])["read"])

	closed := f.do(t, http.MethodPatch, "/escrow/tickets/"+ticketID+"/close", bobToken, nil)
	require.Equal(t, http.StatusOK, closed.status)
	require.Equal(t, "recipient", object(t, closed.body["ticket"])["closedBy"])

	again := f.do(t, http.MethodPost, "/escrow/tickets/"+ticketID+"/message", aliceToken, map[string]any{"message": "hello?"})
	require.Equal(t, http.StatusBadRequest, again.status)

	inbox := f.do(t, http.MethodGet, "/notifications?unreadOnly=true", bobToken, nil)
	require.Equal(t, http.StatusOK, inbox.status)
	require.NotEmpty(t, inbox.body["notifications"])
	require.Greater(t, inbox.body["unreadCount"].(float64), float64(0))

	marked := f.do(t, http.MethodPatch, "/notifications/mark-all-read", bobToken, nil)
	require.Equal(t, http.StatusOK, marked.status)
	require.Equal(t, "All notifications marked as read", marked.body["message"])
}

func TestErrorResponsesAreFlat(t *testing.T) {
	f := newAPIFixture(t, nil)
	aliceID, aliceToken := f.register(t, "alice")

	missing := f.do(t, http.MethodPost, "/escrow/create", aliceToken, map[string]any{"title": "No body"})
	require.Equal(t, http.StatusBadRequest, missing.status)
	require.Equal(t, "VALIDATION_FAILED", missing.body["code"])
	fields := object(t, missing.body["details"])["fields"].([]any)
	require.Len(t, fields, 2)
	require.Equal(t, "description", object(t, fields[0])["field"])
	require.Equal(t, "recipientId", object(t, fields[1])["field"])

	self := f.do(t, http.MethodPost, "/escrow/create", aliceToken, map[string]any{
		"title": "Self", "description": "deal", "recipientId": aliceID,
	})
	require.Equal(t, http.StatusBadRequest, self.status)
	require.Equal(t, "SELF_TARGET", self.body["code"])
	require.Equal(t, "Cannot create escrow with yourself", self.body["message"])

	anon := f.do(t, http.MethodGet, "/escrow/my-tickets", "", nil)
	require.Equal(t, http.StatusUnauthorized, anon.status)
	require.Equal(t, "UNAUTHORIZED", anon.body["code"])

	unknown := f.do(t, http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, unknown.status)
	require.Equal(t, "NOT_FOUND", unknown.body["code"])

	boom := f.do(t, http.MethodGet, "/boom", "", nil)
	require.Equal(t, http.StatusInternalServerError, boom.status)
	require.Equal(t, "INTERNAL_ERROR", boom.body["code"])
	require.Equal(t, "internal server error", boom.body["message"])
	require.Contains(t, object(t, boom.body["details"])["cause"], "kaboom")

	dup := f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"firstName": "alice", "lastName": "Again", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusConflict, dup.status)

	bad := f.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "alice@example.com", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, bad.status)
	require.Equal(t, "INVALID_CREDENTIALS", bad.body["code"])
}

func TestGlobalAdminMediationOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, aliceToken := f.register(t, "alice")
	bobID, bobToken := f.register(t, "bob")

	created := f.do(t, http.MethodPost, "/escrow/create", aliceToken, map[string]any{
		"title": "Logo design", "description": "Vector logo", "recipientId": bobID, "category": "services",
	})
	require.Equal(t, http.StatusCreated, created.status)
	ticketID := object(t, created.body["escrowTicket"])["id"].(string)

	rootToken := f.adminLogin(t, "root@marketbook.test", "bootstrap-pass")

	profile := f.do(t, http.MethodGet, "/global-admin/profile", rootToken, nil)
	require.Equal(t, http.StatusOK, profile.status)
	require.Equal(t, true, object(t, profile.body["admin"])["isOriginal"])

	added := f.do(t, http.MethodPost, "/global-admin/admins", rootToken, map[string]any{"email": "mod@marketbook.test", "password": "mod-password"})
	require.Equal(t, http.StatusCreated, added.status, added.body)
	modToken := f.adminLogin(t, "mod@marketbook.test", "mod-password")

	roster := f.do(t, http.MethodGet, "/global-admin/admins", modToken, nil)
	require.Equal(t, http.StatusForbidden, roster.status)
	require.Equal(t, "PRIVILEGE_REQUIRED", roster.body["code"])

	list := f.do(t, http.MethodGet, "/global-admin/escrow-tickets?search=logo", modToken, nil)
	require.Equal(t, http.StatusOK, list.status)
	require.EqualValues(t, 1, list.body["total"])

	msg := f.do(t, http.MethodPost, "/global-admin/escrow-tickets/"+ticketID+"/message", modToken, map[string]any{"message": "Please share the brief"})
	require.Equal(t, http.StatusOK, msg.status)
	require.Equal(t, "Admin message sent successfully", msg.body["message"])

	status := f.do(t, http.MethodPatch, "/global-admin/escrow-tickets/"+ticketID+"/status", modToken, map[string]any{"status": "archived"})
	require.Equal(t, http.StatusBadRequest, status.status)
	status = f.do(t, http.MethodPatch, "/global-admin/escrow-tickets/"+ticketID+"/status", modToken, map[string]any{"status": "closed"})
	require.Equal(t, http.StatusOK, status.status)
	require.Equal(t, "admin", object(t, status.body["ticket"])["closedBy"])

	reopened := f.do(t, http.MethodPatch, "/global-admin/escrow-tickets/"+ticketID+"/reopen", modToken, nil)
	require.Equal(t, http.StatusOK, reopened.status)
	require.Equal(t, "active", object(t, reopened.body["ticket"])["status"])

	notes := f.do(t, http.MethodPatch, "/global-admin/escrow-tickets/"+ticketID+"/notes", modToken, map[string]any{"notes": "watch this one"})
	require.Equal(t, http.StatusOK, notes.status)
	require.Equal(t, "watch this one", object(t, notes.body["ticket"])["adminNotes"])

	partyView := f.do(t, http.MethodGet, "/escrow/tickets/"+ticketID, bobToken, nil)
	require.Equal(t, http.StatusOK, partyView.status)
	require.NotContains(t, partyView.body, "adminNotes")

	denied := f.do(t, http.MethodDelete, "/global-admin/escrow-tickets/"+ticketID, modToken, nil)
	require.Equal(t, http.StatusForbidden, denied.status)
	require.Equal(t, "PRIVILEGE_REQUIRED", denied.body["code"])
	require.Equal(t, auth.PrivilegeOriginalAdmin, object(t, denied.body["details"])["required_privilege"])

	deleted := f.do(t, http.MethodDelete, "/global-admin/escrow-tickets/"+ticketID, rootToken, nil)
	require.Equal(t, http.StatusOK, deleted.status)
	require.Equal(t, "Escrow ticket deleted successfully", deleted.body["message"])

	gone := f.do(t, http.MethodGet, "/escrow/tickets/"+ticketID, bobToken, nil)
	require.Equal(t, http.StatusNotFound, gone.status)

	asUser := f.do(t, http.MethodGet, "/global-admin/escrow-tickets", aliceToken, nil)
	require.Equal(t, http.StatusForbidden, asUser.status)
}

func TestUserModerationOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)
	aliceID, aliceToken := f.register(t, "alice")
	bobID, bobToken := f.register(t, "bob")

	rootToken := f.adminLogin(t, "root@marketbook.test", "bootstrap-pass")
	added := f.do(t, http.MethodPost, "/global-admin/admins", rootToken, map[string]any{"email": "mod@marketbook.test", "password": "mod-password"})
	require.Equal(t, http.StatusCreated, added.status, added.body)
	modToken := f.adminLogin(t, "mod@marketbook.test", "mod-password")

	listed := f.do(t, http.MethodGet, "/global-admin/users", modToken, nil)
	require.Equal(t, http.StatusOK, listed.status)
	require.EqualValues(t, 2, listed.body["total"])

	disabled := f.do(t, http.MethodPatch, "/global-admin/users/"+bobID+"/toggle-status", modToken, nil)
	require.Equal(t, http.StatusOK, disabled.status, disabled.body)
	require.Equal(t, "User disabled successfully", disabled.body["message"])
	require.Equal(t, false, object(t, disabled.body["user"])["isActive"])

	locked := f.do(t, http.MethodGet, "/escrow/my-tickets", bobToken, nil)
	require.Equal(t, http.StatusUnauthorized, locked.status)
	require.Equal(t, "account is inactive", locked.body["message"])

	invite := map[string]any{"title": "Sofa", "description": "Three seater", "recipientId": bobID}
	refused := f.do(t, http.MethodPost, "/escrow/create", aliceToken, invite)
	require.Equal(t, http.StatusNotFound, refused.status)
	require.Equal(t, "INVALID_RECIPIENT", refused.body["code"])

	inactive := f.do(t, http.MethodGet, "/global-admin/users?status=inactive", modToken, nil)
	require.EqualValues(t, 1, inactive.body["total"])

	enabled := f.do(t, http.MethodPatch, "/global-admin/users/"+bobID+"/toggle-status", modToken, nil)
	require.Equal(t, "User enabled successfully", enabled.body["message"])
	created := f.do(t, http.MethodPost, "/escrow/create", aliceToken, invite)
	require.Equal(t, http.StatusCreated, created.status, created.body)

	recommended := f.do(t, http.MethodPatch, "/global-admin/users/"+bobID+"/toggle-recommendation", modToken, nil)
	require.Equal(t, "User marked as recommended successfully", recommended.body["message"])
	require.Equal(t, true, object(t, recommended.body["user"])["isRecommended"])

	denied := f.do(t, http.MethodDelete, "/global-admin/users/"+bobID, modToken, nil)
	require.Equal(t, http.StatusForbidden, denied.status)
	require.Equal(t, "PRIVILEGE_REQUIRED", denied.body["code"])

	deleted := f.do(t, http.MethodDelete, "/global-admin/users/"+bobID, rootToken, nil)
	require.Equal(t, http.StatusOK, deleted.status)
	require.Equal(t, "User deleted successfully", deleted.body["message"])
	gone := f.do(t, http.MethodGet, "/auth/profile", bobToken, nil)
	require.Equal(t, http.StatusUnauthorized, gone.status)

	recovered := f.do(t, http.MethodPatch, "/global-admin/users/"+bobID+"/recover", rootToken, nil)
	require.Equal(t, http.StatusOK, recovered.status)
	back := f.do(t, http.MethodGet, "/auth/profile", bobToken, nil)
	require.Equal(t, http.StatusOK, back.status)

	direct := f.do(t, http.MethodPost, "/global-admin/send-message/"+aliceID, modToken, map[string]any{
		"subject": "Listing review", "message": "Please add photos",
	})
	require.Equal(t, http.StatusOK, direct.status, direct.body)
	thread := f.do(t, http.MethodGet, "/tickets/"+direct.body["ticketId"].(string), aliceToken, nil)
	require.Equal(t, http.StatusOK, thread.status)
	require.Len(t, thread.body["messages"], 1)

	incomplete := f.do(t, http.MethodPost, "/global-admin/send-message/"+aliceID, modToken, map[string]any{"subject": "Hi"})
	require.Equal(t, http.StatusBadRequest, incomplete.status)

	broadcast := f.do(t, http.MethodPost, "/global-admin/broadcast-message", modToken, map[string]any{
		"subject": "Maintenance", "message": "Back at noon",
	})
	require.Equal(t, http.StatusOK, broadcast.status)
	require.EqualValues(t, 2, broadcast.body["recipientCount"])

	asUser := f.do(t, http.MethodGet, "/global-admin/users", aliceToken, nil)
	require.Equal(t, http.StatusForbidden, asUser.status)
}

func TestSupportAndPublicForms(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, aliceToken := f.register(t, "alice")

	public := f.do(t, http.MethodPost, "/auth/support-ticket", "", map[string]any{
		"email": "visitor@example.com", "message": "How do escrow fees work?",
	})
	require.Equal(t, http.StatusOK, public.status, public.body)
	require.NotEmpty(t, public.body["ticketId"])

	created := f.do(t, http.MethodPost, "/tickets", aliceToken, map[string]any{
		"subject": "Invoice missing", "description": "I cannot find invoice INV-1", "category": "billing",
	})
	require.Equal(t, http.StatusCreated, created.status, created.body)
	ticketID := object(t, created.body["ticket"])["id"].(string)

	rootToken := f.adminLogin(t, "root@marketbook.test", "bootstrap-pass")
	inbox := f.do(t, http.MethodGet, "/global-admin/tickets", rootToken, nil)
	require.Equal(t, http.StatusOK, inbox.status)
	require.EqualValues(t, 2, inbox.body["total"])

	publicOnly := f.do(t, http.MethodGet, "/global-admin/tickets?type=public", rootToken, nil)
	require.Equal(t, http.StatusOK, publicOnly.status)
	entry := object(t, publicOnly.body["tickets"].([]any)[0])
	require.Equal(t, "public", entry["type"])
	require.Equal(t, "Anonymous", entry["displayName"])

	reply := f.do(t, http.MethodPost, "/global-admin/tickets/"+ticketID+"/reply", rootToken, map[string]any{"message": "Resent it"})
	require.Equal(t, http.StatusOK, reply.status)
	require.Equal(t, "in-progress", object(t, reply.body["ticket"])["status"])

	mine := f.do(t, http.MethodGet, "/tickets/"+ticketID, aliceToken, nil)
	require.Equal(t, http.StatusOK, mine.status)
	require.Len(t, mine.body["messages"], 2)

	closed := f.do(t, http.MethodPatch, "/tickets/"+ticketID+"/close", aliceToken, nil)
	require.Equal(t, http.StatusOK, closed.status)

	require.Contains(t, f.push.audiences, notify.AudienceAdmins)
}

func TestItemsRequireAdminModeToEdit(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, token := f.register(t, "dana")

	created := f.do(t, http.MethodPost, "/items", token, map[string]any{"name": "Desk lamp", "price": 35.5, "tags": []string{"home"}})
	require.Equal(t, http.StatusCreated, created.status, created.body)
	item := object(t, created.body["item"])
	itemID := item["id"].(string)
	invoice := item["invoiceNumber"].(string)
	require.Regexp(t, `^INV-[0-9A-Z]+-[0-9A-Z]{5}$`, invoice)

	denied := f.do(t, http.MethodPut, "/items/"+itemID, token, map[string]any{"price": 40})
	require.Equal(t, http.StatusForbidden, denied.status)
	require.Equal(t, "user_admin", object(t, denied.body["details"])["required_privilege"])

	enabled := f.do(t, http.MethodPost, "/admin/register", token, nil)
	require.Equal(t, http.StatusOK, enabled.status)
	adminPassword := enabled.body["adminPassword"].(string)
	require.Len(t, adminPassword, 16)

	verified := f.do(t, http.MethodPost, "/admin/verify-password", token, map[string]any{"adminPassword": adminPassword})
	require.Equal(t, true, verified.body["verified"])

	session := f.do(t, http.MethodPost, "/admin/login", token, map[string]any{"adminPassword": adminPassword})
	require.Equal(t, http.StatusOK, session.status)
	adminToken := session.body["token"].(string)

	updated := f.do(t, http.MethodPut, "/items/"+itemID, adminToken, map[string]any{"price": 40})
	require.Equal(t, http.StatusOK, updated.status, updated.body)
	require.EqualValues(t, 40, object(t, updated.body["item"])["price"])

	claim := f.do(t, http.MethodPost, "/items/mark-paid/"+invoice, "", nil)
	require.Equal(t, http.StatusOK, claim.status, claim.body)
	unknown := f.do(t, http.MethodPost, "/items/mark-paid/INV-NOPE-00000", "", nil)
	require.Equal(t, http.StatusNotFound, unknown.status)

	approved := f.do(t, http.MethodPost, "/items/"+itemID+"/approve-payment", token, map[string]any{"approve": true})
	require.Equal(t, http.StatusOK, approved.status, approved.body)
	require.Equal(t, "Payment approved successfully", approved.body["message"])
	require.Equal(t, "paid", object(t, approved.body["item"])["status"])

	noFlag := f.do(t, http.MethodPost, "/items/"+itemID+"/approve-payment", token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, noFlag.status)

	stats := f.do(t, http.MethodGet, "/items/stats", token, nil)
	require.EqualValues(t, 1, stats.body["paidItems"])

	removed := f.do(t, http.MethodDelete, "/items/"+itemID, adminToken, nil)
	require.Equal(t, http.StatusOK, removed.status)
}

func TestHealthProbes(t *testing.T) {
	healthy := newAPIFixture(t, nil)
	live := healthy.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, "alive", live.body["status"])
	ready := healthy.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, ready.status)

	degraded := newAPIFixture(t, errors.New("connection refused"))
	ready = degraded.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, ready.status)
	require.Equal(t, "DEPENDENCY_UNAVAILABLE", ready.body["code"])
	require.Equal(t, "connection refused", object(t, ready.body["details"])["redis"])
}
