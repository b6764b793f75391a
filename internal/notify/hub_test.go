package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/domain"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

type tokenTable map[string]*auth.Principal

func (t tokenTable) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, apperrors.NewUnauthorized("invalid token")
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	tokens := tokenTable{
		"user-token":  {Kind: domain.PrincipalUser, User: &domain.User{ID: "user-1", IsActive: true}},
		"admin-token": {Kind: domain.PrincipalGlobalAdmin, Admin: &domain.GlobalAdmin{ID: "admin-1"}},
	}
	hub := NewHub(tokens, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func waitForConnections(t *testing.T, hub *Hub, audience string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Connections(audience) == n }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsInvalidToken(t *testing.T) {
	_, srv := newTestHub(t)

	_, resp, err := dial(t, srv, "bogus")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubDeliversToAudienceOnly(t *testing.T) {
	hub, srv := newTestHub(t)

	userConn, _, err := dial(t, srv, "user-token")
	require.NoError(t, err)
	defer userConn.Close()
	adminConn, _, err := dial(t, srv, "admin-token")
	require.NoError(t, err)
	defer adminConn.Close()

	waitForConnections(t, hub, "user-1", 1)
	waitForConnections(t, hub, AudienceAdmins, 1)

	require.NoError(t, hub.Push(context.Background(), "user-1", Message{Event: "notification", Notification: map[string]any{"title": "New escrow invitation"}}))

	_ = userConn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, userConn.ReadJSON(&got))
	require.Equal(t, "notification", got.Event)
	require.Equal(t, "New escrow invitation", got.Notification.(map[string]any)["title"])

	_ = adminConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	require.Error(t, adminConn.ReadJSON(&got))
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub, srv := newTestHub(t)

	conn, _, err := dial(t, srv, "user-token")
	require.NoError(t, err)
	waitForConnections(t, hub, "user-1", 1)

	require.NoError(t, conn.Close())
	waitForConnections(t, hub, "user-1", 0)
}

func TestBrokerHandleDeliversEnvelope(t *testing.T) {
	hub, srv := newTestHub(t)
	broker := NewRedisBroker(nil, "test", hub, nil)

	conn, _, err := dial(t, srv, "admin-token")
	require.NoError(t, err)
	defer conn.Close()
	waitForConnections(t, hub, AudienceAdmins, 1)

	broker.handle(`not json`)
	broker.handle(`{"audience":"admins","message":{"event":"notification","notification":{"title":"New support ticket"}}}`)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "New support ticket", got.Notification.(map[string]any)["title"])
}
