package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersIncrement(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/escrow/tickets/:id", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/escrow/tickets/:id", "GET", 200, 5*time.Millisecond)
	m.RecordError("/escrow/tickets/:id", "GET", "NOT_FOUND")
	m.RecordEscrowAction("accept")
	m.RecordNotification("push", errors.New("no connection"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/escrow/tickets/:id", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("GET", "/escrow/tickets/:id", "NOT_FOUND")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.escrowActions.WithLabelValues("accept")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("push", "error")))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordEscrowAction("close")
		m.RecordNotification("store", nil)
	})
}

func TestMetricsHandlerExposesFamilies(t *testing.T) {
	m := NewMetrics()
	m.RecordEscrowAction("create")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "marketbook_escrow_actions_total")
}
