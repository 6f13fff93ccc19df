package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/events"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveCall("POST /api/workspaces", http.StatusCreated, 15*time.Millisecond)
	m.ObserveCall("POST /api/workspaces", http.StatusCreated, 5*time.Millisecond)
	m.ObserveEmail("sent")
	require.NoError(t, m.EventHandler()(context.Background(), events.New(events.InviteCreated, nil)))

	require.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("POST /api/workspaces", "201")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("invite.created")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("sent")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveCall("GET /health", http.StatusOK, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "workspace_api_calls_total")
}
