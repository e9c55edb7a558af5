package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/guard"
	"github.com/trezcool/academia/core/session"
)

func TestMetrics_observesGuards(t *testing.T) {
	m := NewMetrics()

	store := session.NewStore()
	g := guard.NewAuthGuard(store, new(guard.Recorder), guard.WithObserver(m))
	defer g.Unmount()

	g.Mount()
	store.ClearSession()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.GuardDecisions.WithLabelValues("auth", "checking")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GuardDecisions.WithLabelValues("auth", "unauthorized")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Redirects.WithLabelValues("auth", guard.DefaultLoginPath)))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.HydrationFailures.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "academia_session_hydration_failures_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
