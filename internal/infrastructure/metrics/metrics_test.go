package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := New("users_test")
	m.ObserveOperation("create", nil)
	m.ObserveOperation("create", nil)
	m.ObserveOperation("create", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UserOperations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UserOperations.WithLabelValues("create", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("create", nil)
	m.ObservePublished("log", "UserCreated")
	m.ObservePublishError("log")
	m.ObserveIndexError()
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New("users_test")
	m.ObservePublished("log", "UserCreated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `users_test_domain_events_published_total{event_type="UserCreated",sink="log"} 1`)
}
