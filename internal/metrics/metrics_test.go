package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePartition("expense", 3, time.Millisecond, nil)
	m.ObservePartition("expense", 0, time.Millisecond, errors.New("boom"))
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveMutation("expense", "create")
	m.ObservePublish(nil)
	m.ObserveHTTP(http.MethodGet, "GET /", 200, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartitionsTotal.WithLabelValues("expense", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartitionsTotal.WithLabelValues("expense", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChartSlices.WithLabelValues("expense")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerMutations.WithLabelValues("expense", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "GET /", "200")))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var m *Registry
	m.ObservePartition("expense", 1, 0, nil)
	m.ObserveCache(true)
	m.ObserveMutation("category", "delete")
	m.ObservePublish(nil)
	m.ObserveHTTP("GET", "/", 200, 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewDefault()
	m.ObserveMutation("category", "create")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "expensepie_ledger_mutations_total"))
	assert.True(t, strings.Contains(rr.Body.String(), "go_goroutines"))
}

func TestRegisterEdge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	suspicious := int64(3)
	stats := EdgeStats{
		Suspicious:    func() int64 { return suspicious },
		RateLimited:   func() int64 { return 2 },
		ActiveClients: func() int { return 5 },
	}
	require.NoError(t, m.RegisterEdge(stats))

	suspicious = 4
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP expensepie_http_suspicious_requests_total Requests matching scanner or probe patterns
# TYPE expensepie_http_suspicious_requests_total counter
expensepie_http_suspicious_requests_total 4
`), "expensepie_http_suspicious_requests_total"))

	// Registering twice on one registry is reported, not panicked on.
	assert.Error(t, m.RegisterEdge(stats))

	var nilRegistry *Registry
	assert.NoError(t, nilRegistry.RegisterEdge(stats))
}
