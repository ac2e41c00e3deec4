package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.DogCreated()
	m.DogCreated()
	m.StatusTransition("available", "reserved")
	m.ObserveHTTP(http.MethodGet, "/api/v1/dogs", 200, 15*time.Millisecond)
	m.FilesCleaned(true, 3)
	m.FilesCleaned(true, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dogsCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitionsTotal.WithLabelValues("available", "reserved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/dogs", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.filesCleanupTotal.WithLabelValues("success")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DogCreated()
		m.DogDeleted()
		m.StatusTransition("a", "b")
		m.Upload("photo", true)
		m.ObserveHTTP("GET", "", 200, time.Second)
	})
}

func TestHandler_ExposesNamespace(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.DogCreated()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "purapata_dogs_created_total 1"))
}
