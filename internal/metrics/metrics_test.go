package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	c.Pushed("monitor")
	c.Pushed("apps")
	c.Pushed("apps")
	c.Tick(TickUnchanged)
	c.ProbeFailed("monitors")
	c.SessionRejected("duplicate")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pushes.WithLabelValues("apps")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ticks.WithLabelValues(TickUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.probeFailures.WithLabelValues("monitors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("duplicate")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SessionOpened()
		c.SessionClosed()
		c.SessionRejected("limit")
		c.Tick(TickChanged)
		c.Pushed("monitor")
		c.ProbeFailed("apps")
	})
	assert.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposition(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	c.Pushed("monitor")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `hoststate_pushes_total{channel="monitor"} 1`), body)
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
