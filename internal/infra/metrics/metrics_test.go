package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/classes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/classes/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/classes/:id", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.Enrollment("full")
	m.Job("expire_subscriptions", nil)
	m.Job("expire_subscriptions", errors.New("db"))
	m.Mail("otp", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrollments.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("expire_subscriptions", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mails.WithLabelValues("otp", "ok")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.Payment("class", "completed") })
}

func TestHandler(t *testing.T) {
	m := New()
	m.Webhook("razorpay", "processed")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `yoga_webhooks_total{provider="razorpay",result="processed"} 1`)
}
