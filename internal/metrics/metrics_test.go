package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAnalysis(t *testing.T) {
	m := New()

	m.ObserveAnalysis("parsed", 2*time.Second)
	m.ObserveAnalysis("parsed", time.Second)
	m.ObserveAnalysis("provider_error", 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.analysisOutcomes.WithLabelValues("parsed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.analysisOutcomes.WithLabelValues("provider_error")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.analysisOutcomes.WithLabelValues("unparsable")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/properties/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/properties/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/properties/:id", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `propvalue_http_requests_total{method="GET",path="/properties/:id",status="404"} 3`))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpInFlight))
}
