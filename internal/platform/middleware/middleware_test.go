package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"attendance/internal/platform/logger"
	"attendance/internal/platform/metrics"
)

func TestStandard(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := chi.NewRouter()
	Standard(r, logger.Discard(), m)

	var requestID string
	r.Get("/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		requestID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("sensor table corrupted")
	})

	t.Run("request id and latency", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/abc", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.NotEmpty(t, requestID)
		assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
	})

	t.Run("panic becomes 500", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "internal_error")
	})
}
