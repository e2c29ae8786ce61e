package app

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance/internal/enrollment/machine"
	"attendance/internal/enrollment/models"
	"attendance/internal/platform/config"
	"attendance/internal/platform/logger"
	"attendance/internal/platform/metrics"
	"attendance/pkg/testutil"
)

func TestOpsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	view := machine.View{Phase: models.PhaseListening, Counter: "0/3"}
	router := opsRouter(reg, metrics.New(reg), logger.Discard(), func() any { return view })

	rr := testutil.Get(router, "/status")
	testutil.RequireStatus(t, rr, http.StatusOK)
	assert.Equal(t, "listening", testutil.Field(t, rr, "phase").String())
	assert.Equal(t, "0/3", testutil.Field(t, rr, "counter").String())

	rr = testutil.Get(router, "/metrics")
	testutil.RequireStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `attendance_http_request_duration_seconds_count{route="/status",status="2xx"} 1`)
}

func TestOpenLocksFallsBackToMemory(t *testing.T) {
	cfg := config.Config{LockNamespace: "room-204"}
	locks, closeLocks, err := openLocks(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer closeLocks()

	ok, err := locks.TryAcquire(context.Background(), "7", "42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locks.TryAcquire(context.Background(), "7", "43")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDialBuildsClients(t *testing.T) {
	cfg := config.Config{
		SensorURL:      "http://127.0.0.1:9",
		BroadcastURL:   "ws://127.0.0.1:9",
		PersistenceURL: "http://127.0.0.1:9/api/biometric",
		SessionCookie:  "abc",
	}
	remote, err := dial(cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9/ws/biometric/enrollment/enrollment_x/", remote.channels.URL("enrollment_x"))
}
