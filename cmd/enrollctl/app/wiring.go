package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendance/internal/biometricapi"
	"attendance/internal/broadcast"
	"attendance/internal/lockregistry"
	"attendance/internal/lockregistry/store"
	"attendance/internal/platform/config"
	"attendance/internal/platform/metrics"
	"attendance/internal/platform/middleware"
	redisclient "attendance/internal/platform/redis"
	"attendance/internal/sensor"
	"attendance/pkg/platform/httputil"
)

// openLocks returns the lock registry and a close func. REDIS_URL selects the
// shared Redis store; without it locks live in this process only.
func openLocks(ctx context.Context, cfg config.Config, logger *slog.Logger) (*lockregistry.Registry, func(), error) {
	opts := []lockregistry.Option{
		lockregistry.WithNamespace(cfg.LockNamespace),
		lockregistry.WithLogger(logger),
	}
	client, err := redisclient.Open(ctx, cfg.Redis, logger)
	if errors.Is(err, redisclient.ErrNotConfigured) {
		logger.Debug("using in-memory lock store")
		return lockregistry.New(store.NewInMemoryStore(), opts...), func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect lock store: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	return lockregistry.New(store.NewRedisStore(client), opts...), closeFn, nil
}

// collaborators are the remote ends one coordinator talks to.
type collaborators struct {
	sensor    *sensor.Client
	registrar *biometricapi.Client
	channels  *broadcast.Dialer
}

func dial(cfg config.Config, logger *slog.Logger) (*collaborators, error) {
	registrar, err := biometricapi.New(cfg.PersistenceURL,
		biometricapi.WithCSRF(cfg.CSRFToken, cfg.SessionCookie),
		biometricapi.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	var header http.Header
	if cfg.SessionCookie != "" {
		header = http.Header{}
		header.Set("Cookie", "sessionid="+cfg.SessionCookie)
	}
	return &collaborators{
		sensor:    sensor.New(cfg.SensorURL, sensor.WithLogger(logger)),
		registrar: registrar,
		channels:  broadcast.NewDialer(cfg.BroadcastURL, broadcast.WithHeader(header), broadcast.WithLogger(logger)),
	}, nil
}

// opsRouter serves /metrics for reg and a /status probe reporting status().
func opsRouter(reg *prometheus.Registry, m *metrics.Metrics, logger *slog.Logger, status func() any) http.Handler {
	r := chi.NewRouter()
	middleware.Standard(r, logger, m)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, status())
	})
	return r
}
