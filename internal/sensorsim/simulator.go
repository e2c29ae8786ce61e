package sensorsim

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"k8s.io/utils/clock"

	"attendance/internal/platform/metrics"
	"attendance/internal/platform/middleware"
)

// PersistencePrefix is where the persistence API is mounted. Point the
// biometric API client at <base>/api/biometric/.
const PersistencePrefix = "/api/biometric"

// Simulator bundles the device, the hub and the backend.
type Simulator struct {
	Device  *Device
	Hub     *Hub
	Backend *Backend

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type config struct {
	scenario   Scenario
	timing     Timing
	clock      clock.Clock
	csrfToken  string
	instructor string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*config)

func WithScenario(s Scenario) Option {
	return func(c *config) {
		c.scenario = s
	}
}

func WithTiming(t Timing) Option {
	return func(c *config) {
		c.timing = t
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithCSRFToken makes the persistence API require the X-CSRFToken header.
func WithCSRFToken(token string) Option {
	return func(c *config) {
		c.csrfToken = token
	}
}

// WithInstructorName sets the name reported for existing registrations.
func WithInstructorName(name string) Option {
	return func(c *config) {
		c.instructor = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

func New(opts ...Option) *Simulator {
	cfg := config{
		scenario:   ScenarioHappy,
		timing:     DefaultTiming,
		clock:      clock.RealClock{},
		instructor: "Simulated Instructor",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	hub := NewHub(cfg.logger)
	return &Simulator{
		Device:  newDevice(hub, cfg.scenario, cfg.timing, cfg.clock, cfg.logger),
		Hub:     hub,
		Backend: newBackend(cfg.scenario, cfg.csrfToken, cfg.instructor, cfg.logger),
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}

// Router serves the device endpoints at the root, the broadcast channel under
// /ws and the persistence API under PersistencePrefix.
func (s *Simulator) Router() http.Handler {
	r := chi.NewRouter()
	middleware.Standard(r, s.logger, s.metrics)

	r.Get("/status", s.Device.handleStatus)
	r.Post("/enroll", s.Device.handleEnroll)
	r.Post("/enroll/confirm", s.Device.handleConfirm)
	r.Post("/enroll/cancel", s.Device.handleCancel)

	r.Get("/ws/biometric/enrollment/{sessionID}/", s.Hub.ServeWS)

	r.Route(PersistencePrefix, func(api chi.Router) {
		api.Use(s.Backend.csrf)
		api.Post("/enroll/", s.Backend.handleEnroll)
		api.Post("/check-existing/", s.Backend.handleCheckExisting)
	})
	return r
}

// Close stops capture goroutines and disconnects subscribers.
func (s *Simulator) Close() {
	s.Device.Close()
	s.Hub.Close()
}
