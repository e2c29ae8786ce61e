package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for enrollment attempts.
type Metrics struct {
	// Attempts that got past the cooldown gate
	AttemptsStarted prometheus.Counter

	// Final outcomes by phase and failure kind
	Outcomes *prometheus.CounterVec

	// Captures confirmed by the sensor
	CapturesConfirmed prometheus.Counter

	// Broadcast messages dropped by the event filter
	EventsDiscarded *prometheus.CounterVec

	// Persisted fingerprints the sensor did not acknowledge
	ConfirmHazards prometheus.Counter

	// Outbound call latency by target and operation
	CallLatency *prometheus.HistogramVec
}

// New registers enrollment metrics with reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AttemptsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "attendance_enrollment_attempts_total",
			Help: "Enrollment attempts that reached the instructor lock",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_enrollment_outcomes_total",
			Help: "Enrollment outcomes by final phase and failure kind",
		}, []string{"phase", "kind"}),
		CapturesConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "attendance_enrollment_captures_total",
			Help: "Fingerprint captures confirmed by the sensor",
		}),
		EventsDiscarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_enrollment_events_discarded_total",
			Help: "Broadcast messages dropped by the event filter, by reason",
		}, []string{"reason"}),
		ConfirmHazards: f.NewCounter(prometheus.CounterOpts{
			Name: "attendance_enrollment_confirm_hazards_total",
			Help: "Fingerprints persisted but not acknowledged by the sensor",
		}),
		CallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_enrollment_call_duration_seconds",
			Help:    "Duration of sensor, persistence and lock calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"target", "op"}),
	}
}

func (m *Metrics) IncAttempt() {
	if m != nil {
		m.AttemptsStarted.Inc()
	}
}

func (m *Metrics) IncOutcome(phase, kind string) {
	if m != nil {
		if kind == "" {
			kind = "none"
		}
		m.Outcomes.WithLabelValues(phase, kind).Inc()
	}
}

func (m *Metrics) IncCapture() {
	if m != nil {
		m.CapturesConfirmed.Inc()
	}
}

func (m *Metrics) IncDiscard(reason string) {
	if m != nil {
		m.EventsDiscarded.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncHazard() {
	if m != nil {
		m.ConfirmHazards.Inc()
	}
}

// ObserveCall records how long an outbound call took.
func (m *Metrics) ObserveCall(target, op string, d time.Duration) {
	if m != nil {
		m.CallLatency.WithLabelValues(target, op).Observe(d.Seconds())
	}
}
