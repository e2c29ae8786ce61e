package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"attendance/internal/platform/httpserver"
	"attendance/internal/platform/metrics"
	"attendance/internal/sensorsim"
)

func newSimulateCmd(e *env) *cobra.Command {
	var (
		addr       string
		scenario   string
		csrfToken  string
		instructor string
		timing     = sensorsim.DefaultTiming
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a simulated sensor, broadcast channel and persistence API",
		Long: `Serves the sensor endpoints, the enrollment WebSocket channel and the
biometric persistence API on one address so enrollctl start can run without
hardware or a backend.

Scenarios: happy, capture-failure, sensor-reject, confirm-failure,
persistence-reject.`,
		Example: `  enrollctl simulate --addr :8000 --scenario capture-failure

  # in another terminal
  SENSOR_URL=http://localhost:8000 BROADCAST_URL=ws://localhost:8000 \
  PERSISTENCE_URL=http://localhost:8000/api/biometric/ \
  enrollctl start --instructor 7 --student 42 --courses 101`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := sensorsim.ParseScenario(scenario)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			sim := sensorsim.New(
				sensorsim.WithScenario(sc),
				sensorsim.WithTiming(timing),
				sensorsim.WithCSRFToken(csrfToken),
				sensorsim.WithInstructorName(instructor),
				sensorsim.WithLogger(e.logger),
				sensorsim.WithMetrics(metrics.New(reg)),
			)
			defer sim.Close()

			r := chi.NewRouter()
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			r.Mount("/", sim.Router())

			e.logger.Info("simulator listening",
				"addr", addr,
				"scenario", sc,
				"persistence_prefix", sensorsim.PersistencePrefix,
			)
			return httpserver.Serve(cmd.Context(), httpserver.New(addr, r))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	cmd.Flags().StringVar(&scenario, "scenario", string(sensorsim.ScenarioHappy), "Behaviour to simulate")
	cmd.Flags().StringVar(&csrfToken, "csrf-token", "", "Require this X-CSRFToken on persistence calls")
	cmd.Flags().StringVar(&instructor, "instructor-name", "Simulated Instructor", "Name reported for existing registrations")
	cmd.Flags().DurationVar(&timing.StartDelay, "start-delay", timing.StartDelay, "Delay before the first finger")
	cmd.Flags().DurationVar(&timing.ScanInterval, "scan-interval", timing.ScanInterval, "Time one scan takes")

	return cmd
}
