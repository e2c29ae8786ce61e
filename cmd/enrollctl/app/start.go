package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"attendance/internal/enrollment/machine"
	enrollmetrics "attendance/internal/enrollment/metrics"
	"attendance/internal/enrollment/models"
	"attendance/internal/enrollment/service"
	"attendance/internal/platform/httpserver"
	"attendance/internal/platform/metrics"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/strings"
)

const closeWait = 5 * time.Second

var errCoordinatorStopped = errors.New("coordinator stopped")

type startOptions struct {
	instructor     string
	instructorName string
	student        string
	courses        string
	assumeYes      bool
	autoConfirm    bool
	retries        int
	metricsAddr    string
}

func newStartCmd(e *env) *cobra.Command {
	var opts startOptions

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Enroll one student's fingerprint",
		Long: `Starts an enrollment, follows the three scans on the sensor and saves
the fingerprint for every listed course.

Press Ctrl+C to cancel an attempt that is not yet being saved.`,
		Example: `  # Enroll student 42 into courses 101 and 102
  enrollctl start --instructor 7 --student 42 --courses 101,102

  # Against the simulator, saving without a prompt
  enrollctl start --instructor 7 --student 42 --courses 101 --auto-confirm --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			courses, err := parseCourses(opts.courses)
			if err != nil {
				return err
			}
			req := models.StartRequest{
				InstructorID:   models.InstructorID(opts.instructor),
				InstructorName: opts.instructorName,
				StudentID:      models.StudentID(opts.student),
				CourseIDs:      courses,
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return runStart(cmd, e, req, opts)
		},
	}

	cmd.Flags().StringVar(&opts.instructor, "instructor", "", "Instructor id the lock is taken for")
	cmd.Flags().StringVar(&opts.instructorName, "instructor-name", "", "Instructor display name")
	cmd.Flags().StringVar(&opts.student, "student", "", "Student id being enrolled")
	cmd.Flags().StringVar(&opts.courses, "courses", "", "Comma separated course ids")
	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Replace an existing registration without asking")
	cmd.Flags().BoolVar(&opts.autoConfirm, "auto-confirm", false, "Save as soon as all scans are captured")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Retry a failed attempt up to this many times")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /status here (overrides METRICS_ADDR)")

	return cmd
}

func parseCourses(value string) ([]models.CourseID, error) {
	var out []models.CourseID
	for _, s := range strings.SplitList(value) {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid course id %q", s))
		}
		out = append(out, models.CourseID(n))
	}
	return out, nil
}

func runStart(cmd *cobra.Command, e *env, req models.StartRequest, opts startOptions) error {
	ctx := cmd.Context()
	locks, closeLocks, err := openLocks(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer closeLocks()

	remote, err := dial(e.cfg, e.logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	term := newTerminal(cmd.OutOrStdout(), cmd.InOrStdin(), opts.assumeYes)
	coord, err := service.New(remote.sensor, remote.registrar, remote.channels, locks,
		service.WithLogger(e.logger),
		service.WithMetrics(enrollmetrics.New(reg)),
		service.WithCues(term),
		service.WithObserver(term),
		service.WithInterlock(term),
	)
	if err != nil {
		return err
	}

	// The coordinator outlives an interrupt long enough to cancel cleanly.
	runCtx, stopRun := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRun()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return coord.Run(gctx)
	})
	addr := e.cfg.MetricsAddr
	if opts.metricsAddr != "" {
		addr = opts.metricsAddr
	}
	if addr != "" {
		router := opsRouter(reg, metrics.New(reg), e.logger, func() any { return coord.Snapshot() })
		g.Go(func() error {
			return httpserver.Serve(gctx, httpserver.New(addr, router))
		})
	}
	g.Go(func() error {
		defer stopRun()
		d := &driver{coord: coord, term: term, opts: opts, stopped: gctx.Done()}
		return d.run(ctx, req)
	})

	return g.Wait()
}

// driver answers the coordinator's views on behalf of the user.
type driver struct {
	coord   *service.Coordinator
	term    *terminal
	opts    startOptions
	stopped <-chan struct{}

	retrying bool
}

func (d *driver) run(ctx context.Context, req models.StartRequest) error {
	if err := d.startWhenReady(ctx, req); err != nil {
		if errors.Is(err, service.ErrReplacementDeclined) {
			fmt.Fprintln(d.term.out, "Existing registration kept.")
			return nil
		}
		return err
	}

	retries := d.opts.retries
	for {
		select {
		case <-ctx.Done():
			return d.cancel()
		case <-d.stopped:
			return errCoordinatorStopped
		case <-d.term.changes:
		}

		v := d.coord.Snapshot()
		if d.retrying && v.Phase != models.PhaseFailed {
			d.retrying = false
		}
		switch {
		case v.ConfirmEnabled:
			if err := d.confirm(ctx); err != nil {
				return err
			}
		case v.Phase == models.PhaseSucceeded:
			return report(d.term, v)
		case v.Phase == models.PhaseCancelled:
			return errors.New("enrollment cancelled")
		case v.Phase == models.PhaseFailed && !d.retrying:
			if v.RetryEnabled && retries > 0 {
				retries--
				d.retrying = true
				fmt.Fprintln(d.term.out, "Retrying...")
				if err := d.coord.Retry(ctx); err != nil {
					return err
				}
				continue
			}
			return report(d.term, v)
		}
	}
}

// startWhenReady waits for the coordinator's first view, which it publishes
// once running, and then for start to be enabled.
func (d *driver) startWhenReady(ctx context.Context, req models.StartRequest) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stopped:
			return errCoordinatorStopped
		case <-d.term.changes:
		}
		if d.coord.Snapshot().StartEnabled {
			return d.coord.Start(ctx, req)
		}
	}
}

func (d *driver) confirm(ctx context.Context) error {
	if !d.opts.autoConfirm {
		if _, err := d.term.ask(ctx, "All scans captured. Press Enter to save the fingerprint. "); err != nil {
			return d.cancel()
		}
	}
	err := d.coord.Confirm(ctx)
	if dErrors.HasCode(err, dErrors.CodeInvalidState) {
		return nil
	}
	return err
}

// cancel closes the current attempt after an interrupt. Nothing is closed
// while the fingerprint is being saved.
func (d *driver) cancel() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeWait)
	defer cancel()
	if err := d.coord.Close(ctx); err != nil {
		fmt.Fprintln(d.term.out, "Could not cancel:", err)
	}
	return context.Canceled
}

func report(t *terminal, v machine.View) error {
	if v.Outcome == nil {
		return nil
	}
	if v.Outcome.Phase == models.PhaseSucceeded {
		fmt.Fprintln(t.out, v.Outcome.Message)
		if v.Outcome.Hazard {
			fmt.Fprintln(t.out, "Warning:", machine.MsgConfirmHazard)
		}
		return nil
	}
	return fmt.Errorf("enrollment failed (%s): %s", v.Outcome.Kind, v.Outcome.Message)
}
