// Package service runs the enrollment state machine against real devices.
//
// A Coordinator owns one machine.State on a single goroutine. User actions,
// timer expiries, HTTP completions and broadcast messages are all posted to
// its inbox, so transitions never interleave. Work that blocks runs in its own
// goroutine and reports back as a machine.Input.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"k8s.io/utils/clock"

	"attendance/internal/biometricapi"
	"attendance/internal/enrollment/machine"
	"attendance/internal/enrollment/metrics"
	"attendance/internal/enrollment/models"
	dErrors "attendance/pkg/domain-errors"
)

const inboxSize = 64

// ErrReplacementDeclined is returned by Start when the student already has a
// registration and the user chose not to replace it.
var ErrReplacementDeclined = errors.New("replacement declined")

// envelope is one inbox item. guard, when set, runs on the loop against the
// current state and rejects the input by returning an error. attach runs on
// the loop before the input is stepped.
type envelope struct {
	in     machine.Input
	guard  func(machine.State) error
	attach func()
	reply  chan error
}

// Coordinator drives enrollment attempts for one client.
type Coordinator struct {
	sensor    Sensor
	registrar Registrar
	channels  Broadcast
	locks     Locks
	cues      Cues
	observer  Observer
	interlock Interlock

	clock   clock.WithDelayedExecution
	logger  *slog.Logger
	metrics *metrics.Metrics

	inbox   chan envelope
	done    chan struct{}
	running atomic.Bool
	view    atomic.Pointer[machine.View]

	// owned by the loop goroutine
	state   machine.State
	streams map[uint64]*channel
	ctx     context.Context
	wg      sync.WaitGroup
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithClock(clk clock.WithDelayedExecution) Option {
	return func(c *Coordinator) {
		c.clock = clk
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithCues(cues Cues) Option {
	return func(c *Coordinator) {
		c.cues = cues
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// WithInterlock enables the replace-existing-registration prompt. Without
// one, existing registrations are replaced silently.
func WithInterlock(i Interlock) Option {
	return func(c *Coordinator) {
		c.interlock = i
	}
}

// New creates a Coordinator. Call Run before issuing user actions.
func New(sensor Sensor, registrar Registrar, channels Broadcast, locks Locks, opts ...Option) (*Coordinator, error) {
	if sensor == nil {
		return nil, errors.New("sensor is required")
	}
	if registrar == nil {
		return nil, errors.New("registrar is required")
	}
	if channels == nil {
		return nil, errors.New("broadcast is required")
	}
	if locks == nil {
		return nil, errors.New("lock registry is required")
	}
	c := &Coordinator{
		sensor:    sensor,
		registrar: registrar,
		channels:  channels,
		locks:     locks,
		clock:     clock.RealClock{},
		logger:    slog.Default(),
		inbox:     make(chan envelope, inboxSize),
		done:      make(chan struct{}),
		state:     machine.Initial(),
		streams:   make(map[uint64]*channel),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	v := c.state.View(c.clock.Now())
	c.view.Store(&v)
	return c, nil
}

// Run sweeps stale instructor locks and then processes inputs until ctx is
// cancelled. A lock held at shutdown is released.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return dErrors.New(dErrors.CodeInvalidState, "coordinator already running")
	}
	c.ctx = ctx

	if n, err := c.locks.SweepStale(ctx); err != nil {
		c.logger.WarnContext(ctx, "stale lock sweep failed", "error", err)
	} else if n > 0 {
		c.logger.InfoContext(ctx, "stale instructor locks cleared", "count", n)
	}
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case env := <-c.inbox:
			c.handle(env)
		}
	}
}

func (c *Coordinator) handle(env envelope) {
	if env.guard != nil {
		if err := env.guard(c.state); err != nil {
			env.reply <- err
			return
		}
	}
	if env.attach != nil {
		env.attach()
	}
	if env.in != nil {
		c.apply(env.in)
	}
	if env.reply != nil {
		env.reply <- nil
	}
}

func (c *Coordinator) apply(in machine.Input) {
	prev := c.state
	next, effects := machine.Step(c.state, in, c.clock.Now())
	c.state = next
	if next.Progress.ConfirmedCount > prev.Progress.ConfirmedCount && next.Session != nil && prev.Session != nil && next.Session.ID == prev.Session.ID {
		c.metrics.IncCapture()
	}
	for _, e := range effects {
		c.execute(e)
	}
	c.publish()
}

func (c *Coordinator) publish() {
	v := c.state.View(c.clock.Now())
	c.view.Store(&v)
	if c.observer != nil {
		c.observer.Update(v)
	}
}

// shutdown releases what the current attempt holds and stops the inbox.
// In-flight calls see the cancelled context and their completions are
// dropped.
func (c *Coordinator) shutdown() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), lockCallTimeout)
	defer cancel()
	if s := c.state; s.LockHeld && s.Session != nil {
		if err := c.locks.Release(ctx, s.Session.InstructorID, s.Session.StudentID); err != nil {
			c.logger.WarnContext(ctx, "release lock on shutdown", "error", err)
		}
	}
	if c.state.Phase.Committing() {
		c.logger.WarnContext(ctx, "shutting down during submission", "session_id", c.state.Session.ID)
	}
	for id, ch := range c.streams {
		delete(c.streams, id)
		_ = ch.stream.Close()
	}
	close(c.done)
	c.wg.Wait()

	// Acquisitions queued behind the cancellation were never stepped.
	for {
		select {
		case env := <-c.inbox:
			if r, ok := env.in.(machine.LockResult); ok && r.Acquired && r.Err == nil {
				c.releaseOrphan(r.Instructor, r.Student)
			}
		default:
			return
		}
	}
}

// releaseOrphan gives back a lock whose acquisition the loop will never see.
func (c *Coordinator) releaseOrphan(instructor models.InstructorID, student models.StudentID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), lockCallTimeout)
	defer cancel()
	if err := c.locks.Release(ctx, instructor, student); err != nil {
		c.logger.WarnContext(ctx, "release orphaned lock", "instructor_id", instructor, "error", err)
	}
}

// post delivers in to the loop. It is a no-op once the loop has stopped.
func (c *Coordinator) post(in machine.Input) {
	c.send(envelope{in: in})
}

func (c *Coordinator) send(env envelope) bool {
	select {
	case c.inbox <- env:
		return true
	case <-c.done:
		return false
	}
}

// call posts an input guarded by check and waits for the loop's verdict.
func (c *Coordinator) call(ctx context.Context, in machine.Input, check func(machine.State) error) error {
	if !c.running.Load() {
		return dErrors.New(dErrors.CodeInvalidState, "coordinator is not running")
	}
	reply := make(chan error, 1)
	if !c.send(envelope{in: in, guard: check, reply: reply}) {
		return dErrors.New(dErrors.CodeInvalidState, "coordinator stopped")
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return dErrors.New(dErrors.CodeInvalidState, "coordinator stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the latest view. It is safe to call from any goroutine.
func (c *Coordinator) Snapshot() machine.View {
	return *c.view.Load()
}

// Start begins an attempt for req. It runs the existing-registration check
// and, when the student already has a fingerprint, asks the Interlock before
// anything is locked or sent to the sensor. A failed check is logged and
// ignored.
func (c *Coordinator) Start(ctx context.Context, req models.StartRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if v := c.Snapshot(); !v.StartEnabled {
		return dErrors.New(dErrors.CodeConflict, "an enrollment is already in progress")
	}

	if existing := c.precheck(ctx, req); existing != nil && existing.HasExistingRegistration {
		if c.interlock != nil && !c.interlock.ConfirmReplacement(ctx, existing.InstructorName) {
			c.logger.InfoContext(ctx, "replacement declined", "student_id", req.StudentID)
			return ErrReplacementDeclined
		}
		logAudit(ctx, c.logger, slog.LevelInfo, EventReplacementAsked,
			"student_id", string(req.StudentID),
			"previous_instructor", existing.InstructorName,
		)
	}

	return c.call(ctx, machine.StartRequested{Request: req}, func(s machine.State) error {
		if !s.View(c.clock.Now()).StartEnabled {
			return dErrors.New(dErrors.CodeConflict, "an enrollment is already in progress")
		}
		return nil
	})
}

func (c *Coordinator) precheck(ctx context.Context, req models.StartRequest) *biometricapi.CheckExistingResponse {
	ctx, cancel := context.WithTimeout(ctx, models.PrecheckTimeout)
	defer cancel()
	start := c.clock.Now()
	resp, err := c.registrar.CheckExisting(ctx, biometricapi.CheckExistingRequest{
		StudentID: req.StudentID,
		CourseIDs: req.CourseIDs,
	})
	c.metrics.ObserveCall("persistence", "check_existing", c.clock.Since(start))
	if err != nil {
		c.logger.WarnContext(ctx, "existing registration check failed, continuing", "student_id", req.StudentID, "error", err)
		return nil
	}
	return resp
}

// Confirm submits a completed capture.
func (c *Coordinator) Confirm(ctx context.Context) error {
	return c.call(ctx, machine.ConfirmRequested{}, func(s machine.State) error {
		if s.Phase != models.PhaseCapturesComplete || s.Submitted {
			return dErrors.New(dErrors.CodeInvalidState, "captures are not ready to confirm")
		}
		return nil
	})
}

// Retry restarts after a retryable failure.
func (c *Coordinator) Retry(ctx context.Context) error {
	return c.call(ctx, machine.RetryRequested{}, func(s machine.State) error {
		if s.Phase != models.PhaseFailed || s.Outcome == nil || !s.Outcome.Retryable {
			return dErrors.New(dErrors.CodeInvalidState, "nothing to retry")
		}
		if s.RetryPending {
			return dErrors.New(dErrors.CodeConflict, "retry already scheduled")
		}
		return nil
	})
}

// Close cancels the current attempt. It is refused while the fingerprint is
// being saved and does nothing after success.
func (c *Coordinator) Close(ctx context.Context) error {
	return c.call(ctx, machine.CloseRequested{}, func(s machine.State) error {
		if s.Phase.Committing() {
			return dErrors.New(dErrors.CodeConflict, "cannot cancel while the fingerprint is being saved")
		}
		return nil
	})
}
