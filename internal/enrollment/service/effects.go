package service

import (
	"context"
	"log/slog"
	"time"

	"attendance/internal/biometricapi"
	"attendance/internal/broadcast"
	"attendance/internal/enrollment/events"
	"attendance/internal/enrollment/machine"
	"attendance/internal/enrollment/models"
	"attendance/internal/sensor"
)

const lockCallTimeout = 5 * time.Second

// channel is an open broadcast subscription tracked by the loop.
type channel struct {
	session models.SessionID
	stream  broadcast.Stream
}

// execute starts the work for one effect. It runs on the loop and never
// blocks on I/O.
func (c *Coordinator) execute(e machine.Effect) {
	switch e := e.(type) {
	case machine.AcquireLock:
		c.metrics.IncAttempt()
		logAudit(c.ctx, c.logger, slog.LevelInfo, EventAttemptStarted,
			"session_id", string(e.Session),
			"student_id", string(e.Student),
			"instructor_id", string(e.Instructor),
		)
		c.async(lockCallTimeout, "lock", "acquire", func(ctx context.Context) {
			ok, err := c.locks.TryAcquire(ctx, e.Instructor, e.Student)
			if err != nil {
				c.logger.WarnContext(ctx, "instructor lock unavailable", "instructor_id", e.Instructor, "error", err)
			}
			result := machine.LockResult{Session: e.Session, Instructor: e.Instructor, Student: e.Student, Acquired: ok, Err: err}
			if !c.send(envelope{in: result}) && ok && err == nil {
				c.releaseOrphan(e.Instructor, e.Student)
			}
		})

	case machine.ReleaseLock:
		c.async(lockCallTimeout, "lock", "release", func(ctx context.Context) {
			if err := c.locks.Release(ctx, e.Instructor, e.Student); err != nil {
				c.logger.WarnContext(ctx, "release instructor lock", "instructor_id", e.Instructor, "error", err)
			}
		})

	case machine.SensorEnroll:
		c.async(models.SensorAcceptTimeout, "sensor", "enroll", func(ctx context.Context) {
			_, err := c.sensor.Enroll(ctx, sensor.EnrollRequest{Slot: e.Slot, TemplateID: e.TemplateID})
			c.post(machine.SensorAcceptResult{Session: e.Session, Err: err})
		})

	case machine.SensorConfirm:
		c.async(models.SensorConfirmTimeout, "sensor", "confirm", func(ctx context.Context) {
			err := c.sensor.Confirm(ctx, sensor.ConfirmRequest{FingerprintID: e.FingerprintID, TemplateID: e.TemplateID})
			c.post(machine.SensorConfirmResult{Session: e.Session, Err: err})
		})

	case machine.SensorCancel:
		c.async(models.SensorAcceptTimeout, "sensor", "cancel", func(ctx context.Context) {
			if err := c.sensor.Cancel(ctx); err != nil {
				c.logger.DebugContext(ctx, "sensor cancel failed", "error", err)
			}
		})

	case machine.OpenChannel:
		c.openChannel(e)

	case machine.CloseChannel:
		if ch, ok := c.streams[e.Channel]; ok {
			delete(c.streams, e.Channel)
			if err := ch.stream.Close(); err != nil {
				c.logger.DebugContext(c.ctx, "close enrollment channel", "session_id", ch.session, "error", err)
			}
		}

	case machine.ScheduleRestart:
		c.after(e.After, machine.RestartDue{Gen: e.Gen})
	case machine.ScheduleCountdown:
		c.after(e.After, machine.CountdownTick{Gen: e.Gen})
	case machine.ScheduleChannelReady:
		c.after(e.After, machine.ChannelReady{Channel: e.Channel, Gen: e.Gen})

	case machine.PlayCue:
		c.playCue(e)

	case machine.Submit:
		c.async(models.PersistenceTimeout, "persistence", "enroll", func(ctx context.Context) {
			resp, err := c.registrar.Enroll(ctx, biometricapi.EnrollRequest{
				CourseIDs:     e.CourseIDs,
				BiometricData: e.TemplateID,
				BiometricType: biometricapi.BiometricTypeFingerprint,
				Confirmations: e.Confirmations,
			})
			result := machine.PersistenceResult{Session: e.Session, Err: err}
			if err == nil && resp != nil {
				result.Record = &models.FingerprintRecord{FingerprintID: resp.FingerprintID, IsReplacement: resp.IsReplacement}
			}
			c.post(result)
		})

	case machine.Notify:
		c.logger.DebugContext(c.ctx, "notice", "level", e.Level, "text", e.Text)

	case machine.Discard:
		c.metrics.IncDiscard(string(e.Reason))
		c.logger.DebugContext(c.ctx, "broadcast message dropped", "channel", e.Channel, "reason", e.Reason)

	case machine.Hazard:
		c.metrics.IncHazard()
		logAudit(c.ctx, c.logger, slog.LevelError, EventConfirmHazard,
			"session_id", string(e.Session),
			"fingerprint_id", e.FingerprintID,
			"error", e.Err,
		)

	case machine.Reload:
		c.logger.InfoContext(c.ctx, "enrollment list reload requested")

	case machine.Finished:
		c.metrics.IncOutcome(string(e.Outcome.Phase), string(e.Outcome.Kind))
		level := slog.LevelInfo
		if e.Outcome.Phase == models.PhaseFailed {
			level = slog.LevelWarn
		}
		logAudit(c.ctx, c.logger, level, EventAttemptFinished,
			"phase", string(e.Outcome.Phase),
			"kind", string(e.Outcome.Kind),
			"message", e.Outcome.Message,
			"retryable", e.Outcome.Retryable,
		)
	}
}

// async runs fn in its own goroutine with a bounded context and records its
// latency.
func (c *Coordinator) async(bound time.Duration, target, op string, fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, bound)
		defer cancel()
		start := c.clock.Now()
		fn(ctx)
		c.metrics.ObserveCall(target, op, c.clock.Since(start))
	}()
}

func (c *Coordinator) after(d time.Duration, in machine.Input) {
	c.clock.AfterFunc(d, func() {
		c.post(in)
	})
}

func (c *Coordinator) openChannel(e machine.OpenChannel) {
	c.async(models.SensorAcceptTimeout, "broadcast", "open", func(ctx context.Context) {
		stream, err := c.channels.Open(ctx, e.Session)
		if err != nil {
			c.post(machine.ChannelFailed{Channel: e.Channel, Err: err})
			return
		}
		ch := &channel{session: e.Session, stream: stream}
		attached := c.send(envelope{
			in: machine.ChannelOpened{Channel: e.Channel},
			attach: func() {
				c.streams[e.Channel] = ch
				c.wg.Add(1)
				go c.pump(e.Channel, ch)
			},
		})
		if !attached {
			_ = stream.Close()
		}
	})
}

// pump forwards decoded messages from one channel until it ends.
func (c *Coordinator) pump(id uint64, ch *channel) {
	defer c.wg.Done()
	for raw := range ch.stream.Messages() {
		ev, err := events.Decode(raw)
		if err != nil {
			c.metrics.IncDiscard("malformed")
			c.logger.WarnContext(c.ctx, "malformed enrollment message", "session_id", ch.session, "error", err)
			continue
		}
		c.post(machine.EventReceived{Channel: id, Event: ev})
	}
	c.post(machine.ChannelClosed{Channel: id, Err: ch.stream.Err()})
}

// playCue plays e. A blocking cue reports back when it ends or its fallback
// elapses, whichever is first, so a silent output never stalls the flow.
func (c *Coordinator) playCue(e machine.PlayCue) {
	if !e.Blocking {
		if c.cues == nil {
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.cues.Play(c.ctx, e.Cue); err != nil {
				c.logger.DebugContext(c.ctx, "cue failed", "cue", e.Cue, "error", err)
			}
		}()
		return
	}

	if c.cues == nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.post(machine.CueFinished{Gen: e.Gen})
		}()
		return
	}
	fallback := c.clock.After(e.Fallback)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		played := make(chan error, 1)
		go func() {
			played <- c.cues.Play(c.ctx, e.Cue)
		}()
		select {
		case err := <-played:
			if err != nil {
				c.logger.DebugContext(c.ctx, "cue failed", "cue", e.Cue, "error", err)
			}
		case <-fallback:
			c.logger.DebugContext(c.ctx, "cue fallback elapsed", "cue", e.Cue)
		case <-c.ctx.Done():
			return
		}
		c.post(machine.CueFinished{Gen: e.Gen})
	}()
}
