package machine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attendance/internal/enrollment/events"
	"attendance/internal/enrollment/models"
)

// StepSuite drives the machine through full attempts with a manual clock.
type StepSuite struct {
	suite.Suite
	now time.Time
	st  State
}

func TestStepSuite(t *testing.T) {
	suite.Run(t, new(StepSuite))
}

func (s *StepSuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.st = Initial()
}

func (s *StepSuite) request() models.StartRequest {
	return models.StartRequest{
		InstructorID: "instructor-7",
		StudentID:    "student-a",
		CourseIDs:    []models.CourseID{101, 102},
	}
}

func (s *StepSuite) step(in Input) []Effect {
	var effects []Effect
	s.st, effects = Step(s.st, in, s.now)
	return effects
}

func (s *StepSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *StepSuite) event(raw string) EventReceived {
	ev, err := events.Decode([]byte(raw))
	s.Require().NoError(err)
	return EventReceived{Channel: s.st.Channel, Event: ev}
}

func (s *StepSuite) scan(slot int) []Effect {
	return s.step(s.event(fmt.Sprintf(`{"type":"scan_update","success":true,"slot":%d,"quality":80}`, slot)))
}

// startToCapturing runs start, lock, sensor accept, channel open and settle.
func (s *StepSuite) startToCapturing() {
	s.step(StartRequested{Request: s.request()})
	s.Require().Equal(models.PhaseLocking, s.st.Phase)
	s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
	s.step(SensorAcceptResult{Session: s.st.Session.ID})
	s.Require().Equal(models.PhaseListening, s.st.Phase)
	s.step(ChannelOpened{Channel: s.st.Channel})
	s.advance(models.ChannelReadySettle)
	s.step(ChannelReady{Channel: s.st.Channel, Gen: s.st.Generation})
	s.Require().Equal(models.PhaseCapturing, s.st.Phase)
}

func (s *StepSuite) toCapturesComplete() {
	s.startToCapturing()
	s.advance(2 * time.Second)
	for slot := 1; slot <= 3; slot++ {
		s.scan(slot)
	}
	s.Require().Equal(models.PhaseCapturesComplete, s.st.Phase)
}

func (s *StepSuite) toSubmitting() models.SessionID {
	s.toCapturesComplete()
	s.step(ConfirmRequested{})
	s.step(CueFinished{Gen: s.st.Generation})
	s.Require().Equal(models.PhaseSubmitting, s.st.Phase)
	return s.st.Session.ID
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func countEffects[T Effect](effects []Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

func (s *StepSuite) TestStart() {
	s.Run("acquires the lock before contacting the sensor", func() {
		effects := s.step(StartRequested{Request: s.request()})
		lock, ok := findEffect[AcquireLock](effects)
		s.Require().True(ok)
		s.Equal(models.InstructorID("instructor-7"), lock.Instructor)
		s.Equal(models.StudentID("student-a"), lock.Student)
		_, contacted := findEffect[SensorEnroll](effects)
		s.False(contacted)

		effects = s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		enroll, ok := findEffect[SensorEnroll](effects)
		s.Require().True(ok)
		s.Equal(1, enroll.Slot)
		s.Equal(string(s.st.Session.ID), enroll.TemplateID)
		s.Equal(models.PhaseAwaitingSensorAccept, s.st.Phase)
		s.True(s.st.LockHeld)
	})

	s.Run("second start while in flight is ignored", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		id := s.st.Session.ID
		effects := s.step(StartRequested{Request: s.request()})
		s.Empty(effects)
		s.Equal(id, s.st.Session.ID)
	})

	s.Run("empty course list never reaches the sensor", func() {
		s.SetupTest()
		req := s.request()
		req.CourseIDs = nil
		effects := s.step(StartRequested{Request: req})
		_, locked := findEffect[AcquireLock](effects)
		s.False(locked)
		s.Equal(models.PhaseIdle, s.st.Phase)
		s.Equal("No courses found for enrollment", s.st.Notice.Text)
	})
}

func (s *StepSuite) TestLockContention() {
	s.step(StartRequested{Request: s.request()})
	effects := s.step(LockResult{Session: s.st.Session.ID, Acquired: false})

	s.Equal(models.PhaseFailed, s.st.Phase)
	s.Require().NotNil(s.st.Outcome)
	s.Equal(models.FailureLockContention, s.st.Outcome.Kind)
	s.False(s.st.Outcome.Retryable)
	s.Equal(MsgLockContention, s.st.Outcome.Message)
	_, contacted := findEffect[SensorEnroll](effects)
	s.False(contacted)
	_, released := findEffect[ReleaseLock](effects)
	s.False(released, "a lock we never held is not released")
	s.True(s.st.LastAttemptEnd.IsZero(), "sensor was not contacted so no reset dwell")

	s.Empty(s.step(RetryRequested{}), "contention is not retryable")
	s.True(s.st.View(s.now).StartEnabled)
}

func (s *StepSuite) TestLockStoreErrorFailsOpen() {
	s.step(StartRequested{Request: s.request()})
	effects := s.step(LockResult{Session: s.st.Session.ID, Err: errors.New("redis: connection refused")})

	_, ok := findEffect[SensorEnroll](effects)
	s.True(ok)
	s.False(s.st.LockHeld)
	s.Equal(MsgLockUnavailable, s.st.Notice.Text)
}

func (s *StepSuite) TestSensorAcceptFailure() {
	s.Run("rejection releases the lock and shows the raw text", func() {
		s.step(StartRequested{Request: s.request()})
		s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		effects := s.step(SensorAcceptResult{Session: s.st.Session.ID, Err: errors.New("sensor returned 409: Another student is currently enrolling. Please wait...")})

		s.Equal(models.PhaseFailed, s.st.Phase)
		s.Equal(models.FailureSensorRejected, s.st.Outcome.Kind)
		s.True(s.st.Outcome.Retryable)
		s.Contains(s.st.Outcome.Message, "Another student is currently enrolling")
		_, released := findEffect[ReleaseLock](effects)
		s.True(released)
		_, opened := findEffect[OpenChannel](effects)
		s.False(opened)
		s.Equal(s.now, s.st.LastAttemptEnd)
	})

	s.Run("timeout is a network timeout", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		s.step(SensorAcceptResult{Session: s.st.Session.ID, Err: fmt.Errorf("post: %w", context.DeadlineExceeded)})
		s.Equal(models.FailureNetworkTimeout, s.st.Outcome.Kind)
		s.True(s.st.Outcome.Retryable)
	})

	s.Run("stale completion for another session is dropped", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		effects := s.step(SensorAcceptResult{Session: "enrollment_old", Err: errors.New("boom")})
		s.Empty(effects)
		s.Equal(models.PhaseAwaitingSensorAccept, s.st.Phase)
	})
}

func (s *StepSuite) TestChannelSettle() {
	s.step(StartRequested{Request: s.request()})
	s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
	effects := s.step(SensorAcceptResult{Session: s.st.Session.ID})

	open, ok := findEffect[OpenChannel](effects)
	s.Require().True(ok)
	s.Equal(s.st.Session.ID, open.Session)
	s.Equal(s.now, s.st.StartedAt)

	effects = s.step(s.event(`{"type":"scan_update","success":true,"slot":1}`))
	discard, ok := findEffect[Discard](effects)
	s.Require().True(ok)
	s.Equal(DiscardNotReady, discard.Reason)

	effects = s.step(ChannelOpened{Channel: open.Channel})
	ready, ok := findEffect[ScheduleChannelReady](effects)
	s.Require().True(ok)
	s.Equal(models.ChannelReadySettle, ready.After)

	s.advance(ready.After)
	s.step(ChannelReady{Channel: ready.Channel, Gen: ready.Gen})
	s.Equal(models.PhaseCapturing, s.st.Phase)
	s.Equal(0, s.st.Progress.ConfirmedCount, "events before ready are not replayed")
}

func (s *StepSuite) TestEarlyErrorWindow() {
	s.startToCapturing()
	failure := `{"type":"scan_update","success":false,"message":"Failed to create model"}`

	s.now = s.st.StartedAt.Add(1000 * time.Millisecond)
	effects := s.step(s.event(failure))
	discard, ok := findEffect[Discard](effects)
	s.Require().True(ok)
	s.Equal(DiscardEarlyError, discard.Reason)
	s.Equal(models.PhaseCapturing, s.st.Phase)

	s.now = s.st.StartedAt.Add(2000 * time.Millisecond)
	s.step(s.event(failure))
	s.Equal(models.PhaseFailed, s.st.Phase)
	s.Equal(models.FailureCapture, s.st.Outcome.Kind)
	s.Equal("Failed to create model", s.st.Outcome.Message)
}

func (s *StepSuite) TestEarlySuccessIsNotSuppressed() {
	s.startToCapturing()
	s.scan(1)
	s.Equal(1, s.st.Progress.ConfirmedCount)
}

func (s *StepSuite) TestCapturesComplete() {
	s.startToCapturing()
	s.advance(2 * time.Second)

	for slot := 1; slot <= 3; slot++ {
		effects := s.scan(slot)
		_, cue := findEffect[PlayCue](effects)
		s.True(cue, "capture cue for slot %d", slot)
	}

	view := s.st.View(s.now)
	s.Equal("3/3", view.Counter)
	s.Equal(100, view.Percent)
	s.Equal(models.PhaseCapturesComplete, view.Phase)
	s.True(view.ConfirmEnabled)
	s.False(view.CancelVisible)
	s.True(s.st.Sealed)

	s.Run("duplicate success events never exceed the ceiling", func() {
		for range 4 {
			effects := s.scan(3)
			discard, ok := findEffect[Discard](effects)
			s.Require().True(ok)
			s.Equal(DiscardOutOfPhase, discard.Reason)
		}
		effects := s.step(s.event(`{"type":"enrollment_complete","success":true}`))
		_, ok := findEffect[Discard](effects)
		s.True(ok)
		s.Equal(3, s.st.Progress.ConfirmedCount)
	})

	s.Run("late failure does not downgrade", func() {
		s.step(s.event(`{"type":"scan_update","success":false,"message":"Timeout waiting for finger"}`))
		s.Equal(models.PhaseCapturesComplete, s.st.Phase)
	})

	s.Run("submission happens exactly once", func() {
		var submits int
		effects := s.step(ConfirmRequested{})
		cue, ok := findEffect[PlayCue](effects)
		s.Require().True(ok)
		s.True(cue.Blocking)
		s.Equal(models.ConfirmCueFallback, cue.Fallback)
		s.Equal(models.PhaseConfirming, s.st.Phase)
		s.False(s.st.View(s.now).CancelEnabled)

		s.Empty(s.step(ConfirmRequested{}))
		submits += countEffects[Submit](s.step(CueFinished{Gen: cue.Gen}))
		submits += countEffects[Submit](s.step(CueFinished{Gen: cue.Gen}))
		submits += countEffects[Submit](s.step(ConfirmRequested{}))
		submits += countEffects[Submit](s.scan(3))
		s.Equal(1, submits)
		s.Equal(models.PhaseSubmitting, s.st.Phase)
	})
}

func (s *StepSuite) TestSubmitPayload() {
	s.toCapturesComplete()
	s.step(ConfirmRequested{})
	effects := s.step(CueFinished{Gen: s.st.Generation})

	submit, ok := findEffect[Submit](effects)
	s.Require().True(ok)
	s.Equal([]models.CourseID{101, 102}, submit.CourseIDs)
	s.Equal(s.st.Session.TemplateID, submit.TemplateID)
	s.Equal(3, submit.Confirmations)
}

func (s *StepSuite) TestCompletionEventSeals() {
	s.startToCapturing()
	s.advance(2 * time.Second)
	s.scan(1)
	s.step(s.event(`{"type":"enrollment_complete","success":true}`))

	s.Equal(models.PhaseCapturesComplete, s.st.Phase)
	s.Equal(3, s.st.Progress.ConfirmedCount)
}

func (s *StepSuite) TestHints() {
	s.startToCapturing()
	s.advance(2 * time.Second)

	s.Run("finger detected is shown once per session", func() {
		effects := s.step(s.event(`{"type":"scan_update","message":"Finger detected"}`))
		s.Equal(1, countEffects[Notify](effects))
		effects = s.step(s.event(`{"type":"scan_update","message":"Finger detected"}`))
		s.Empty(effects)
	})

	s.Run("quality warnings are hints", func() {
		s.step(s.event(`{"type":"scan_update","success":false,"quality":31,"message":"Image quality too low. Press finger firmly on sensor."}`))
		s.Equal(models.PhaseCapturing, s.st.Phase)
		s.Equal(LevelWarning, s.st.Notice.Level)
		s.Equal(31, s.st.Progress.LastQuality)
		s.Equal(0, s.st.Progress.ConfirmedCount)
	})

	s.Run("placement prompts are shown as they come", func() {
		effects := s.step(s.event(`{"type":"scan_update","message":"Remove finger and place it again"}`))
		n, ok := findEffect[Notify](effects)
		s.Require().True(ok)
		s.Equal(Notify{Level: LevelInfo, Text: "Remove finger and place it again"}, n)
		s.Equal(0, s.st.Progress.ConfirmedCount)
	})

	s.Run("unknown messages are transient", func() {
		effects := s.step(s.event(`{"type":"heartbeat"}`))
		discard, ok := findEffect[Discard](effects)
		s.Require().True(ok)
		s.Equal(DiscardTransient, discard.Reason)
	})
}

func (s *StepSuite) TestCaptureFailureResetsProgress() {
	s.startToCapturing()
	s.advance(2 * time.Second)
	s.scan(1)
	s.scan(2)

	effects := s.step(s.event(`{"type":"scan_update","success":false,"message":"Fingerprint images don't match","error_code":"MISMATCH"}`))

	s.Equal(models.PhaseFailed, s.st.Phase)
	s.Equal(0, s.st.Progress.ConfirmedCount)
	s.True(s.st.Outcome.Retryable)
	_, released := findEffect[ReleaseLock](effects)
	s.True(released)
	_, closed := findEffect[CloseChannel](effects)
	s.True(closed)
	s.True(s.st.View(s.now).RetryEnabled)
}

func (s *StepSuite) TestSupersededChannel() {
	s.startToCapturing()
	old := s.st.Channel
	s.advance(2 * time.Second)
	s.step(s.event(`{"type":"scan_update","success":false,"message":"Failed"}`))
	s.step(RetryRequested{})
	s.advance(models.ResetDwell)
	s.step(RestartDue{Gen: s.st.Generation})
	s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
	s.step(SensorAcceptResult{Session: s.st.Session.ID})
	s.step(ChannelOpened{Channel: s.st.Channel})
	s.advance(models.ChannelReadySettle)
	s.step(ChannelReady{Channel: s.st.Channel, Gen: s.st.Generation})
	s.Require().NotEqual(old, s.st.Channel)

	s.advance(2 * time.Second)
	ev, err := events.Decode([]byte(`{"type":"scan_update","success":true,"slot":1}`))
	s.Require().NoError(err)
	effects := s.step(EventReceived{Channel: old, Event: ev})
	discard, ok := findEffect[Discard](effects)
	s.Require().True(ok)
	s.Equal(DiscardSuperseded, discard.Reason)
	s.Equal(0, s.st.Progress.ConfirmedCount)

	s.Run("late open of a superseded channel is closed", func() {
		effects := s.step(ChannelOpened{Channel: old})
		closeCh, ok := findEffect[CloseChannel](effects)
		s.Require().True(ok)
		s.Equal(old, closeCh.Channel)
	})
}

func (s *StepSuite) TestPersistenceSuccess() {
	s.Run("replacement confirms the assigned id and says updated", func() {
		id := s.toSubmitting()
		effects := s.step(PersistenceResult{Session: id, Record: &models.FingerprintRecord{FingerprintID: 7, IsReplacement: true}})
		confirm, ok := findEffect[SensorConfirm](effects)
		s.Require().True(ok)
		s.Equal(7, confirm.FingerprintID)
		s.Equal(s.st.Session.TemplateID, confirm.TemplateID)

		effects = s.step(SensorConfirmResult{Session: id})
		s.Equal(models.PhaseSucceeded, s.st.Phase)
		s.Contains(s.st.Outcome.Message, "updated")
		s.NotContains(s.st.Outcome.Message, "enrolled")
		s.False(s.st.Outcome.Hazard)
		_, released := findEffect[ReleaseLock](effects)
		s.True(released)
		_, reload := findEffect[Reload](effects)
		s.True(reload)
		s.Nil(s.st.Session)
	})

	s.Run("new registration says enrolled", func() {
		s.SetupTest()
		id := s.toSubmitting()
		s.step(PersistenceResult{Session: id, Record: &models.FingerprintRecord{FingerprintID: 12}})
		s.step(SensorConfirmResult{Session: id})
		s.Equal("Fingerprint enrolled in 2 course(s)!", s.st.Outcome.Message)
	})

	s.Run("sensor confirm failure is a hazard not a failure", func() {
		s.SetupTest()
		id := s.toSubmitting()
		s.step(PersistenceResult{Session: id, Record: &models.FingerprintRecord{FingerprintID: 9}})
		effects := s.step(SensorConfirmResult{Session: id, Err: errors.New("dial tcp 192.168.1.9:80: connect: no route to host")})

		s.Equal(models.PhaseSucceeded, s.st.Phase)
		s.True(s.st.Outcome.Hazard)
		s.Equal(models.FailureHardwareConfirmHazard, s.st.Outcome.Kind)
		hazard, ok := findEffect[Hazard](effects)
		s.Require().True(ok)
		s.Equal(9, hazard.FingerprintID)
	})
}

func (s *StepSuite) TestPersistenceFailure() {
	s.Run("rejection is retryable and releases the lock", func() {
		id := s.toSubmitting()
		effects := s.step(PersistenceResult{Session: id, Err: errors.New("Student not enrolled in course 102")})
		s.Equal(models.PhaseFailed, s.st.Phase)
		s.Equal(models.FailurePersistenceRejected, s.st.Outcome.Kind)
		s.True(s.st.Outcome.Retryable)
		_, released := findEffect[ReleaseLock](effects)
		s.True(released)
		_, confirmed := findEffect[SensorConfirm](effects)
		s.False(confirmed)
	})

	s.Run("timeout uses the server not responding message", func() {
		s.SetupTest()
		id := s.toSubmitting()
		s.step(PersistenceResult{Session: id, Err: context.DeadlineExceeded})
		s.Equal("Registration took too long. Server not responding.", s.st.Outcome.Message)
	})
}

func (s *StepSuite) TestClose() {
	s.Run("cancel shortly after start", func() {
		s.step(StartRequested{Request: s.request()})
		s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		s.step(SensorAcceptResult{Session: s.st.Session.ID})
		channel := s.st.Channel
		s.advance(500 * time.Millisecond)

		effects := s.step(CloseRequested{})
		release, ok := findEffect[ReleaseLock](effects)
		s.Require().True(ok)
		s.Equal(models.StudentID("student-a"), release.Student)
		closeCh, ok := findEffect[CloseChannel](effects)
		s.Require().True(ok)
		s.Equal(channel, closeCh.Channel)
		_, cancelled := findEffect[SensorCancel](effects)
		s.False(cancelled, "close never cancels the sensor")
		s.Equal(models.PhaseCancelled, s.st.Phase)
		s.Equal(s.now, s.st.LastAttemptEnd)
	})

	s.Run("timers issued before close are stale", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		s.step(SensorAcceptResult{Session: s.st.Session.ID})
		channel, gen := s.st.Channel, s.st.Generation
		s.step(CloseRequested{})
		s.Empty(s.step(ChannelReady{Channel: channel, Gen: gen}))
		s.Equal(models.PhaseCancelled, s.st.Phase)
	})

	s.Run("lock not held by us is not released", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		s.step(LockResult{Session: s.st.Session.ID, Acquired: false})
		effects := s.step(CloseRequested{})
		_, released := findEffect[ReleaseLock](effects)
		s.False(released)
	})

	s.Run("acquisition landing after close is given back", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		id := s.st.Session.ID
		s.step(CloseRequested{})

		effects := s.step(LockResult{Session: id, Instructor: "instructor-7", Student: "student-a", Acquired: true})
		release, ok := findEffect[ReleaseLock](effects)
		s.Require().True(ok)
		s.Equal(ReleaseLock{Instructor: "instructor-7", Student: "student-a"}, release)
		s.Equal(models.PhaseCancelled, s.st.Phase)
		s.False(s.st.LockHeld)
	})

	s.Run("refused or failed acquisition after close needs no release", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		id := s.st.Session.ID
		s.step(CloseRequested{})
		s.Empty(s.step(LockResult{Session: id, Instructor: "instructor-7", Student: "student-a"}))
		s.Empty(s.step(LockResult{Session: id, Instructor: "instructor-7", Student: "student-a", Acquired: true, Err: errors.New("timeout")}))
	})

	s.Run("live attempt by the same student keeps the shared lock", func() {
		s.SetupTest()
		s.step(StartRequested{Request: s.request()})
		stale := s.st.Session.ID
		s.step(CloseRequested{})
		s.advance(models.ResetDwell)
		s.step(StartRequested{Request: s.request()})
		s.Require().Equal(models.PhaseLocking, s.st.Phase)
		s.Require().NotEqual(stale, s.st.Session.ID)

		s.Empty(s.step(LockResult{Session: stale, Instructor: "instructor-7", Student: "student-a", Acquired: true}))
		s.Equal(models.PhaseLocking, s.st.Phase)
	})

	s.Run("refused while committing", func() {
		s.SetupTest()
		s.toSubmitting()
		s.Empty(s.step(CloseRequested{}))
		s.Equal(models.PhaseSubmitting, s.st.Phase)
	})

	s.Run("no-op after success", func() {
		s.SetupTest()
		id := s.toSubmitting()
		s.step(PersistenceResult{Session: id, Record: &models.FingerprintRecord{FingerprintID: 3}})
		s.step(SensorConfirmResult{Session: id})
		before := s.st
		s.Empty(s.step(CloseRequested{}))
		s.Equal(before, s.st)
	})
}

func (s *StepSuite) TestCooldownDefersStart() {
	s.startToCapturing()
	s.step(CloseRequested{})
	closedAt := s.now
	s.advance(time.Second)

	effects := s.step(StartRequested{Request: s.request()})
	restart, ok := findEffect[ScheduleRestart](effects)
	s.Require().True(ok)
	s.Equal(3*time.Second, restart.After)
	_, locked := findEffect[AcquireLock](effects)
	s.False(locked)
	s.Equal("Sensor resetting (3s)...", s.st.Notice.Text)

	view := s.st.View(s.now)
	s.False(view.StartEnabled)
	s.Equal(3, view.Countdown)

	s.advance(time.Second)
	effects = s.step(CountdownTick{Gen: restart.Gen})
	s.Equal("Sensor resetting (2s)...", s.st.Notice.Text)
	_, next := findEffect[ScheduleCountdown](effects)
	s.True(next)

	s.now = closedAt.Add(models.ResetDwell)
	effects = s.step(RestartDue{Gen: restart.Gen})
	_, locked = findEffect[AcquireLock](effects)
	s.True(locked)
	s.Equal(models.PhaseLocking, s.st.Phase)
}

func (s *StepSuite) TestRetry() {
	fail := func() time.Time {
		s.advance(2 * time.Second)
		s.step(s.event(`{"type":"scan_update","success":false,"message":"Bad image"}`))
		s.Require().Equal(models.PhaseFailed, s.st.Phase)
		return s.now
	}
	acceptAfterRetry := func() time.Time {
		effects := s.step(RetryRequested{})
		_, cancelled := findEffect[SensorCancel](effects)
		s.True(cancelled, "retry sends a best-effort sensor cancel")
		restart, ok := findEffect[ScheduleRestart](effects)
		s.Require().True(ok)
		s.Equal(models.RetrySettleDelay, restart.After)
		s.Empty(s.step(RetryRequested{}), "retry is not re-entrant")

		s.advance(restart.After)
		effects = s.step(RestartDue{Gen: restart.Gen})
		for {
			if _, ok := findEffect[AcquireLock](effects); ok {
				break
			}
			again, ok := findEffect[ScheduleRestart](effects)
			s.Require().True(ok, "restart is either due or deferred by the reset dwell")
			s.advance(again.After)
			effects = s.step(RestartDue{Gen: again.Gen})
		}
		s.Equal(s.request().CourseIDs, s.st.Session.CourseIDs)
		effects = s.step(LockResult{Session: s.st.Session.ID, Acquired: true})
		_, ok = findEffect[SensorEnroll](effects)
		s.Require().True(ok)
		return s.now
	}

	s.startToCapturing()
	firstFailure := fail()
	firstAccept := acceptAfterRetry()
	s.GreaterOrEqual(firstAccept.Sub(firstFailure), models.RetrySettleDelay)

	s.step(SensorAcceptResult{Session: s.st.Session.ID})
	s.step(ChannelOpened{Channel: s.st.Channel})
	s.advance(models.ChannelReadySettle)
	s.step(ChannelReady{Channel: s.st.Channel, Gen: s.st.Generation})

	secondFailure := fail()
	secondAccept := acceptAfterRetry()
	s.GreaterOrEqual(secondAccept.Sub(secondFailure), models.RetrySettleDelay)
	s.True(secondAccept.After(firstAccept))

	s.Run("stale restart from a previous generation is ignored", func() {
		s.Empty(s.step(RestartDue{Gen: s.st.Generation - 1}))
	})
}
