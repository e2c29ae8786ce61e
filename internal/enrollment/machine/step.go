package machine

import (
	"fmt"
	"time"

	"attendance/internal/enrollment/events"
	"attendance/internal/enrollment/models"
)

const (
	MsgLockContention  = "Another student is currently registering under this instructor. Please wait for them to finish."
	MsgPlaceFinger     = "Place finger on sensor..."
	MsgReadyToConfirm  = "Ready to confirm"
	MsgCaptureFailed   = "Failed to create fingerprint model"
	MsgChannelFailed   = "Could not connect to enrollment updates"
	MsgConfirmHazard   = "Fingerprint may not be saved to sensor"
	MsgRestarting      = "Restarting enrollment..."
	MsgFingerDetected  = "Finger detected"
	MsgLockUnavailable = "Instructor lock unavailable, continuing without it"
	msgSensorResetting = "Sensor resetting (%ds)..."
	msgCaptured        = "Scan %d/%d captured"
	msgEnrolledCourses = "Fingerprint enrolled in %d course(s)!"
	msgUpdatedTemplate = "Fingerprint update confirmed! Biometric for fingerprint_id %d updated"
)

// Step applies one input at time now.
func Step(s State, in Input, now time.Time) (State, []Effect) {
	switch in := in.(type) {
	case StartRequested:
		return onStart(s, in, now)
	case RestartDue:
		return onRestartDue(s, in, now)
	case CountdownTick:
		return onCountdown(s, in, now)
	case LockResult:
		return onLock(s, in, now)
	case SensorAcceptResult:
		return onSensorAccept(s, in, now)
	case ChannelOpened:
		return onChannelOpened(s, in)
	case ChannelFailed:
		return onChannelFailed(s, in, now)
	case ChannelClosed:
		return onChannelClosed(s, in)
	case ChannelReady:
		return onChannelReady(s, in)
	case EventReceived:
		return onEvent(s, in, now)
	case ConfirmRequested:
		return onConfirm(s)
	case CueFinished:
		return onCueFinished(s, in)
	case PersistenceResult:
		return onPersistence(s, in, now)
	case SensorConfirmResult:
		return onSensorConfirm(s, in)
	case RetryRequested:
		return onRetry(s)
	case CloseRequested:
		return onClose(s, now)
	}
	return s, nil
}

func onStart(s State, in StartRequested, now time.Time) (State, []Effect) {
	if !s.Phase.Settled() || s.Deferred || s.RetryPending {
		return s, nil
	}
	s.Request = in.Request
	return begin(s, now)
}

// begin runs the cooldown gate and, when it passes, opens a new attempt.
func begin(s State, now time.Time) (State, []Effect) {
	if wait := cooldownRemaining(s, now); wait > 0 {
		s.Generation++
		s.Phase = models.PhaseIdle
		s.Outcome = nil
		s.Deferred = true
		s.RetryPending = false
		s.DeferredUntil = now.Add(wait)
		countdown := notify(LevelInfo, fmt.Sprintf(msgSensorResetting, ceilSeconds(wait)))
		s.Notice = countdown
		return s, []Effect{
			ScheduleRestart{After: wait, Gen: s.Generation},
			ScheduleCountdown{After: min(time.Second, wait), Gen: s.Generation},
			countdown,
		}
	}

	session, err := models.NewSession(s.Request, now)
	if err != nil {
		s.Deferred = false
		s.RetryPending = false
		n := notify(LevelDanger, err.Error())
		s.Notice = n
		return s, []Effect{n}
	}

	next := State{
		Phase:          models.PhaseLocking,
		Request:        s.Request,
		Session:        session,
		Progress:       models.Progress{Phase: models.CaptureIdle},
		ChannelSeq:     s.ChannelSeq,
		LastAttemptEnd: s.LastAttemptEnd,
		Generation:     s.Generation + 1,
	}
	return next, []Effect{AcquireLock{
		Session:    session.ID,
		Instructor: session.InstructorID,
		Student:    session.StudentID,
	}}
}

func cooldownRemaining(s State, now time.Time) time.Duration {
	if s.LastAttemptEnd.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.LastAttemptEnd)
	if elapsed >= models.ResetDwell {
		return 0
	}
	return models.ResetDwell - elapsed
}

func onRestartDue(s State, in RestartDue, now time.Time) (State, []Effect) {
	if in.Gen != s.Generation || !(s.Deferred || s.RetryPending) {
		return s, nil
	}
	s.Deferred = false
	s.RetryPending = false
	return begin(s, now)
}

func onCountdown(s State, in CountdownTick, now time.Time) (State, []Effect) {
	if in.Gen != s.Generation || !s.Deferred {
		return s, nil
	}
	left := s.DeferredUntil.Sub(now)
	if left <= 0 {
		return s, nil
	}
	n := notify(LevelInfo, fmt.Sprintf(msgSensorResetting, ceilSeconds(left)))
	s.Notice = n
	return s, []Effect{n, ScheduleCountdown{After: min(time.Second, left), Gen: s.Generation}}
}

func onLock(s State, in LockResult, now time.Time) (State, []Effect) {
	if s.Phase != models.PhaseLocking || !s.current(in.Session) {
		return s, releaseStale(s, in)
	}
	var effects []Effect
	switch {
	case in.Err != nil:
		// The lock is advisory; an unreachable store must not block capture.
		n := notify(LevelWarning, MsgLockUnavailable)
		s.Notice = n
		effects = append(effects, n)
	case !in.Acquired:
		return fail(s, models.NewFailure(models.FailureLockContention, MsgLockContention, nil), now, false)
	default:
		s.LockHeld = true
	}
	s.Phase = models.PhaseAwaitingSensorAccept
	return s, append(effects, SensorEnroll{
		Session:    s.Session.ID,
		Slot:       1,
		TemplateID: string(s.Session.ID),
	})
}

// releaseStale gives back a lock acquired after its attempt ended. A live
// attempt by the same student shares the re-entrant lock and keeps it.
func releaseStale(s State, in LockResult) []Effect {
	if !in.Acquired || in.Err != nil {
		return nil
	}
	if s.Session != nil && !s.Phase.Settled() &&
		s.Session.InstructorID == in.Instructor && s.Session.StudentID == in.Student {
		return nil
	}
	return []Effect{ReleaseLock{Instructor: in.Instructor, Student: in.Student}}
}

func onSensorAccept(s State, in SensorAcceptResult, now time.Time) (State, []Effect) {
	if s.Phase != models.PhaseAwaitingSensorAccept || !s.current(in.Session) {
		return s, nil
	}
	if in.Err != nil {
		return fail(s, models.ClassifySensorError(in.Err), now, true)
	}
	s.ChannelSeq++
	s.Channel = s.ChannelSeq
	s.ChannelActive = true
	s.ChannelReady = false
	s.StartedAt = now
	s.Phase = models.PhaseListening
	s.Progress.Phase = models.CaptureWaitingForFinger
	n := notify(LevelInfo, MsgPlaceFinger)
	s.Notice = n
	return s, []Effect{OpenChannel{Session: s.Session.ID, Channel: s.Channel}, n}
}

func onChannelOpened(s State, in ChannelOpened) (State, []Effect) {
	if in.Channel != s.Channel || s.Phase != models.PhaseListening {
		return s, []Effect{CloseChannel{Channel: in.Channel}}
	}
	return s, []Effect{ScheduleChannelReady{
		After:   models.ChannelReadySettle,
		Channel: s.Channel,
		Gen:     s.Generation,
	}}
}

func onChannelFailed(s State, in ChannelFailed, now time.Time) (State, []Effect) {
	if in.Channel != s.Channel || !s.ChannelActive {
		return s, nil
	}
	if s.Phase != models.PhaseListening && s.Phase != models.PhaseCapturing {
		return s, nil
	}
	s.ChannelActive = false
	return fail(s, models.NewFailure(models.FailureNetworkTimeout, MsgChannelFailed, in.Err), now, true)
}

// onChannelClosed handles a remote close. Progress already received stays
// valid; a closed channel simply delivers nothing more.
func onChannelClosed(s State, in ChannelClosed) (State, []Effect) {
	if in.Channel == s.Channel {
		s.ChannelActive = false
	}
	return s, nil
}

func onChannelReady(s State, in ChannelReady) (State, []Effect) {
	if in.Channel != s.Channel || in.Gen != s.Generation || s.Phase != models.PhaseListening {
		return s, nil
	}
	s.ChannelReady = true
	s.Phase = models.PhaseCapturing
	return s, nil
}

func onEvent(s State, in EventReceived, now time.Time) (State, []Effect) {
	drop := func(r DiscardReason) (State, []Effect) {
		return s, []Effect{Discard{Channel: in.Channel, Reason: r}}
	}
	ev := in.Event
	switch {
	case in.Channel != s.Channel:
		return drop(DiscardSuperseded)
	case !s.ChannelReady:
		return drop(DiscardNotReady)
	case !s.Phase.AcceptsCaptureEvents() || s.Sealed:
		return drop(DiscardOutOfPhase)
	case ev.FailureShaped() && now.Sub(s.StartedAt) < models.EarlyErrorWindow:
		return drop(DiscardEarlyError)
	}

	if ev.Hint() {
		return onHint(s, ev)
	}
	switch ev.Kind {
	case events.KindCaptureSuccess:
		return onCaptureSuccess(s, ev)
	case events.KindCompletion:
		s.Progress.ConfirmedCount = models.RequiredCaptures
		return seal(s, nil)
	case events.KindCaptureFailure:
		msg := ev.Text()
		if msg == "" {
			msg = MsgCaptureFailed
		}
		return fail(s, models.NewFailure(models.FailureCapture, msg, nil), now, true)
	}
	return drop(DiscardTransient)
}

// onHint shows transient text without touching the capture count.
func onHint(s State, ev events.Event) (State, []Effect) {
	switch ev.Kind {
	case events.KindFingerDetected:
		if s.FingerDetectedShown {
			return s, nil
		}
		s.FingerDetectedShown = true
		s.Progress.Phase = models.CaptureProcessing
		return hint(s, LevelInfo, MsgFingerDetected)
	case events.KindQualityLow:
		s.Progress.ObserveQuality(ev.Quality)
		return hint(s, LevelWarning, ev.Text())
	}
	return hint(s, LevelInfo, ev.Text())
}

func onCaptureSuccess(s State, ev events.Event) (State, []Effect) {
	if !s.Progress.Confirm() {
		return s, nil
	}
	s.Progress.ObserveQuality(ev.Quality)
	s.Progress.Phase = models.CaptureWaitingForFinger
	text := ev.Message
	if text == "" {
		text = fmt.Sprintf(msgCaptured, s.Progress.ConfirmedCount, models.RequiredCaptures)
	}
	n := notify(LevelSuccess, text)
	s.Notice = n
	effects := []Effect{PlayCue{Cue: CueCapture}, n}
	if s.Progress.Complete() {
		return seal(s, effects)
	}
	return s, effects
}

func seal(s State, effects []Effect) (State, []Effect) {
	if s.Sealed {
		return s, effects
	}
	s.Sealed = true
	s.Phase = models.PhaseCapturesComplete
	s.Progress.Phase = models.CaptureComplete
	n := notify(LevelSuccess, MsgReadyToConfirm)
	s.Notice = n
	return s, append(effects, n)
}

func hint(s State, level Level, text string) (State, []Effect) {
	if text == "" {
		return s, nil
	}
	n := notify(level, text)
	s.Notice = n
	return s, []Effect{n}
}

func onConfirm(s State) (State, []Effect) {
	if s.Phase != models.PhaseCapturesComplete || s.Submitted {
		return s, nil
	}
	s.Submitted = true
	s.Phase = models.PhaseConfirming
	s.Progress.Phase = models.CaptureConfirming
	return s, []Effect{PlayCue{
		Cue:      CueConfirm,
		Blocking: true,
		Fallback: models.ConfirmCueFallback,
		Gen:      s.Generation,
	}}
}

func onCueFinished(s State, in CueFinished) (State, []Effect) {
	if in.Gen != s.Generation || s.Phase != models.PhaseConfirming {
		return s, nil
	}
	s.Phase = models.PhaseSubmitting
	courses := make([]models.CourseID, len(s.Session.CourseIDs))
	copy(courses, s.Session.CourseIDs)
	return s, []Effect{Submit{
		Session:       s.Session.ID,
		CourseIDs:     courses,
		TemplateID:    s.Session.TemplateID,
		Confirmations: s.Progress.ConfirmedCount,
	}}
}

func onPersistence(s State, in PersistenceResult, now time.Time) (State, []Effect) {
	if s.Phase != models.PhaseSubmitting || !s.current(in.Session) || s.Record != nil {
		return s, nil
	}
	if in.Err != nil {
		return fail(s, models.ClassifyPersistenceError(in.Err), now, true)
	}
	if in.Record == nil {
		return fail(s, models.NewFailure(models.FailurePersistenceRejected, "Failed to register fingerprint", nil), now, true)
	}
	s.Record = in.Record
	return s, []Effect{SensorConfirm{
		Session:       s.Session.ID,
		FingerprintID: in.Record.FingerprintID,
		TemplateID:    s.Session.TemplateID,
	}}
}

func onSensorConfirm(s State, in SensorConfirmResult) (State, []Effect) {
	if s.Phase != models.PhaseSubmitting || !s.current(in.Session) || s.Record == nil {
		return s, nil
	}
	var effects []Effect
	hazard := in.Err != nil
	if hazard {
		effects = append(effects,
			Hazard{Session: s.Session.ID, FingerprintID: s.Record.FingerprintID, Err: in.Err},
			notify(LevelWarning, MsgConfirmHazard),
		)
	}

	var msg string
	if s.Record.IsReplacement {
		msg = fmt.Sprintf(msgUpdatedTemplate, s.Record.FingerprintID)
	} else {
		msg = fmt.Sprintf(msgEnrolledCourses, len(s.Session.CourseIDs))
	}
	outcome := models.Outcome{
		Phase:   models.PhaseSucceeded,
		Message: msg,
		Record:  s.Record,
		Hazard:  hazard,
	}
	if hazard {
		outcome.Kind = models.FailureHardwareConfirmHazard
	}

	effects = append(effects, releaseAndClose(&s)...)
	n := notify(LevelSuccess, msg)
	effects = append(effects, PlayCue{Cue: CueSuccess}, n, Finished{Outcome: outcome}, Reload{})

	s.Phase = models.PhaseSucceeded
	s.Progress.Phase = models.CaptureSucceeded
	s.Outcome = &outcome
	s.Notice = n
	s.Session = nil
	s.Reload = true
	s.Generation++
	return s, effects
}

func onRetry(s State) (State, []Effect) {
	if s.Phase != models.PhaseFailed || s.Outcome == nil || !s.Outcome.Retryable || s.RetryPending {
		return s, nil
	}
	effects := []Effect{SensorCancel{}}
	effects = append(effects, releaseAndClose(&s)...)

	s.Generation++
	s.Phase = models.PhaseIdle
	s.Session = nil
	s.Progress = models.Progress{}
	s.Sealed = false
	s.Submitted = false
	s.Record = nil
	s.Outcome = nil
	s.FingerDetectedShown = false
	s.RetryPending = true
	n := notify(LevelInfo, MsgRestarting)
	s.Notice = n
	return s, append(effects, n, ScheduleRestart{After: models.RetrySettleDelay, Gen: s.Generation})
}

func onClose(s State, now time.Time) (State, []Effect) {
	if s.Phase == models.PhaseSucceeded || s.Phase.Committing() {
		return s, nil
	}
	hadAttempt := s.Session != nil || s.Deferred || s.RetryPending
	effects := releaseAndClose(&s)
	if hadAttempt {
		s.LastAttemptEnd = now
	}

	outcome := models.Outcome{Phase: models.PhaseCancelled, Message: "Enrollment cancelled"}
	s.Generation++
	s.Phase = models.PhaseCancelled
	s.Session = nil
	s.Progress = models.Progress{}
	s.Sealed = false
	s.Submitted = false
	s.Deferred = false
	s.RetryPending = false
	s.FingerDetectedShown = false
	s.Record = nil
	s.Outcome = &outcome
	s.Notice = Notify{}
	return s, append(effects, Finished{Outcome: outcome})
}

// fail ends the attempt. markEnd starts the sensor reset dwell; it is false
// only when the sensor was never contacted.
func fail(s State, f *models.Failure, now time.Time, markEnd bool) (State, []Effect) {
	effects := releaseAndClose(&s)
	if markEnd {
		s.LastAttemptEnd = now
	}
	outcome := models.Outcome{
		Phase:     models.PhaseFailed,
		Kind:      f.Kind,
		Message:   f.Message,
		Retryable: f.Kind.Retryable(),
	}
	s.Generation++
	s.Phase = models.PhaseFailed
	s.Progress = models.Progress{Phase: models.CaptureFailed}
	s.Sealed = false
	s.Outcome = &outcome
	n := notify(LevelDanger, f.Message)
	s.Notice = n
	return s, append(effects, PlayCue{Cue: CueError}, n, Finished{Outcome: outcome})
}

// releaseAndClose gives back the lock and drops the current channel.
func releaseAndClose(s *State) []Effect {
	var effects []Effect
	if s.LockHeld && s.Session != nil {
		effects = append(effects, ReleaseLock{Instructor: s.Session.InstructorID, Student: s.Session.StudentID})
	}
	s.LockHeld = false
	if s.ChannelActive {
		effects = append(effects, CloseChannel{Channel: s.Channel})
	}
	s.ChannelActive = false
	s.ChannelReady = false
	s.Channel = 0
	return effects
}

func notify(level Level, text string) Notify {
	return Notify{Level: level, Text: text}
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
