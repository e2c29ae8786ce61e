package machine

import (
	"time"

	"attendance/internal/enrollment/models"
)

// View is the UI-facing projection of State.
type View struct {
	SessionID      models.SessionID `json:"session_id,omitempty"`
	Phase          models.Phase     `json:"phase"`
	Counter        string           `json:"counter"`
	Percent        int              `json:"percent"`
	Quality        int              `json:"quality,omitempty"`
	StartEnabled   bool             `json:"start_enabled"`
	ConfirmEnabled bool             `json:"confirm_enabled"`
	RetryEnabled   bool             `json:"retry_enabled"`
	CancelVisible  bool             `json:"cancel_visible"`
	CancelEnabled  bool             `json:"cancel_enabled"`
	Countdown      int              `json:"countdown,omitempty"`
	Notice         string           `json:"notice,omitempty"`
	NoticeLevel    Level            `json:"notice_level,omitempty"`
	Outcome        *models.Outcome  `json:"outcome,omitempty"`
	Reload         bool             `json:"reload"`
}

// View projects s at time now.
func (s State) View(now time.Time) View {
	v := View{
		SessionID:     s.sessionID(),
		Phase:         s.Phase,
		Counter:       s.Progress.Counter(),
		Percent:       s.Progress.Percent(),
		Quality:       s.Progress.LastQuality,
		CancelVisible: true,
		CancelEnabled: !s.Phase.Committing(),
		Notice:        s.Notice.Text,
		NoticeLevel:   s.Notice.Level,
		Outcome:       s.Outcome,
		Reload:        s.Reload,
	}

	retryable := s.Phase == models.PhaseFailed && s.Outcome != nil && s.Outcome.Retryable
	v.StartEnabled = s.Phase.Settled() && !s.Deferred && !s.RetryPending && !retryable
	v.RetryEnabled = retryable && !s.RetryPending
	v.ConfirmEnabled = s.Phase == models.PhaseCapturesComplete && !s.Submitted

	switch s.Phase {
	case models.PhaseCapturesComplete, models.PhaseConfirming, models.PhaseSubmitting, models.PhaseSucceeded:
		v.CancelVisible = false
	}
	if s.Deferred {
		if left := s.DeferredUntil.Sub(now); left > 0 {
			v.Countdown = ceilSeconds(left)
		}
	}
	return v
}
