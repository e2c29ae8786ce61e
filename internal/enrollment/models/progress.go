package models

import "fmt"

// RequiredCaptures is the number of confirmed captures that completes an attempt.
const RequiredCaptures = 3

// CapturePhase is the UI-facing sub-state of the capture progress.
type CapturePhase string

const (
	CaptureIdle             CapturePhase = "idle"
	CaptureWaitingForFinger CapturePhase = "waiting_for_finger"
	CaptureProcessing       CapturePhase = "processing"
	CaptureComplete         CapturePhase = "captures_complete"
	CaptureConfirming       CapturePhase = "confirming"
	CaptureSucceeded        CapturePhase = "succeeded"
	CaptureFailed           CapturePhase = "failed"
)

// Progress is owned by the active session.
type Progress struct {
	ConfirmedCount int
	LastQuality    int
	Phase          CapturePhase
}

// Confirm records one sensor-confirmed capture and reports whether the count
// moved. The ceiling makes duplicate success events harmless.
func (p *Progress) Confirm() bool {
	if p.ConfirmedCount >= RequiredCaptures {
		return false
	}
	p.ConfirmedCount++
	return true
}

// Complete reports whether all required captures are in.
func (p Progress) Complete() bool {
	return p.ConfirmedCount >= RequiredCaptures
}

// Percent is the capture progress as a whole percentage.
func (p Progress) Percent() int {
	return p.ConfirmedCount * 100 / RequiredCaptures
}

// ObserveQuality records a quality score, clamped to [0,100]. Zero means the
// event carried none and leaves the last score unchanged.
func (p *Progress) ObserveQuality(q int) {
	if q <= 0 {
		return
	}
	p.LastQuality = min(q, 100)
}

// Counter renders the "n/3" text shown next to the progress bar.
func (p Progress) Counter() string {
	return fmt.Sprintf("%d/%d", p.ConfirmedCount, RequiredCaptures)
}
