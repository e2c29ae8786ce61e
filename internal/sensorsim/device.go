package sensorsim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"attendance/internal/sensor"
	"attendance/pkg/platform/httputil"
)

const (
	capturesPerEnrollment = 3

	msgBusy          = "Another student is currently enrolling"
	msgNotReady      = "Sensor not initialized"
	msgTimeout       = "Timeout - no finger detected. Please try again."
	msgConfirmFailed = "Failed to store fingerprint template"
)

// Timing controls the pace of a simulated capture.
type Timing struct {
	// StartDelay is the wait between accepting enroll and the first finger.
	StartDelay time.Duration
	// ScanInterval is the time one capture takes.
	ScanInterval time.Duration
}

// DefaultTiming leaves the client time to subscribe before the first scan.
var DefaultTiming = Timing{StartDelay: time.Second, ScanInterval: 700 * time.Millisecond}

// Device is the simulated sensor firmware. It allows one enrollment at a time
// and reports progress through the hub, keyed by the template id it was given.
type Device struct {
	hub      *Hub
	scenario Scenario
	timing   Timing
	clock    clock.Clock
	logger   *slog.Logger

	mu        sync.Mutex
	active    string
	cancel    context.CancelFunc
	confirmed []sensor.ConfirmRequest
	wg        sync.WaitGroup
}

func newDevice(hub *Hub, scenario Scenario, timing Timing, clk clock.Clock, logger *slog.Logger) *Device {
	return &Device{hub: hub, scenario: scenario, timing: timing, clock: clk, logger: logger}
}

type deviceStatus struct {
	Status     string `json:"status"`
	TemplateID string `json:"template_id,omitempty"`
	InProgress bool   `json:"in_progress"`
}

func (d *Device) handleStatus(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	st := deviceStatus{Status: "ready", TemplateID: d.active, InProgress: d.active != ""}
	d.mu.Unlock()
	if st.InProgress {
		st.Status = "enrolling"
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (d *Device) handleEnroll(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[sensor.EnrollRequest](r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid JSON"})
		return
	}
	if d.scenario == ScenarioSensorReject {
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": msgNotReady})
		return
	}

	d.mu.Lock()
	if d.active != "" {
		d.mu.Unlock()
		httputil.WriteJSON(w, http.StatusConflict, map[string]any{"success": false, "error": msgBusy})
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.active = req.TemplateID
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	d.logger.Info("enrollment started", "slot", req.Slot, "template_id", req.TemplateID)
	go d.capture(ctx, req.TemplateID)

	httputil.WriteJSON(w, http.StatusOK, sensor.EnrollResponse{
		Success: true,
		Message: fmt.Sprintf("Enrollment started - waiting for %d scans", capturesPerEnrollment),
	})
}

func (d *Device) handleConfirm(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[sensor.ConfirmRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if d.scenario == ScenarioConfirmFailure {
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": msgConfirmFailed})
		return
	}
	d.mu.Lock()
	d.confirmed = append(d.confirmed, req)
	d.mu.Unlock()
	d.logger.Info("enrollment confirmed", "fingerprint_id", req.FingerprintID, "template_id", req.TemplateID)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (d *Device) handleCancel(w http.ResponseWriter, _ *http.Request) {
	d.stop()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Enrollment cancelled"})
}

// Confirmed returns the confirmations the device has acknowledged.
func (d *Device) Confirmed() []sensor.ConfirmRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sensor.ConfirmRequest, len(d.confirmed))
	copy(out, d.confirmed)
	return out
}

func (d *Device) stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
}

// Close stops any capture in progress and waits for it.
func (d *Device) Close() {
	d.stop()
	d.wg.Wait()
}

func (d *Device) finish(templateID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == templateID {
		if d.cancel != nil {
			d.cancel()
		}
		d.active = ""
		d.cancel = nil
	}
}

// capture plays the firmware's scan sequence for one enrollment.
func (d *Device) capture(ctx context.Context, templateID string) {
	defer d.wg.Done()
	defer d.finish(templateID)

	if !d.sleep(ctx, d.timing.StartDelay) {
		return
	}
	for slot := 1; slot <= capturesPerEnrollment; slot++ {
		if !d.sleep(ctx, d.timing.ScanInterval/2) {
			return
		}
		if d.scenario == ScenarioCaptureFailure && slot == 2 {
			d.hub.Publish(templateID, scanUpdate(slot, false, 0, msgTimeout))
			return
		}
		d.hub.Publish(templateID, scanUpdate(slot, false, 0, "Finger detected"))

		if !d.sleep(ctx, d.timing.ScanInterval/2) {
			return
		}
		quality := 80 + rand.IntN(21)
		msg := fmt.Sprintf("Scan %d/%d captured", slot, capturesPerEnrollment)
		d.hub.Publish(templateID, scanUpdate(slot, true, quality, msg))
	}
	d.hub.Publish(templateID, map[string]any{
		"type":    "enrollment_complete",
		"success": true,
		"message": "All fingerprints captured and verified successfully",
	})
}

func (d *Device) sleep(ctx context.Context, dur time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-d.clock.After(dur):
		return true
	}
}

func scanUpdate(slot int, success bool, quality int, message string) map[string]any {
	return map[string]any{
		"type":     "scan_update",
		"slot":     slot,
		"success":  success,
		"quality":  quality,
		"message":  message,
		"progress": slot * 100 / capturesPerEnrollment,
	}
}
