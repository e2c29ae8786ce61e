// Package sensorsim simulates the fingerprint sensor firmware, the backend's
// enrollment broadcast channel and the biometric persistence API on one
// router. It backs `enrollctl simulate` and end-to-end tests.
package sensorsim

import (
	"fmt"
	"slices"
)

// Scenario selects how the simulated sensor and backend behave.
type Scenario string

const (
	// ScenarioHappy captures three scans and accepts everything.
	ScenarioHappy Scenario = "happy"
	// ScenarioCaptureFailure times out waiting for the second finger.
	ScenarioCaptureFailure Scenario = "capture-failure"
	// ScenarioSensorReject refuses the enroll command.
	ScenarioSensorReject Scenario = "sensor-reject"
	// ScenarioConfirmFailure saves the record but the sensor fails to
	// acknowledge it.
	ScenarioConfirmFailure Scenario = "confirm-failure"
	// ScenarioPersistenceReject captures normally but the backend refuses to
	// save the fingerprint.
	ScenarioPersistenceReject Scenario = "persistence-reject"
)

var scenarios = []Scenario{
	ScenarioHappy,
	ScenarioCaptureFailure,
	ScenarioSensorReject,
	ScenarioConfirmFailure,
	ScenarioPersistenceReject,
}

// Scenarios lists every known scenario.
func Scenarios() []Scenario {
	return slices.Clone(scenarios)
}

// ParseScenario validates a scenario name.
func ParseScenario(name string) (Scenario, error) {
	s := Scenario(name)
	if !slices.Contains(scenarios, s) {
		return "", fmt.Errorf("unknown scenario %q (want one of %v)", name, scenarios)
	}
	return s, nil
}
