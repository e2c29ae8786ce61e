package sensorsim

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"attendance/internal/biometricapi"
	"attendance/internal/enrollment/models"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/httputil"
)

const anonymousStudent = "anonymous"

// Backend is the simulated persistence API. A student keeps one fingerprint
// id across enrollments, so a second enrollment is reported as a
// replacement.
type Backend struct {
	scenario   Scenario
	csrfToken  string
	instructor string
	logger     *slog.Logger

	mu       sync.Mutex
	nextID   int
	students map[string]*registration
}

type registration struct {
	fingerprintID int
	courses       map[models.CourseID]struct{}
}

func newBackend(scenario Scenario, csrfToken, instructor string, logger *slog.Logger) *Backend {
	return &Backend{
		scenario:   scenario,
		csrfToken:  csrfToken,
		instructor: instructor,
		logger:     logger,
		nextID:     1,
		students:   make(map[string]*registration),
	}
}

// Seed registers student as already enrolled.
func (b *Backend) Seed(student models.StudentID, courses ...models.CourseID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.register(string(student), courses).fingerprintID
}

// csrf rejects requests without the configured token, mirroring the
// backend's CSRF middleware.
func (b *Backend) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.csrfToken != "" && r.Header.Get("X-CSRFToken") != b.csrfToken {
			httputil.WriteJSON(w, http.StatusForbidden, map[string]any{
				"success": false,
				"message": "CSRF verification failed",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// The authenticated user is resolved from the session cookie; the simulator
// treats the cookie value as the student id.
func studentFrom(r *http.Request) string {
	if c, err := r.Cookie("sessionid"); err == nil && c.Value != "" {
		return c.Value
	}
	return anonymousStudent
}

func (b *Backend) handleEnroll(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[biometricapi.EnrollRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.CourseIDs) == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, biometricapi.EnrollResponse{Message: "No courses selected"})
		return
	}
	if req.BiometricData == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "biometric_data is required"))
		return
	}
	if b.scenario == ScenarioPersistenceReject {
		httputil.WriteJSON(w, http.StatusOK, biometricapi.EnrollResponse{Message: "Student is not enrolled in the selected courses"})
		return
	}

	student := studentFrom(r)
	b.mu.Lock()
	_, replacing := b.students[student]
	reg := b.register(student, req.CourseIDs)
	b.mu.Unlock()

	b.logger.Info("fingerprint registered",
		"student_id", student,
		"fingerprint_id", reg.fingerprintID,
		"courses", len(req.CourseIDs),
		"is_replacement", replacing,
	)
	httputil.WriteJSON(w, http.StatusOK, biometricapi.EnrollResponse{
		Success:       true,
		FingerprintID: reg.fingerprintID,
		IsReplacement: replacing,
		Message:       fmt.Sprintf("Fingerprint registered for %d course(s)", len(req.CourseIDs)),
	})
}

func (b *Backend) handleCheckExisting(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[biometricapi.CheckExistingRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	b.mu.Lock()
	_, ok := b.students[string(req.StudentID)]
	b.mu.Unlock()

	resp := biometricapi.CheckExistingResponse{HasExistingRegistration: ok}
	if ok {
		resp.InstructorName = b.instructor
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// register must be called with mu held.
func (b *Backend) register(student string, courses []models.CourseID) *registration {
	reg, ok := b.students[student]
	if !ok {
		reg = &registration{fingerprintID: b.nextID, courses: make(map[models.CourseID]struct{})}
		b.nextID++
		b.students[student] = reg
	}
	for _, c := range courses {
		reg.courses[c] = struct{}{}
	}
	return reg
}
