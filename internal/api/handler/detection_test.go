package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/kiranshivaraju/pawlogic/internal/api/middleware"
	"github.com/kiranshivaraju/pawlogic/internal/detection"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// --- mock Detector ---

type mockDetector struct {
	detectErr  error
	triggerErr error
	jobErr     error
	gotPet     uuid.UUID
	gotUser    uuid.UUID
}

func (m *mockDetector) DetectPatterns(_ context.Context, petID, userID uuid.UUID) (*detection.Result, error) {
	m.gotPet, m.gotUser = petID, userID
	if m.detectErr != nil {
		return nil, m.detectErr
	}
	return &detection.Result{PetID: petID, LogsAnalyzed: 10, Patterns: []models.NewInsight{}}, nil
}

func (m *mockDetector) TriggerDetection(_ context.Context, petID, userID uuid.UUID) (*models.Job, error) {
	if m.triggerErr != nil {
		return nil, m.triggerErr
	}
	return &models.Job{ID: uuid.New(), PetID: petID, UserID: userID, Status: models.JobStatusPending}, nil
}

func (m *mockDetector) GetJob(_ context.Context, jobID, userID uuid.UUID) (*detection.JobView, error) {
	if m.jobErr != nil {
		return nil, m.jobErr
	}
	return &detection.JobView{Job: &models.Job{ID: jobID, UserID: userID, Status: models.JobStatusRunning}}, nil
}

// --- helpers ---

func userReq(method, target string, userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	return r.WithContext(mw.SetUserID(r.Context(), userID))
}

func parseErr(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec.Code, env.Error.Code
}

// --- tests ---

func TestDetectPatternsHandler_PassesIdentity(t *testing.T) {
	d := &mockDetector{}
	userID, petID := uuid.New(), uuid.New()

	rec := httptest.NewRecorder()
	NewDetectPatternsHandler(d).ServeHTTP(rec, userReq("POST", "/?pet_id="+petID.String(), userID))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, petID, d.gotPet)
	assert.Equal(t, userID, d.gotUser)
}

func TestDetectPatternsHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"pet not found", detection.ErrPetNotFound, http.StatusNotFound, "PET_NOT_FOUND"},
		{"insufficient", &detection.InsufficientDataError{Have: 3, Need: 10}, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{"wrapped insufficient", fmt.Errorf("run: %w", &detection.InsufficientDataError{Have: 0, Need: 10}), http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewDetectPatternsHandler(&mockDetector{detectErr: tt.err}).
				ServeHTTP(rec, userReq("POST", "/?pet_id="+uuid.NewString(), uuid.New()))

			status, code := parseErr(t, rec)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestDetectPatternsHandler_BadPetID(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDetectPatternsHandler(&mockDetector{}).ServeHTTP(rec, userReq("POST", "/?pet_id=42", uuid.New()))

	status, code := parseErr(t, rec)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", code)
}

func TestDetectPatternsHandler_NoUser(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDetectPatternsHandler(&mockDetector{}).ServeHTTP(rec, httptest.NewRequest("POST", "/?pet_id="+uuid.NewString(), nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriggerDetectionHandler_Accepted(t *testing.T) {
	rec := httptest.NewRecorder()
	NewTriggerDetectionHandler(&mockDetector{}).ServeHTTP(rec, userReq("POST", "/?pet_id="+uuid.NewString(), uuid.New()))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, models.JobStatusPending, env.Data["status"])
	assert.NotEmpty(t, env.Data["job_id"])
}

func TestGetJobHandler(t *testing.T) {
	r := chi.NewRouter()
	d := &mockDetector{}
	r.Get("/jobs/{jobID}", NewGetJobHandler(d))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, userReq("GET", "/jobs/"+uuid.NewString(), uuid.New()))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, userReq("GET", "/jobs/not-a-uuid", uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	d.jobErr = errors.New("boom")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, userReq("GET", "/jobs/"+uuid.NewString(), uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
