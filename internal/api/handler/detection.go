package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/detection"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// Detector defines the detection operations the handlers depend on.
type Detector interface {
	DetectPatterns(ctx context.Context, petID, userID uuid.UUID) (*detection.Result, error)
	TriggerDetection(ctx context.Context, petID, userID uuid.UUID) (*models.Job, error)
	GetJob(ctx context.Context, jobID, userID uuid.UUID) (*detection.JobView, error)
}

// NewDetectPatternsHandler returns an http.HandlerFunc for
// POST /api/v1/analysis/detect-patterns?pet_id=.
func NewDetectPatternsHandler(d Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		petID, ok := queryUUID(w, r, "pet_id")
		if !ok {
			return
		}

		res, err := d.DetectPatterns(r.Context(), petID, userID)
		if err != nil {
			writeDetectionError(w, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewTriggerDetectionHandler returns an http.HandlerFunc for
// POST /api/v1/analysis/detect-patterns/async?pet_id=.
func NewTriggerDetectionHandler(d Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		petID, ok := queryUUID(w, r, "pet_id")
		if !ok {
			return
		}

		job, err := d.TriggerDetection(r.Context(), petID, userID)
		if err != nil {
			writeDetectionError(w, err)
			return
		}
		response.Accepted(w, map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for
// GET /api/v1/analysis/jobs/{jobID}.
func NewGetJobHandler(d Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		view, err := d.GetJob(r.Context(), jobID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.NotFound(w, "JOB_NOT_FOUND", "Job not found")
				return
			}
			response.Internal(w)
			return
		}
		response.JSON(w, view)
	}
}

func writeDetectionError(w http.ResponseWriter, err error) {
	var insufficient *detection.InsufficientDataError
	switch {
	case errors.Is(err, detection.ErrPetNotFound):
		response.NotFound(w, "PET_NOT_FOUND", "Pet not found")
	case errors.As(err, &insufficient):
		response.Error(w, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA", insufficient.Error(),
			map[string]int{"have": insufficient.Have, "need": insufficient.Need})
	default:
		response.Internal(w)
	}
}
