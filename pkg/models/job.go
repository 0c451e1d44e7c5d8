package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

const JobTypePatternDetection = "pattern_detection"

// Job tracks a background pattern-detection run. The API returns a job_id on
// POST /api/v1/analysis/detect-patterns/async; the client polls
// GET /api/v1/analysis/jobs/{jobID} until status is completed or failed.
type Job struct {
	ID            uuid.UUID  `db:"id"             json:"id"`
	UserID        uuid.UUID  `db:"user_id"        json:"user_id"`
	PetID         uuid.UUID  `db:"pet_id"         json:"pet_id"`
	Type          string     `db:"type"           json:"type"`
	Status        string     `db:"status"         json:"status"`
	PatternsFound *int       `db:"patterns_found" json:"patterns_found,omitempty"`
	ErrorMessage  *string    `db:"error_message"  json:"error_message,omitempty"`
	StartedAt     *time.Time `db:"started_at"     json:"started_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at"   json:"completed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
}
