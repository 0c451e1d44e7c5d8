package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
// Owner-scoped lookups return ErrNotFound when the row exists but belongs to
// another user.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreatePet(ctx context.Context, pet *models.Pet) error
	GetPet(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Pet, error)

	CreateIncident(ctx context.Context, inc *models.Incident) error
	CountIncidents(ctx context.Context, petID uuid.UUID) (int, error)
	// ListIncidents returns the full history of a pet ordered by occurred_at,
	// then created_at, then id, oldest first.
	ListIncidents(ctx context.Context, petID uuid.UUID) ([]models.Incident, error)
	// ListRecentIncidents returns one page of a pet's history, newest first.
	ListRecentIncidents(ctx context.Context, filter IncidentFilter) ([]models.Incident, error)

	ListInsightKeys(ctx context.Context, petID uuid.UUID) ([]models.InsightKey, error)
	// CreateInsight inserts the insight unless one with the same
	// (pet_id, insight_type, title) already exists. It reports whether a row
	// was written.
	CreateInsight(ctx context.Context, insight *models.Insight) (bool, error)
	ListInsights(ctx context.Context, filter InsightFilter) ([]*models.Insight, error)
	GetInsight(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Insight, error)
	SetInsightRead(ctx context.Context, id uuid.UUID, userID uuid.UUID, read bool) (*models.Insight, error)
	InsightSummary(ctx context.Context, petID uuid.UUID) (*InsightCounts, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
}

type IncidentFilter struct {
	PetID  uuid.UUID
	Limit  int
	Offset int
}

const (
	defaultIncidentLimit = 50
	maxIncidentLimit     = 200
)

func (f IncidentFilter) normalized() IncidentFilter {
	if f.Limit <= 0 {
		f.Limit = defaultIncidentLimit
	}
	if f.Limit > maxIncidentLimit {
		f.Limit = maxIncidentLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type InsightFilter struct {
	PetID      uuid.UUID
	UnreadOnly bool
}

type InsightCounts struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

type jobUpdateParams struct {
	ErrorMessage  *string
	PatternsFound *int
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithPatternsFound(n int) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.PatternsFound = &n
	}
}

var validTransitions = map[string][]string{
	models.JobStatusPending: {models.JobStatusRunning, models.JobStatusFailed},
	models.JobStatusRunning: {models.JobStatusCompleted, models.JobStatusFailed},
}

func checkTransition(from, to string) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// roundConfidence keeps two decimals, matching the NUMERIC(3,2) column.
// Ties go to the even digit.
func roundConfidence(c float64) float64 {
	return math.RoundToEven(c*100) / 100
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
