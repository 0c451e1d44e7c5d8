package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InsightTypePattern        = "pattern"
	InsightTypeFunction       = "function"
	InsightTypeCorrelation    = "correlation"
	InsightTypeRecommendation = "recommendation"
)

const (
	FunctionAttention = "attention"
	FunctionEscape    = "escape"
	FunctionTangible  = "tangible"
	FunctionSensory   = "sensory"
)

// Insight is a persisted finding derived from a pet's incident history.
// It is written once per (pet_id, insight_type, title) and only IsRead
// changes afterwards.
type Insight struct {
	ID               uuid.UUID   `db:"id"                json:"id"`
	PetID            uuid.UUID   `db:"pet_id"            json:"pet_id"`
	UserID           uuid.UUID   `db:"user_id"           json:"user_id"`
	InsightType      string      `db:"insight_type"      json:"insight_type"`
	Title            string      `db:"title"             json:"title"`
	Body             string      `db:"body"              json:"body"`
	Confidence       float64     `db:"confidence"        json:"confidence"`
	IncidentIDs      []uuid.UUID `db:"abc_log_ids"       json:"abc_log_ids"`
	BehaviorFunction *string     `db:"behavior_function" json:"behavior_function,omitempty"`
	IsRead           bool        `db:"is_read"           json:"is_read"`
	CreatedAt        time.Time   `db:"created_at"        json:"created_at"`
}

// Key returns the deduplication key of the insight.
func (i *Insight) Key() InsightKey {
	return InsightKey{PetID: i.PetID, InsightType: i.InsightType, Title: i.Title}
}

// NewInsight is a candidate insight produced by the detection engine and not
// yet persisted.
type NewInsight struct {
	PetID            uuid.UUID   `json:"pet_id"`
	UserID           uuid.UUID   `json:"user_id"`
	InsightType      string      `json:"insight_type"`
	Title            string      `json:"title"`
	Body             string      `json:"body"`
	Confidence       float64     `json:"confidence"`
	IncidentIDs      []uuid.UUID `json:"abc_log_ids,omitempty"`
	BehaviorFunction *string     `json:"behavior_function,omitempty"`
}

// Key returns the deduplication key of the candidate.
func (n *NewInsight) Key() InsightKey {
	return InsightKey{PetID: n.PetID, InsightType: n.InsightType, Title: n.Title}
}

// InsightKey identifies an insight for deduplication. Two findings with the
// same key are the same insight regardless of their counts or confidence.
type InsightKey struct {
	PetID       uuid.UUID
	InsightType string
	Title       string
}
