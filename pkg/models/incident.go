// Package models contains shared data models used across the PawLogic codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Incident is one logged Antecedent-Behavior-Consequence event for a pet.
// Incidents are validated against the species taxonomy when written and are
// treated as immutable by the analysis code.
type Incident struct {
	ID     uuid.UUID `db:"id"      json:"id"`
	PetID  uuid.UUID `db:"pet_id"  json:"pet_id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`

	AntecedentCategory string   `db:"antecedent_category" json:"antecedent_category"`
	AntecedentTags     []string `db:"antecedent_tags"     json:"antecedent_tags"`
	AntecedentNotes    *string  `db:"antecedent_notes"    json:"antecedent_notes,omitempty"`

	BehaviorCategory string   `db:"behavior_category" json:"behavior_category"`
	BehaviorTags     []string `db:"behavior_tags"     json:"behavior_tags"`
	BehaviorSeverity int      `db:"behavior_severity" json:"behavior_severity"`
	BehaviorNotes    *string  `db:"behavior_notes"    json:"behavior_notes,omitempty"`

	ConsequenceCategory string   `db:"consequence_category" json:"consequence_category"`
	ConsequenceTags     []string `db:"consequence_tags"     json:"consequence_tags"`
	ConsequenceNotes    *string  `db:"consequence_notes"    json:"consequence_notes,omitempty"`

	OccurredAt       time.Time   `db:"occurred_at"        json:"occurred_at"`
	Location         *string     `db:"location"           json:"location,omitempty"`
	DurationSeconds  *int        `db:"duration_seconds"   json:"duration_seconds,omitempty"`
	OtherPetsPresent []uuid.UUID `db:"other_pets_present" json:"other_pets_present,omitempty"`
	CreatedAt        time.Time   `db:"created_at"         json:"created_at"`
}
