package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SpeciesCat = "cat"
	SpeciesDog = "dog"
)

// Pet is owned by exactly one user. Species selects the taxonomy used to
// validate the pet's incidents.
type Pet struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Name      string    `db:"name"       json:"name"`
	Species   string    `db:"species"    json:"species"`
	Breed     *string   `db:"breed"      json:"breed,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
