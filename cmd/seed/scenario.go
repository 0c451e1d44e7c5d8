package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// beat is one repeated ABC sequence in a demo history.
type beat struct {
	antecedent, antecedentTag   string
	behavior, behaviorTag       string
	consequence, consequenceTag string
	location                    string
	severity                    int
	times                       int
}

var defaultNames = map[string]string{
	models.SpeciesCat: "Mochi",
	models.SpeciesDog: "Biscuit",
}

// Each scenario logs 14 incidents, enough for pair, function and trend
// detection to fire on a fresh database.
var scenarios = map[string][]beat{
	models.SpeciesCat: {
		{"environmental_change", "doorbell", "avoidance", "hid", "attention_given", "went_to_pet", "living_room", 3, 8},
		{"resource_related", "feeding_time", "vocalization", "excessive_meowing", "resource_provided", "provided_food", "kitchen", 2, 4},
		{"owner_behavior", "owner_on_phone", "attention_seeking", "sitting_on_keyboard", "attention_given", "looked_at_pet", "bedroom", 1, 2},
	},
	models.SpeciesDog: {
		{"separation_cues", "picking_up_keys", "anxiety", "pacing", "attention_given", "called_pet", "hallway", 3, 8},
		{"other_animal", "squirrel", "leash_behavior", "lunging_at_other_dogs", "resource_removed", "removed_from_situation", "walk_route", 4, 4},
		{"owner_behavior", "owner_eating", "attention_seeking", "demand_barking", "resource_provided", "gave_treat", "kitchen", 2, 2},
	},
}

// seed creates a pet owned by opts.userID and one incident per scenario
// repetition, spaced six hours apart and ending at now. Every incident is
// validated against the taxonomy before it is written.
func seed(ctx context.Context, st store.Store, tax *taxonomy.Taxonomy, opts options, now time.Time) (*models.Pet, int, error) {
	pet := &models.Pet{
		ID:        uuid.New(),
		UserID:    opts.userID,
		Name:      opts.name,
		Species:   opts.species,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreatePet(ctx, pet); err != nil {
		return nil, 0, fmt.Errorf("create pet: %w", err)
	}

	var incidents []*models.Incident
	for _, b := range scenarios[opts.species] {
		for n := 0; n < b.times; n++ {
			loc := b.location
			incidents = append(incidents, &models.Incident{
				ID:                  uuid.New(),
				PetID:               pet.ID,
				UserID:              opts.userID,
				AntecedentCategory:  b.antecedent,
				AntecedentTags:      []string{b.antecedentTag},
				BehaviorCategory:    b.behavior,
				BehaviorTags:        []string{b.behaviorTag},
				BehaviorSeverity:    b.severity,
				ConsequenceCategory: b.consequence,
				ConsequenceTags:     []string{b.consequenceTag},
				Location:            &loc,
				CreatedAt:           now,
			})
		}
	}

	// Interleave timestamps so the history does not read as three blocks.
	for i, inc := range incidents {
		slot := (i*5)%len(incidents) + 1
		inc.OccurredAt = now.Add(-time.Duration(slot) * 6 * time.Hour)
		if err := tax.ValidateIncident(opts.species, inc); err != nil {
			return nil, 0, fmt.Errorf("demo incident %d: %w", i, err)
		}
		if err := st.CreateIncident(ctx, inc); err != nil {
			return nil, 0, fmt.Errorf("create incident %d: %w", i, err)
		}
	}
	return pet, len(incidents), nil
}
