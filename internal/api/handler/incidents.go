package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

const (
	defaultIncidentPage = 50
	maxIncidentPage     = 200
	maxLocationLen      = 100
)

// IncidentStore is the part of store.Store the incident handlers use.
type IncidentStore interface {
	GetPet(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Pet, error)
	CreateIncident(ctx context.Context, inc *models.Incident) error
	CountIncidents(ctx context.Context, petID uuid.UUID) (int, error)
	ListRecentIncidents(ctx context.Context, filter store.IncidentFilter) ([]models.Incident, error)
}

type createIncidentRequest struct {
	PetID uuid.UUID `json:"pet_id"`

	AntecedentCategory string   `json:"antecedent_category"`
	AntecedentTags     []string `json:"antecedent_tags"`
	AntecedentNotes    *string  `json:"antecedent_notes"`

	BehaviorCategory string   `json:"behavior_category"`
	BehaviorTags     []string `json:"behavior_tags"`
	BehaviorSeverity int      `json:"behavior_severity"`
	BehaviorNotes    *string  `json:"behavior_notes"`

	ConsequenceCategory string   `json:"consequence_category"`
	ConsequenceTags     []string `json:"consequence_tags"`
	ConsequenceNotes    *string  `json:"consequence_notes"`

	OccurredAt       *time.Time  `json:"occurred_at"`
	Location         *string     `json:"location"`
	DurationSeconds  *int        `json:"duration_seconds"`
	OtherPetsPresent []uuid.UUID `json:"other_pets_present"`
}

// NewCreateIncidentHandler returns an http.HandlerFunc for
// POST /api/v1/incidents. now supplies the default occurred_at and the
// upper bound it is checked against.
func NewCreateIncidentHandler(s IncidentStore, tax *taxonomy.Taxonomy, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req createIncidentRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		if req.PetID == uuid.Nil {
			response.BadRequest(w, "pet_id is required")
			return
		}

		pet, err := s.GetPet(r.Context(), req.PetID, userID)
		if err != nil {
			writePetLookupError(w, err)
			return
		}

		current := now().UTC()
		occurred := current
		if req.OccurredAt != nil {
			occurred = req.OccurredAt.UTC()
			if occurred.After(current) {
				writeValidation(w, "occurred_at", "occurred_at cannot be in the future")
				return
			}
		}
		if req.Location != nil && len(*req.Location) > maxLocationLen {
			writeValidation(w, "location", "location must be at most 100 characters")
			return
		}

		inc := &models.Incident{
			ID:                  uuid.New(),
			PetID:               pet.ID,
			UserID:              userID,
			AntecedentCategory:  req.AntecedentCategory,
			AntecedentTags:      req.AntecedentTags,
			AntecedentNotes:     req.AntecedentNotes,
			BehaviorCategory:    req.BehaviorCategory,
			BehaviorTags:        req.BehaviorTags,
			BehaviorSeverity:    req.BehaviorSeverity,
			BehaviorNotes:       req.BehaviorNotes,
			ConsequenceCategory: req.ConsequenceCategory,
			ConsequenceTags:     req.ConsequenceTags,
			ConsequenceNotes:    req.ConsequenceNotes,
			OccurredAt:          occurred,
			Location:            req.Location,
			DurationSeconds:     req.DurationSeconds,
			OtherPetsPresent:    req.OtherPetsPresent,
			CreatedAt:           current,
		}

		if err := tax.ValidateIncident(pet.Species, inc); err != nil {
			var verr *taxonomy.ValidationError
			if errors.As(err, &verr) {
				writeValidation(w, verr.Field, verr.Message)
				return
			}
			response.Internal(w)
			return
		}

		if err := s.CreateIncident(r.Context(), inc); err != nil {
			response.Internal(w)
			return
		}
		response.Created(w, inc)
	}
}

// NewListIncidentsHandler returns an http.HandlerFunc for
// GET /api/v1/pets/{petID}/incidents?limit=&offset=, newest first.
func NewListIncidentsHandler(s IncidentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		petID, ok := pathUUID(w, r, "petID")
		if !ok {
			return
		}
		limit, ok := queryInt(w, r, "limit", defaultIncidentPage, 1, maxIncidentPage)
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset", 0, 0, int(^uint32(0)>>1))
		if !ok {
			return
		}

		if _, err := s.GetPet(r.Context(), petID, userID); err != nil {
			writePetLookupError(w, err)
			return
		}

		total, err := s.CountIncidents(r.Context(), petID)
		if err != nil {
			response.Internal(w)
			return
		}
		incidents, err := s.ListRecentIncidents(r.Context(), store.IncidentFilter{
			PetID:  petID,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			response.Internal(w)
			return
		}
		if incidents == nil {
			incidents = []models.Incident{}
		}
		response.Collection(w, incidents, response.NewPageMeta(limit, offset, total))
	}
}

func writeValidation(w http.ResponseWriter, field, message string) {
	response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", message,
		map[string]string{"field": field})
}
