package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

const maxPetNameLen = 100

// PetStore is the part of store.Store the pet handlers use.
type PetStore interface {
	CreatePet(ctx context.Context, pet *models.Pet) error
	GetPet(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Pet, error)
}

// NewCreatePetHandler returns an http.HandlerFunc for POST /api/v1/pets.
func NewCreatePetHandler(s PetStore, tax *taxonomy.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req struct {
			Name    string  `json:"name"`
			Species string  `json:"species"`
			Breed   *string `json:"breed"`
		}
		if !decodeBody(w, r, &req, false) {
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" || len(name) > maxPetNameLen {
			writeValidation(w, "name", "name must be between 1 and 100 characters")
			return
		}
		if _, ok := tax.Lookup(req.Species); !ok {
			writeValidation(w, "species", "species must be one of: "+strings.Join(tax.SpeciesNames(), ", "))
			return
		}

		now := time.Now().UTC()
		pet := &models.Pet{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      name,
			Species:   req.Species,
			Breed:     req.Breed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreatePet(r.Context(), pet); err != nil {
			response.Internal(w)
			return
		}
		response.Created(w, pet)
	}
}

// NewGetPetHandler returns an http.HandlerFunc for GET /api/v1/pets/{petID}.
func NewGetPetHandler(s PetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		petID, ok := pathUUID(w, r, "petID")
		if !ok {
			return
		}

		pet, err := s.GetPet(r.Context(), petID, userID)
		if err != nil {
			writePetLookupError(w, err)
			return
		}
		response.JSON(w, pet)
	}
}
