package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
)

type taxonomyResponse struct {
	Species               string              `json:"species"`
	AntecedentCategories  map[string][]string `json:"antecedent_categories"`
	BehaviorCategories    map[string][]string `json:"behavior_categories"`
	ConsequenceCategories map[string][]string `json:"consequence_categories"`
	Locations             []string            `json:"locations"`
	BehaviorFunctions     []string            `json:"behavior_functions"`
}

// NewTaxonomyHandler returns an http.HandlerFunc for the public
// GET /api/v1/taxonomy/{species}.
func NewTaxonomyHandler(tax *taxonomy.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		species := chi.URLParam(r, "species")
		sp, ok := tax.Lookup(species)
		if !ok {
			writeValidation(w, "species", "species must be one of: "+strings.Join(tax.SpeciesNames(), ", "))
			return
		}
		response.JSON(w, taxonomyResponse{
			Species:               species,
			AntecedentCategories:  sp.Antecedents,
			BehaviorCategories:    sp.Behaviors,
			ConsequenceCategories: tax.Consequences,
			Locations:             sp.Locations,
			BehaviorFunctions:     taxonomy.BehaviorFunctions,
		})
	}
}
