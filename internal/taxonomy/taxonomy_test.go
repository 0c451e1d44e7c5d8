package taxonomy_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

func validCatIncident() *models.Incident {
	return &models.Incident{
		AntecedentCategory:  "environmental_change",
		AntecedentTags:      []string{"doorbell"},
		BehaviorCategory:    "aggression",
		BehaviorTags:        []string{"hissed", "swatted"},
		BehaviorSeverity:    3,
		ConsequenceCategory: "attention_given",
		ConsequenceTags:     []string{"went_to_pet"},
	}
}

func load(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tx, err := taxonomy.Load()
	require.NoError(t, err)
	return tx
}

// --- Load tests ---

func TestLoad_EmbeddedDocument(t *testing.T) {
	tx := load(t)

	assert.Equal(t, []string{"cat", "dog"}, tx.SpeciesNames())
	assert.Len(t, tx.Consequences, 8)

	cat, ok := tx.Lookup("cat")
	require.True(t, ok)
	assert.Len(t, cat.Antecedents, 7)
	assert.Len(t, cat.Behaviors, 8)
	assert.Contains(t, cat.Behaviors["elimination"], "spraying")
	assert.Contains(t, cat.Locations, "litter_box_area")

	dog, ok := tx.Lookup("dog")
	require.True(t, ok)
	assert.Contains(t, dog.Antecedents, "separation_cues")
	assert.Contains(t, dog.Behaviors, "leash_behavior")

	_, ok = tx.Lookup("hamster")
	assert.False(t, ok)
}

func TestLoadFile_EmptyPathUsesEmbedded(t *testing.T) {
	tx, err := taxonomy.LoadFile("")
	require.NoError(t, err)
	assert.Len(t, tx.Species, 2)
}

func TestLoadFile_Override(t *testing.T) {
	doc := `
species:
  rabbit:
    antecedents:
      handling: [picked_up]
    behaviors:
      aggression: [thumped]
consequences:
  attention_given: [went_to_pet]
`
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tx, err := taxonomy.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rabbit"}, tx.SpeciesNames())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := taxonomy.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading taxonomy file")
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{name: "malformed yaml", doc: "species: [", msg: "parsing taxonomy"},
		{name: "no species", doc: "consequences:\n  a: [b]\n", msg: "no species"},
		{name: "no consequences", doc: "species:\n  cat:\n    antecedents: {a: [b]}\n    behaviors: {c: [d]}\n", msg: "no consequence"},
		{name: "no behaviors", doc: "species:\n  cat:\n    antecedents: {a: [b]}\nconsequences:\n  a: [b]\n", msg: "no behavior categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taxonomy.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

// --- fixed tables ---

func TestSeverityLabel(t *testing.T) {
	for level, want := range map[int]string{1: "Mild", 2: "Low-moderate", 3: "Moderate", 4: "High-moderate", 5: "Severe"} {
		got, ok := taxonomy.SeverityLabel(level)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := taxonomy.SeverityLabel(0)
	assert.False(t, ok)
	_, ok = taxonomy.SeverityLabel(6)
	assert.False(t, ok)
}

func TestFunctionForConsequence(t *testing.T) {
	tests := map[string]string{
		"attention_given":      models.FunctionAttention,
		"verbal_reaction":      models.FunctionAttention,
		"attention_removed":    models.FunctionEscape,
		"resource_removed":     models.FunctionEscape,
		"environmental_change": models.FunctionEscape,
		"resource_provided":    models.FunctionTangible,
		"other_pet_reaction":   models.FunctionSensory,
	}
	for category, want := range tests {
		got, ok := taxonomy.FunctionForConsequence(category)
		assert.True(t, ok, category)
		assert.Equal(t, want, got, category)
	}

	_, ok := taxonomy.FunctionForConsequence("physical_response")
	assert.False(t, ok)
}

func TestFunctionExplanation(t *testing.T) {
	assert.Contains(t, taxonomy.FunctionExplanation(models.FunctionEscape), "unpleasant")
	assert.Equal(t, "maintained by the social attention it gets — whether positive or negative",
		taxonomy.FunctionExplanation(models.FunctionAttention))
	assert.Equal(t, "serving a specific purpose for your pet", taxonomy.FunctionExplanation("unknown"))
	assert.True(t, taxonomy.IsBehaviorFunction(models.FunctionSensory))
	assert.False(t, taxonomy.IsBehaviorFunction("boredom"))
}

// --- ValidateIncident ---

func TestValidateIncident_Valid(t *testing.T) {
	tx := load(t)
	assert.NoError(t, tx.ValidateIncident("cat", validCatIncident()))
}

func TestValidateIncident_Invalid(t *testing.T) {
	tx := load(t)
	negative := -1

	tests := []struct {
		name    string
		species string
		mutate  func(inc *models.Incident)
		field   string
	}{
		{name: "unknown species", species: "ferret", mutate: func(*models.Incident) {}, field: "species"},
		{name: "dog-only antecedent on a cat", species: "cat", mutate: func(i *models.Incident) {
			i.AntecedentCategory = "separation_cues"
			i.AntecedentTags = []string{"coat_on"}
		}, field: "antecedent_category"},
		{name: "tag from another category", species: "cat", mutate: func(i *models.Incident) {
			i.AntecedentTags = []string{"doorbell", "dog_nearby"}
		}, field: "antecedent_tags"},
		{name: "no behavior tags", species: "cat", mutate: func(i *models.Incident) {
			i.BehaviorTags = nil
		}, field: "behavior_tags"},
		{name: "unknown consequence", species: "cat", mutate: func(i *models.Incident) {
			i.ConsequenceCategory = "bribed"
		}, field: "consequence_category"},
		{name: "severity too high", species: "cat", mutate: func(i *models.Incident) {
			i.BehaviorSeverity = 6
		}, field: "behavior_severity"},
		{name: "severity zero", species: "cat", mutate: func(i *models.Incident) {
			i.BehaviorSeverity = 0
		}, field: "behavior_severity"},
		{name: "negative duration", species: "cat", mutate: func(i *models.Incident) {
			i.DurationSeconds = &negative
		}, field: "duration_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := validCatIncident()
			tt.mutate(inc)

			err := tx.ValidateIncident(tt.species, inc)
			require.Error(t, err)

			var verr *taxonomy.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateIncident_ListsBadTags(t *testing.T) {
	tx := load(t)
	inc := validCatIncident()
	inc.BehaviorTags = []string{"hissed", "barked", "howled"}

	err := tx.ValidateIncident("cat", inc)
	require.Error(t, err)
	assert.Equal(t, "Invalid behavior tags for 'aggression': barked, howled", err.Error())
}
