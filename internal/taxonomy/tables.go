package taxonomy

import "github.com/kiranshivaraju/pawlogic/pkg/models"

const (
	SeverityMin = 1
	SeverityMax = 5
)

var severityLabels = map[int]string{
	1: "Mild",
	2: "Low-moderate",
	3: "Moderate",
	4: "High-moderate",
	5: "Severe",
}

// BehaviorFunctions lists the four ABA reinforcement functions.
var BehaviorFunctions = []string{
	models.FunctionAttention,
	models.FunctionEscape,
	models.FunctionTangible,
	models.FunctionSensory,
}

// InsightTypes lists the insight types an Insight may carry.
var InsightTypes = []string{
	models.InsightTypePattern,
	models.InsightTypeFunction,
	models.InsightTypeCorrelation,
	models.InsightTypeRecommendation,
}

// Consequence categories map to the function they signal. Categories absent
// here (physical_response) give no signal.
var consequenceFunctions = map[string]string{
	"attention_given":      models.FunctionAttention,
	"verbal_reaction":      models.FunctionAttention,
	"attention_removed":    models.FunctionEscape,
	"resource_removed":     models.FunctionEscape,
	"environmental_change": models.FunctionEscape,
	"resource_provided":    models.FunctionTangible,
	"other_pet_reaction":   models.FunctionSensory,
}

var functionExplanations = map[string]string{
	models.FunctionAttention: "maintained by the social attention it gets — whether positive or negative",
	models.FunctionEscape:    "maintained by removing or avoiding something your pet finds unpleasant",
	models.FunctionTangible:  "maintained by gaining access to a desired item or activity",
	models.FunctionSensory:   "self-reinforcing through the physical sensation it provides",
}

const fallbackExplanation = "serving a specific purpose for your pet"

// SeverityLabel returns the label of an integer severity level.
func SeverityLabel(level int) (string, bool) {
	label, ok := severityLabels[level]
	return label, ok
}

// FunctionForConsequence returns the behavior function a consequence
// category signals, if any.
func FunctionForConsequence(category string) (string, bool) {
	fn, ok := consequenceFunctions[category]
	return fn, ok
}

// FunctionExplanation returns the plain-language explanation of a behavior
// function.
func FunctionExplanation(function string) string {
	if exp, ok := functionExplanations[function]; ok {
		return exp
	}
	return fallbackExplanation
}

// IsBehaviorFunction reports whether s names one of the four functions.
func IsBehaviorFunction(s string) bool {
	for _, fn := range BehaviorFunctions {
		if fn == s {
			return true
		}
	}
	return false
}
