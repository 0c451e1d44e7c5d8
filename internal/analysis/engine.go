// Package analysis implements the ABC pattern-detection engine. It is a pure
// computation over a pet's ordered incident history: no I/O, no clock, no
// randomness. Persistence is handled by the caller.
package analysis

import (
	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

const (
	// MinLogsForPatterns is the number of incidents a pet needs before
	// detection runs at all.
	MinLogsForPatterns = 10

	// MinPairFrequency is the inclusive minimum occurrence count for a pair
	// to be reported, and the minimum number of function signals per
	// behavior.
	MinPairFrequency = 3

	ConfidenceHigh   = 0.7
	ConfidenceMedium = 0.5
	ConfidenceLow    = 0.3

	// MaxEvidenceIDs caps the incident ids attached to one insight.
	MaxEvidenceIDs = 10

	// TrendNoiseFloor is the smallest mean-severity change reported as a
	// trend.
	TrendNoiseFloor = 0.5
)

// Candidates runs every sub-analysis over the incidents and returns their
// findings in a fixed order: antecedent-behavior pairs, behavior-consequence
// pairs, behavior functions, then the severity trend. Pet and user ids are
// left unset. Incidents must be sorted ascending by occurred_at.
func Candidates(incidents []models.Incident) []models.NewInsight {
	out := make([]models.NewInsight, 0)
	out = append(out, antecedentBehaviorPairs(incidents)...)
	out = append(out, behaviorConsequencePairs(incidents)...)
	out = append(out, behaviorFunctions(incidents)...)
	out = append(out, severityTrend(incidents)...)
	return out
}

// Detect produces the insights that should be persisted for a pet. Candidates
// whose (pet, type, title) key is already in existing, or that repeat an
// earlier candidate of the same run, are dropped. The caller is expected to
// have checked len(incidents) >= MinLogsForPatterns; shorter histories
// yield no insights.
func Detect(petID, userID uuid.UUID, incidents []models.Incident, existing []models.InsightKey) []models.NewInsight {
	out := make([]models.NewInsight, 0)
	if len(incidents) < MinLogsForPatterns {
		return out
	}

	seen := make(map[models.InsightKey]struct{}, len(existing))
	for _, k := range existing {
		seen[k] = struct{}{}
	}

	for _, c := range Candidates(incidents) {
		c.PetID = petID
		c.UserID = userID
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
