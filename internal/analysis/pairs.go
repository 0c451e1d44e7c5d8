package analysis

import (
	"fmt"
	"math"

	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

type pair struct {
	first, second string
}

func countPairs(incidents []models.Incident, key func(*models.Incident) pair) *counter[pair] {
	c := newCounter[pair]()
	for i := range incidents {
		c.add(key(&incidents[i]), incidents[i].ID)
	}
	return c
}

// antecedentBehaviorPairs reports antecedent categories that repeatedly
// precede the same behavior category.
func antecedentBehaviorPairs(incidents []models.Incident) []models.NewInsight {
	pairs := countPairs(incidents, func(inc *models.Incident) pair {
		return pair{inc.AntecedentCategory, inc.BehaviorCategory}
	})

	total := len(incidents)
	out := make([]models.NewInsight, 0)
	for _, e := range pairs.mostCommon() {
		if e.count < MinPairFrequency {
			continue
		}
		ant, beh := humanize(e.key.first), humanize(e.key.second)
		confidence := float64(e.count) / float64(total)
		out = append(out, models.NewInsight{
			InsightType: models.InsightTypePattern,
			Title:       fmt.Sprintf("Pattern: %s triggers %s", ant, beh),
			Body: fmt.Sprintf(
				"We've noticed that when there's a %s event, your pet tends to show %s behavior. "+
					"This happened %d out of %d logged incidents (%d%% of the time).",
				ant, beh, e.count, total, int(math.RoundToEven(confidence*100)),
			),
			Confidence:  confidence,
			IncidentIDs: evidence(e.ids),
		})
	}
	return out
}

// behaviorConsequencePairs reports behaviors that repeatedly draw the same
// response.
func behaviorConsequencePairs(incidents []models.Incident) []models.NewInsight {
	pairs := countPairs(incidents, func(inc *models.Incident) pair {
		return pair{inc.BehaviorCategory, inc.ConsequenceCategory}
	})

	total := len(incidents)
	out := make([]models.NewInsight, 0)
	for _, e := range pairs.mostCommon() {
		if e.count < MinPairFrequency {
			continue
		}
		beh, con := humanize(e.key.first), humanize(e.key.second)
		out = append(out, models.NewInsight{
			InsightType: models.InsightTypeCorrelation,
			Title:       fmt.Sprintf("Response pattern: %s leads to %s", beh, con),
			Body: fmt.Sprintf(
				"After %s behavior, the most common response has been %s. This happened %d times. "+
					"Understanding this pattern helps us see what might be reinforcing the behavior.",
				beh, con, e.count,
			),
			Confidence:  float64(e.count) / float64(total),
			IncidentIDs: evidence(e.ids),
		})
	}
	return out
}
