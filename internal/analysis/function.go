package analysis

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

type behaviorSignals struct {
	functions *counter[string]
	ids       []uuid.UUID
}

// behaviorFunctions infers, per behavior category, which reinforcement
// function its consequences point to. Behaviors are reported in the order
// of their first incident that carried a function signal.
func behaviorFunctions(incidents []models.Incident) []models.NewInsight {
	var order []string
	byBehavior := make(map[string]*behaviorSignals)

	for i := range incidents {
		inc := &incidents[i]
		fn, ok := taxonomy.FunctionForConsequence(inc.ConsequenceCategory)
		if !ok {
			continue
		}
		bs, exists := byBehavior[inc.BehaviorCategory]
		if !exists {
			bs = &behaviorSignals{functions: newCounter[string]()}
			byBehavior[inc.BehaviorCategory] = bs
			order = append(order, inc.BehaviorCategory)
		}
		bs.functions.add(fn, inc.ID)
		bs.ids = append(bs.ids, inc.ID)
	}

	out := make([]models.NewInsight, 0)
	for _, behavior := range order {
		bs := byBehavior[behavior]
		total := bs.functions.total()
		if total < MinPairFrequency {
			continue
		}
		top, _ := bs.functions.top()
		confidence := float64(top.count) / float64(total)
		if confidence < ConfidenceLow || !taxonomy.IsBehaviorFunction(top.key) {
			continue
		}

		fn := top.key
		level := hedge(confidence)
		beh := humanize(behavior)
		out = append(out, models.NewInsight{
			InsightType: models.InsightTypeFunction,
			Title:       fmt.Sprintf("Behavior function: %s is %s %s-driven", beh, level, fn),
			Body: fmt.Sprintf(
				"Based on %d logged incidents, your pet's %s behavior %s serves an %s function. "+
					"This means the behavior is %s. "+
					"This helps us recommend the right approach to address it.",
				total, beh, level, fn, taxonomy.FunctionExplanation(fn),
			),
			Confidence:       confidence,
			IncidentIDs:      evidence(bs.ids),
			BehaviorFunction: &fn,
		})
	}
	return out
}

func hedge(confidence float64) string {
	switch {
	case confidence >= ConfidenceHigh:
		return "likely"
	case confidence >= ConfidenceMedium:
		return "possibly"
	default:
		return "might be"
	}
}
