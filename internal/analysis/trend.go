package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// severityTrend compares mean severity of the older and newer halves of the
// history. With an odd count the newer half gets the extra incident.
func severityTrend(incidents []models.Incident) []models.NewInsight {
	out := make([]models.NewInsight, 0)
	if len(incidents) < MinLogsForPatterns {
		return out
	}

	mid := len(incidents) / 2
	before := meanSeverity(incidents[:mid])
	after := meanSeverity(incidents[mid:])

	delta := after - before
	if math.Abs(delta) < TrendNoiseFloor {
		return out
	}

	direction, remark := "increasing", "This may need attention."
	if delta < 0 {
		direction, remark = "decreasing", "This is encouraging progress!"
	}

	out = append(out, models.NewInsight{
		InsightType: models.InsightTypePattern,
		Title:       fmt.Sprintf("Severity trend: behaviors are %s", direction),
		Body: fmt.Sprintf(
			"Looking at your logs over time, behavior severity has been %s. "+
				"Average severity went from %.1f (%s) to %.1f (%s). %s",
			direction, before, meanLabel(before), after, meanLabel(after), remark,
		),
		Confidence: math.Min(math.Abs(delta)/2, 1.0),
	})
	return out
}

func meanSeverity(incidents []models.Incident) float64 {
	sum := 0
	for i := range incidents {
		sum += incidents[i].BehaviorSeverity
	}
	return float64(sum) / float64(len(incidents))
}

// meanLabel labels a mean severity by rounding it half to even.
func meanLabel(mean float64) string {
	if label, ok := taxonomy.SeverityLabel(int(math.RoundToEven(mean))); ok {
		return label
	}
	return "N/A"
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
