package taxonomy

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// ValidationError reports an incident field that does not fit the taxonomy.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateIncident checks that the incident's categories and tags exist in
// the taxonomy of the given species and that its scalar fields are in range.
func (t *Taxonomy) ValidateIncident(species string, inc *models.Incident) error {
	sp, ok := t.Lookup(species)
	if !ok {
		return invalid("species", "unknown species '%s'", species)
	}

	if err := checkSection("antecedent", species, sp.Antecedents, inc.AntecedentCategory, inc.AntecedentTags); err != nil {
		return err
	}
	if err := checkSection("behavior", species, sp.Behaviors, inc.BehaviorCategory, inc.BehaviorTags); err != nil {
		return err
	}
	if err := checkSection("consequence", "", t.Consequences, inc.ConsequenceCategory, inc.ConsequenceTags); err != nil {
		return err
	}

	if inc.BehaviorSeverity < SeverityMin || inc.BehaviorSeverity > SeverityMax {
		return invalid("behavior_severity", "behavior_severity must be between %d and %d", SeverityMin, SeverityMax)
	}
	if inc.DurationSeconds != nil && *inc.DurationSeconds < 0 {
		return invalid("duration_seconds", "duration_seconds must not be negative")
	}
	return nil
}

func checkSection(section, species string, categories map[string][]string, category string, tags []string) error {
	allowed, ok := categories[category]
	if !ok {
		if species == "" {
			return invalid(section+"_category", "Invalid %s category '%s'", section, category)
		}
		return invalid(section+"_category", "Invalid %s category '%s' for %s", section, category, species)
	}
	if len(tags) == 0 {
		return invalid(section+"_tags", "%s_tags must contain at least one tag", section)
	}

	set := make(map[string]struct{}, len(allowed))
	for _, tag := range allowed {
		set[tag] = struct{}{}
	}
	var bad []string
	for _, tag := range tags {
		if _, ok := set[tag]; !ok {
			bad = append(bad, tag)
		}
	}
	if len(bad) > 0 {
		return invalid(section+"_tags", "Invalid %s tags for '%s': %s", section, category, strings.Join(bad, ", "))
	}
	return nil
}
