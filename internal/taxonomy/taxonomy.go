// Package taxonomy holds the read-only ABA taxonomy that incidents are
// validated against, plus the fixed tables the detection engine relies on.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultDocument []byte

// Taxonomy is the parsed taxonomy document. It is built once at startup and
// never modified afterwards, so it is safe for concurrent use.
type Taxonomy struct {
	Species      map[string]Species  `yaml:"species"`
	Consequences map[string][]string `yaml:"consequences"`
}

// Species holds the categories and location presets for one species.
type Species struct {
	Antecedents map[string][]string `yaml:"antecedents" json:"antecedent_categories"`
	Behaviors   map[string][]string `yaml:"behaviors"   json:"behavior_categories"`
	Locations   []string            `yaml:"locations"   json:"locations"`
}

// Load parses the taxonomy document embedded in the binary.
func Load() (*Taxonomy, error) {
	return Parse(defaultDocument)
}

// LoadFile parses a taxonomy document from disk. An empty path falls back to
// the embedded document.
func LoadFile(path string) (*Taxonomy, error) {
	if path == "" {
		return Load()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML taxonomy document and checks that it is usable.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) check() error {
	if len(t.Species) == 0 {
		return fmt.Errorf("taxonomy defines no species")
	}
	if len(t.Consequences) == 0 {
		return fmt.Errorf("taxonomy defines no consequence categories")
	}
	for name, sp := range t.Species {
		if len(sp.Antecedents) == 0 {
			return fmt.Errorf("species %q has no antecedent categories", name)
		}
		if len(sp.Behaviors) == 0 {
			return fmt.Errorf("species %q has no behavior categories", name)
		}
	}
	return nil
}

// Lookup returns the taxonomy of one species.
func (t *Taxonomy) Lookup(species string) (Species, bool) {
	sp, ok := t.Species[species]
	return sp, ok
}

// SpeciesNames returns the known species in sorted order.
func (t *Taxonomy) SpeciesNames() []string {
	names := make([]string, 0, len(t.Species))
	for name := range t.Species {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
