// Package catalog loads the fixed character catalog shipped with the binary.
// The catalog is ordered, immutable, and fixed for the process lifetime.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"personachat/internal/persona"
)

//go:embed characters.yaml
var charactersYAML []byte

// Load parses the embedded catalog. The returned slice preserves catalog
// order. Load fails only on a malformed catalog, which is a build defect
// rather than a runtime condition.
func Load() ([]persona.Character, error) {
	var doc struct {
		Characters []persona.Character `yaml:"characters"`
	}
	if err := yaml.Unmarshal(charactersYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse character catalog: %w", err)
	}
	if len(doc.Characters) == 0 {
		return nil, fmt.Errorf("character catalog is empty")
	}

	seen := make(map[string]bool, len(doc.Characters))
	for _, c := range doc.Characters {
		if c.ID == "" {
			return nil, fmt.Errorf("character %q has no id", c.Name)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate character id %q", c.ID)
		}
		seen[c.ID] = true
		if c.SystemInstruction == "" {
			return nil, fmt.Errorf("character %q has no system instruction", c.ID)
		}
	}
	return doc.Characters, nil
}

// ByID returns the character with the given id from a loaded catalog.
func ByID(characters []persona.Character, id string) (persona.Character, bool) {
	for _, c := range characters {
		if c.ID == id {
			return c, true
		}
	}
	return persona.Character{}, false
}
