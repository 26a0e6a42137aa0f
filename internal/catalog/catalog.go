// Package catalog serves the static standards reference data: standards,
// clauses, and requirement definitions. The data ships embedded in the binary
// and is read-only; nothing in the application mutates it.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed standards.yaml
var standardsYAML []byte

// RequirementType classifies how a requirement attaches to processes.
type RequirementType string

const (
	// RequirementGeneric requirements are auto-allocated to every process's
	// governance activity and participate in fulfillment inference.
	RequirementGeneric RequirementType = "generic"
	// RequirementUnique requirements exist once, system-wide.
	RequirementUnique RequirementType = "unique"
	// RequirementDuplicable requirements may be attached per process, optionally.
	RequirementDuplicable RequirementType = "duplicable"
)

// RequirementDefinition is one clause-level requirement of a standard.
type RequirementDefinition struct {
	ID           string          `yaml:"id" json:"id"`
	ClauseNumber string          `yaml:"clauseNumber" json:"clauseNumber"`
	ClauseTitle  string          `yaml:"clauseTitle" json:"clauseTitle"`
	Description  string          `yaml:"description" json:"description"`
	Type         RequirementType `yaml:"type" json:"type"`
}

// StandardDefinition is one standard with its requirement definitions.
type StandardDefinition struct {
	ID           string                  `yaml:"id" json:"id"`
	Code         string                  `yaml:"code" json:"code"`
	Name         string                  `yaml:"name" json:"name"`
	Requirements []RequirementDefinition `yaml:"requirements" json:"requirements"`
}

type catalogFile struct {
	Standards []StandardDefinition `yaml:"standards"`
}

// Catalog is the parsed standards dataset.
type Catalog struct {
	standards []StandardDefinition
	byID      map[string]*StandardDefinition
}

// Load parses the embedded standards data.
func Load() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(standardsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse standards catalog: %w", err)
	}
	c := &Catalog{
		standards: file.Standards,
		byID:      make(map[string]*StandardDefinition, len(file.Standards)),
	}
	for i := range c.standards {
		c.byID[c.standards[i].ID] = &c.standards[i]
	}
	return c, nil
}

// MustLoad panics on a malformed embedded catalog; the data is compiled in,
// so a failure here is a build defect, not a runtime condition.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Standards returns every standard definition.
func (c *Catalog) Standards() []StandardDefinition {
	return c.standards
}

// StandardByID looks up one standard; ok is false when the id is unknown.
func (c *Catalog) StandardByID(id string) (StandardDefinition, bool) {
	if s, ok := c.byID[id]; ok {
		return *s, true
	}
	return StandardDefinition{}, false
}

// GenericRequirements returns the generic requirements of a standard, in
// catalog order. Unknown standard ids yield an empty slice.
func (c *Catalog) GenericRequirements(standardID string) []RequirementDefinition {
	s, ok := c.byID[standardID]
	if !ok {
		return nil
	}
	var out []RequirementDefinition
	for _, r := range s.Requirements {
		if r.Type == RequirementGeneric {
			out = append(out, r)
		}
	}
	return out
}
