package service

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_rituals.yaml
var defaultRitualsYAML []byte

type ritualCatalogFile struct {
	Rituals []domain.Ritual `yaml:"rituals"`
}

// ParseRitualCatalog decodes a YAML ritual catalog. Every ritual is validated.
func ParseRitualCatalog(data []byte) ([]domain.Ritual, error) {
	var f ritualCatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse ritual catalog: %w", err)
	}
	for i := range f.Rituals {
		if err := ValidateRitual(&f.Rituals[i]); err != nil {
			return nil, fmt.Errorf("ritual %d (%q): %w", i, f.Rituals[i].ID, err)
		}
	}
	return f.Rituals, nil
}

// LoadRitualCatalog reads and parses a YAML catalog from disk.
func LoadRitualCatalog(path string) ([]domain.Ritual, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ritual catalog: %w", err)
	}
	return ParseRitualCatalog(data)
}

// DefaultRituals returns fresh copies of the built-in rituals in declaration order.
func DefaultRituals() []domain.Ritual {
	rituals, err := ParseRitualCatalog(defaultRitualsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in ritual catalog is invalid: %v", err))
	}
	for i := range rituals {
		rituals[i].IsDefault = true
	}
	return rituals
}
