// Package achievements: definitions.go validates definitions and reads
// the YAML seed file.
package achievements

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
)

var validate = validator.New()

// ValidateDefinition returns a common.ErrInvalidDefinition wrapper when
// d cannot be evaluated.
func ValidateDefinition(d *Definition) error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", common.ErrInvalidDefinition)
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %q: %s", common.ErrInvalidDefinition, d.Type, describe(err))
	}
	if !events.HasField(d.Criteria.Event, d.Criteria.Field) {
		return fmt.Errorf("%w: %q: event %q has no field %q",
			common.ErrInvalidDefinition, d.Type, d.Criteria.Event, d.Criteria.Field)
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return strings.Join(msgs, "; ")
}

type seedFile struct {
	Achievements []*Definition `yaml:"achievements"`
}

// LoadDefinitions reads a seed file. Unlike Engine.Init, which skips bad
// rows, seeding refuses the whole file if any definition is malformed.
func LoadDefinitions(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read achievements file %q: %w", path, err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes and validates YAML definitions.
func ParseDefinitions(data []byte) ([]*Definition, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDefinition, err)
	}

	seen := make(map[string]bool, len(f.Achievements))
	for _, d := range f.Achievements {
		if err := ValidateDefinition(d); err != nil {
			return nil, err
		}
		if seen[d.Type] {
			return nil, fmt.Errorf("%w: duplicate type %q", common.ErrInvalidDefinition, d.Type)
		}
		seen[d.Type] = true
	}
	return f.Achievements, nil
}
