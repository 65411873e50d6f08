// Package catalog loads the food and rule reference data and answers food
// library queries over it.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"mcp-baby-meals/internal/models"
)

//go:embed default.yaml
var defaultCatalog []byte

var ErrInvalid = errors.New("invalid catalog")

type Catalog struct {
	Foods []models.Food       `yaml:"foods"`
	Rules []models.SafetyRule `yaml:"rules"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

func LoadFromFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects duplicate ids and unknown enumerations. Rules whose age
// range is inverted are accepted; they simply never apply.
func (c *Catalog) Validate() error {
	var errs []error

	foodIDs := make(map[string]bool, len(c.Foods))
	for _, f := range c.Foods {
		switch {
		case f.ID == "":
			errs = append(errs, fmt.Errorf("food %q: missing id", f.Name))
		case foodIDs[f.ID]:
			errs = append(errs, fmt.Errorf("food %q: duplicate id", f.ID))
		}
		foodIDs[f.ID] = true

		if f.Name == "" {
			errs = append(errs, fmt.Errorf("food %q: missing name", f.ID))
		}
		if !f.Category.IsValid() {
			errs = append(errs, fmt.Errorf("food %q: unknown category %q", f.ID, f.Category))
		}
	}

	ruleKeys := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		switch {
		case r.RuleKey == "":
			errs = append(errs, fmt.Errorf("rule %q: missing rule_key", r.ShortText))
		case ruleKeys[r.RuleKey]:
			errs = append(errs, fmt.Errorf("rule %q: duplicate rule_key", r.RuleKey))
		}
		ruleKeys[r.RuleKey] = true

		if !r.Severity.IsValid() {
			errs = append(errs, fmt.Errorf("rule %q: unknown severity %q", r.RuleKey, r.Severity))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
