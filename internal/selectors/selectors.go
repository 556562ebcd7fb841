// Package selectors holds the site-specific selector catalogue. The strings
// are configuration: they break when the site's markup changes and can be
// replaced without a rebuild through SELECTORS_FILE.
package selectors

import (
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/entity"
	"visa-rescheduler/pkg/logg"
)

//go:embed default.yaml
var defaultCatalogue []byte

// Target is one element the workflow interacts with.
type Target struct {
	Chain  entity.SelectorChain `yaml:"chain"`
	Offset *entity.Offset       `yaml:"offset,omitempty"`
	// CSS is a single page-level selector for actions that address the
	// element by selector rather than by handle (select options).
	CSS string `yaml:"css,omitempty"`
}

type Catalogue struct {
	Email         Target `yaml:"email"`
	Password      Target `yaml:"password"`
	Agreement     Target `yaml:"agreement"`
	SignIn        Target `yaml:"sign_in"`
	GroupContinue Target `yaml:"group_continue"`
	Facility      Target `yaml:"facility"`
	Date          Target `yaml:"date"`
	Day           Target `yaml:"day"`
	NextMonth     Target `yaml:"next_month"`
	Time          Target `yaml:"time"`
	Reschedule    Target `yaml:"reschedule"`
	Confirm       Target `yaml:"confirm"`
}

// Default returns the embedded catalogue.
func Default() (*Catalogue, error) {
	return Parse(defaultCatalogue)
}

func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode selector catalogue: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Catalogue) targets() map[string]Target {
	return map[string]Target{
		"email":          c.Email,
		"password":       c.Password,
		"agreement":      c.Agreement,
		"sign_in":        c.SignIn,
		"group_continue": c.GroupContinue,
		"facility":       c.Facility,
		"date":           c.Date,
		"day":            c.Day,
		"next_month":     c.NextMonth,
		"time":           c.Time,
		"reschedule":     c.Reschedule,
		"confirm":        c.Confirm,
	}
}

// Validate requires every target to carry at least one non-empty group, and
// the select targets to carry a page-level selector.
func (c *Catalogue) Validate() error {
	for name, t := range c.targets() {
		if len(t.Chain) == 0 {
			return fmt.Errorf("selector %q: empty chain", name)
		}

		for i, g := range t.Chain {
			if len(g) == 0 {
				return fmt.Errorf("selector %q: group %d is empty", name, i)
			}
		}
	}

	if c.Facility.CSS == "" || c.Time.CSS == "" {
		return fmt.Errorf("selector catalogue: facility and time need a css selector")
	}

	return nil
}

// Load reads the override file when configured, the embedded catalogue
// otherwise.
func Load(cfg *config.Config, logger *zap.Logger) (*Catalogue, error) {
	path := cfg.SelectorsConfig.Path
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selector catalogue: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded selector catalogue", zap.String(logg.Layer, "Selectors"), zap.String("path", path))

	return c, nil
}
