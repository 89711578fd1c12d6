package harness

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querypipe/internal/mutate"
)

// Config is the YAML form of a registry plus mutator denylist entries.
type Config struct {
	// Noise patterns are added to DefaultNoise.
	Noise []string `yaml:"noise"`

	// KnownFailures maps a test id to its accepted message substrings.
	KnownFailures map[string][]string `yaml:"known_failures"`

	// Denylist entries are merged into mutate.DefaultDenylist.
	Denylist mutate.Denylist `yaml:"denylist"`
}

// LoadConfig reads and validates a harness config file.
//
// Unknown keys are rejected so typos fail loudly instead of silently
// dropping a known failure.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a harness config document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// validateConfig rejects empty patterns: an empty substring would accept
// every message.
func validateConfig(c *Config) error {
	for i, p := range c.Noise {
		if p == "" {
			return fmt.Errorf("noise[%d]: pattern must be non-empty", i)
		}
	}

	for _, testID := range slices.Sorted(maps.Keys(c.KnownFailures)) {
		if testID == "" {
			return fmt.Errorf("known_failures: test id must be non-empty")
		}
		subs := c.KnownFailures[testID]
		if len(subs) == 0 {
			return fmt.Errorf("known_failures[%s]: list must be non-empty", testID)
		}
		for i, s := range subs {
			if s == "" {
				return fmt.Errorf("known_failures[%s][%d]: substring must be non-empty", testID, i)
			}
		}
	}

	for typeName, fields := range c.Denylist {
		for i, f := range fields {
			if f == "" {
				return fmt.Errorf("denylist[%s][%d]: field must be non-empty", typeName, i)
			}
		}
	}
	return nil
}

// Apply registers the config's noise patterns and known failures. Test ids
// are registered in sorted order so repeated loads build identical
// registries.
func (c *Config) Apply(r *Registry) {
	r.AddNoise(c.Noise...)
	for _, testID := range slices.Sorted(maps.Keys(c.KnownFailures)) {
		for _, s := range c.KnownFailures[testID] {
			r.Register(testID, s)
		}
	}
}

// MutatorDenylist returns mutate.DefaultDenylist merged with the config's
// entries.
func (c *Config) MutatorDenylist() mutate.Denylist {
	return mutate.DefaultDenylist().Merge(c.Denylist)
}
