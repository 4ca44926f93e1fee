package core

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// EngineConfig is the configuration surface consumed at engine construction
// time: the extensible type and priority enumerations, the default duration
// for items without an estimate, and the custom validation rules.
type EngineConfig struct {
	Types           []models.WorkItemType   `yaml:"types" mapstructure:"types"`
	Priorities      []models.Priority       `yaml:"priorities" mapstructure:"priorities"`
	DefaultDuration float64                 `yaml:"default_duration" mapstructure:"default_duration"`
	Rules           []models.ValidationRule `yaml:"rules" mapstructure:"rules"`
}

// DefaultEngineConfig returns the built-in configuration: the six standard
// work item types, the four priorities in ascending order, and a unit
// default duration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Types:           append([]models.WorkItemType(nil), models.DefaultTypes...),
		Priorities:      append([]models.Priority(nil), models.DefaultPriorities...),
		DefaultDuration: 1,
	}
}

// Validate checks the configuration for usability: both enumerations must be
// non-empty, the default duration positive, and rule names unique.
func (c *EngineConfig) Validate() error {
	if len(c.Types) == 0 {
		return fmt.Errorf("config: at least one work item type is required")
	}
	if len(c.Priorities) == 0 {
		return fmt.Errorf("config: at least one priority is required")
	}
	if c.DefaultDuration <= 0 {
		return fmt.Errorf("config: default_duration must be positive, got %v", c.DefaultDuration)
	}
	seen := make(map[string]struct{}, len(c.Rules))
	for _, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("config: validation rules must be named")
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("config: duplicate rule name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// HasType reports whether the type is in the configured enumeration.
func (c *EngineConfig) HasType(t models.WorkItemType) bool {
	for _, v := range c.Types {
		if v == t {
			return true
		}
	}
	return false
}

// HasPriority reports whether the priority is in the configured enumeration.
func (c *EngineConfig) HasPriority(p models.Priority) bool {
	for _, v := range c.Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// LoadEngineConfig reads .workgraph.yaml from the base path using Viper.
// Missing file or missing keys fall back to the defaults.
func LoadEngineConfig(basePath string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	v := viper.New()
	v.SetConfigName(".workgraph")
	v.SetConfigType("yaml")
	v.AddConfigPath(basePath)

	v.SetDefault("default_duration", cfg.DefaultDuration)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .workgraph.yaml: %w", err)
	}

	if v.IsSet("types") {
		cfg.Types = nil
		for _, t := range v.GetStringSlice("types") {
			cfg.Types = append(cfg.Types, models.WorkItemType(t))
		}
	}
	if v.IsSet("priorities") {
		cfg.Priorities = nil
		for _, p := range v.GetStringSlice("priorities") {
			cfg.Priorities = append(cfg.Priorities, models.Priority(p))
		}
	}
	cfg.DefaultDuration = v.GetFloat64("default_duration")

	if v.IsSet("rules") {
		var rules []models.ValidationRule
		if err := v.UnmarshalKey("rules", &rules); err != nil {
			return nil, fmt.Errorf("parsing validation rules: %w", err)
		}
		cfg.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
