package models

// RuleCond is a declarative predicate over a work item and a requested
// transition. Empty fields match anything; a condition holds when every
// non-empty field matches. Conditions are plain data so that validation rules
// can be supplied through configuration without embedding a scripting engine.
type RuleCond struct {
	// Types matches when the item's type is in the list.
	Types []WorkItemType `yaml:"types,omitempty" json:"types,omitempty" mapstructure:"types"`
	// MinPriority matches when the item's priority is at least this urgent.
	MinPriority Priority `yaml:"min_priority,omitempty" json:"min_priority,omitempty" mapstructure:"min_priority"`
	// From and To match the transition pair.
	From WorkflowState `yaml:"from,omitempty" json:"from,omitempty" mapstructure:"from"`
	To   WorkflowState `yaml:"to,omitempty" json:"to,omitempty" mapstructure:"to"`
	// MetadataKey matches when the item's metadata has a non-empty value for
	// the key. If MetadataValue is also set, the value must match exactly.
	MetadataKey   string `yaml:"metadata_key,omitempty" json:"metadata_key,omitempty" mapstructure:"metadata_key"`
	MetadataValue string `yaml:"metadata_value,omitempty" json:"metadata_value,omitempty" mapstructure:"metadata_value"`
}

// ValidationRule is a configurable transition check: when the When condition
// matches a requested transition, the Require condition must also hold for
// the transition to proceed. Rules are evaluated in registration order and
// all matching rules must pass.
type ValidationRule struct {
	Name    string   `yaml:"name" json:"name" mapstructure:"name"`
	Reason  string   `yaml:"reason,omitempty" json:"reason,omitempty" mapstructure:"reason"`
	When    RuleCond `yaml:"when" json:"when" mapstructure:"when"`
	Require RuleCond `yaml:"require" json:"require" mapstructure:"require"`
}
