// Package types provides the configuration model shared by the loader, validator and runner.
package types

import (
	"sort"
	"strings"
)

// Top-level configuration field names
const (
	FieldProperties    = "properties"
	FieldExternalTasks = "externalTasks"
	FieldParents       = "parents"
	FieldPhases        = "phases"
	FieldDefaultPhase  = "defaultPhase"
)

// Phase field names
const (
	FieldDepends = "depends"
)

// PropertyPathToSDK is injected into every cumulative property set by the loader.
const PropertyPathToSDK = "pathToSdk"

// DefaultConfigFileName is the configuration file looked up when none is given.
const DefaultConfigFileName = "build.json"

// ReservedTaskNames cannot be used as task names because they collide with phase fields.
var ReservedTaskNames = []string{FieldDepends}

// KnownFields lists every top-level key a configuration may carry.
var KnownFields = []string{
	FieldProperties,
	FieldExternalTasks,
	FieldParents,
	FieldPhases,
	FieldDefaultPhase,
}

// IsReservedTaskName reports whether name is reserved.
func IsReservedTaskName(name string) bool {
	for _, reserved := range ReservedTaskNames {
		if reserved == name {
			return true
		}
	}
	return false
}

// IsKnownField reports whether key is a recognized top-level field.
func IsKnownField(key string) bool {
	for _, field := range KnownFields {
		if field == key {
			return true
		}
	}
	return false
}

// OptionType represents the JSON type an option value may take
type OptionType string

const (
	OptionString  OptionType = "String"
	OptionArray   OptionType = "Array"
	OptionObject  OptionType = "Object"
	OptionNumber  OptionType = "Number"
	OptionBoolean OptionType = "Boolean"
	OptionNull    OptionType = "Null"
)

// ParseOptionType converts a case-insensitive type name into an OptionType.
func ParseOptionType(name string) (OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string":
		return OptionString, true
	case "array":
		return OptionArray, true
	case "object":
		return OptionObject, true
	case "number":
		return OptionNumber, true
	case "boolean", "bool":
		return OptionBoolean, true
	}
	return "", false
}

// OptionSpec maps option names to the set of accepted types.
type OptionSpec map[string][]OptionType

// Names returns the option names in lexical order.
func (s OptionSpec) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accepts reports whether the option accepts values of type t.
func (s OptionSpec) Accepts(name string, t OptionType) bool {
	for _, accepted := range s[name] {
		if accepted == t {
			return true
		}
	}
	return false
}

// Describe renders the accepted types of an option, e.g. "String, Array".
func (s OptionSpec) Describe(name string) string {
	parts := make([]string, 0, len(s[name]))
	for _, t := range s[name] {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}

// TaskInvocation is one task entry of a phase.
// Options holds the raw declared value, which is expected to be an object.
type TaskInvocation struct {
	Name    string
	Options any
}

// Phase is a named, ordered list of task invocations with optional dependencies.
type Phase struct {
	Name    string
	Depends []string
	Tasks   []TaskInvocation
}

// Task returns the invocation with the given name.
func (p *Phase) Task(name string) (TaskInvocation, bool) {
	for _, task := range p.Tasks {
		if task.Name == name {
			return task, true
		}
	}
	return TaskInvocation{}, false
}

// Configuration is a fully loaded, validated and property-resolved configuration.
type Configuration struct {
	Properties    map[string]string
	ExternalTasks []string
	Phases        []*Phase
	DefaultPhase  string
}

// Phase looks up a phase by name.
func (c *Configuration) Phase(name string) (*Phase, bool) {
	for _, phase := range c.Phases {
		if phase.Name == name {
			return phase, true
		}
	}
	return nil, false
}

// HasPhase reports whether a phase is declared.
func (c *Configuration) HasPhase(name string) bool {
	_, ok := c.Phase(name)
	return ok
}

// PhaseNames returns phase names in declaration order.
func (c *Configuration) PhaseNames() []string {
	names := make([]string, 0, len(c.Phases))
	for _, phase := range c.Phases {
		names = append(names, phase.Name)
	}
	return names
}
