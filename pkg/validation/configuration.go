package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/properties"
	"github.com/poltergeist/phasebuild/pkg/types"
)

// ValidateConfiguration runs the structural checks in a fixed order and
// returns the first failing category: properties, external tasks, parents,
// phases, phase dependencies, phase cycles, default phase and unknown keys.
func ValidateConfiguration(value any) error {
	cfg, ok := value.(*document.Object)
	if !ok || cfg == nil {
		return ErrConfigWrongType
	}

	if props, present := cfg.Get(types.FieldProperties); present {
		if err := properties.ValidateProperties(props); err != nil {
			return err
		}
	}

	if tasks, present := cfg.Get(types.FieldExternalTasks); present {
		if err := ValidateExternalTasks(tasks); err != nil {
			return err
		}
	}

	if parents, present := cfg.Get(types.FieldParents); present {
		if err := ValidateParents(parents); err != nil {
			return err
		}
	}

	rawPhases, present := cfg.Get(types.FieldPhases)
	if !present {
		return ErrPhasesMissing
	}
	if err := ValidatePhases(rawPhases); err != nil {
		return err
	}
	phases := rawPhases.(*document.Object)

	if err := CheckPhaseDependencies(phases); err != nil {
		return err
	}

	if err := CheckPhaseCircularDependencies(phases); err != nil {
		return err
	}

	defaultPhase, present := cfg.Get(types.FieldDefaultPhase)
	if !present {
		return ErrDefaultPhaseMissing
	}
	if err := ValidateDefaultPhase(defaultPhase, phases); err != nil {
		return err
	}

	var junk []string
	for _, key := range document.Keys(cfg) {
		if !types.IsKnownField(key) {
			junk = append(junk, key)
		}
	}
	if len(junk) > 0 {
		return fmt.Errorf("%w: %s", ErrJunk, strings.Join(junk, ", "))
	}

	return nil
}

// ValidateExternalTasks checks an externalTasks value: a non-empty string or
// a non-empty array of non-blank strings.
func ValidateExternalTasks(value any) error {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ErrExternalTasksEmptyString
		}
	case []any:
		if len(v) == 0 {
			return ErrExternalTasksEmptyArray
		}
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return ErrExternalTasksWrongItemsType
			}
			if strings.TrimSpace(s) == "" {
				return ErrExternalTasksEmptyItem
			}
		}
	default:
		return ErrExternalTasksWrongType
	}
	return nil
}

// ValidateParents checks a parents value: a non-empty string or a non-empty
// array of non-blank strings.
func ValidateParents(value any) error {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ErrParentsEmptyString
		}
	case []any:
		if len(v) == 0 {
			return ErrParentsEmptyArray
		}
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return ErrParentsWrongItemsType
			}
			if strings.TrimSpace(s) == "" {
				return ErrParentsEmptyItem
			}
		}
	default:
		return ErrParentsWrongType
	}
	return nil
}

// ValidatePhases checks that phases is a non-empty object of phases, each an
// object holding at least one task besides depends.
func ValidatePhases(value any) error {
	phases, ok := value.(*document.Object)
	if !ok || phases == nil {
		return ErrPhasesWrongType
	}
	if phases.Len() == 0 {
		return ErrPhasesEmpty
	}

	for pair := phases.Oldest(); pair != nil; pair = pair.Next() {
		phase, ok := pair.Value.(*document.Object)
		if !ok {
			return fmt.Errorf("%w: %q", ErrPhaseWrongType, pair.Key)
		}

		hasTasks := false
		for _, key := range document.Keys(phase) {
			if !types.IsReservedTaskName(key) {
				hasTasks = true
				break
			}
		}
		if !hasTasks {
			return fmt.Errorf("%w: %q", ErrPhaseNoTasks, pair.Key)
		}

		if depends, present := phase.Get(types.FieldDepends); present {
			if _, ok := document.Strings(depends); !ok {
				return fmt.Errorf("%w: %q", ErrPhaseDependsWrongType, pair.Key)
			}
		}
	}
	return nil
}

// PhaseDepends returns the dependencies declared by a phase.
func PhaseDepends(phase any) []string {
	obj, ok := phase.(*document.Object)
	if !ok || obj == nil {
		return nil
	}
	depends, _ := obj.Get(types.FieldDepends)
	names, _ := document.Strings(depends)
	return names
}

// CheckPhaseDependencies reports every dependency naming an undeclared phase.
func CheckPhaseDependencies(phases *document.Object) error {
	var errs []error
	for pair := phases.Oldest(); pair != nil; pair = pair.Next() {
		for _, dependency := range PhaseDepends(pair.Value) {
			if _, ok := phases.Get(dependency); !ok {
				errs = append(errs, fmt.Errorf("%w: phase %q depends on %q", ErrPhaseMissingDependency, pair.Key, dependency))
			}
		}
	}
	return errors.Join(errs...)
}

// CheckPhaseCircularDependencies walks the depends graph depth first from
// every phase and fails when a dependency leads back into the current path.
func CheckPhaseCircularDependencies(phases *document.Object) error {
	resolved := make(map[string]bool)
	seen := make(map[string]bool)

	var walk func(phase string) error
	walk = func(phase string) error {
		seen[phase] = true
		value, _ := phases.Get(phase)
		for _, dependency := range PhaseDepends(value) {
			if resolved[dependency] {
				continue
			}
			if seen[dependency] {
				return fmt.Errorf("%w: %q phase (required by %q)", ErrPhaseCircularDependency, dependency, phase)
			}
			if err := walk(dependency); err != nil {
				return err
			}
		}
		delete(seen, phase)
		resolved[phase] = true
		return nil
	}

	for _, name := range document.Keys(phases) {
		if resolved[name] {
			continue
		}
		if err := walk(name); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDefaultPhase checks that the default phase is a non-empty string
// naming a declared phase.
func ValidateDefaultPhase(value any, phases *document.Object) error {
	name, ok := value.(string)
	if !ok {
		return ErrDefaultPhaseWrongType
	}
	if name == "" {
		return ErrDefaultPhaseEmpty
	}
	if _, ok := phases.Get(name); !ok {
		return fmt.Errorf("%w: %q", ErrDefaultPhaseNotFound, name)
	}
	return nil
}
