package config

import (
	"fmt"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/types"
	"github.com/poltergeist/phasebuild/pkg/validation"
)

// Decode converts a validated raw configuration into its typed form.
// Phase and task order follow the document.
func Decode(raw *document.Object) (*types.Configuration, error) {
	cfg := &types.Configuration{Properties: make(map[string]string)}

	if value, ok := raw.Get(types.FieldProperties); ok {
		if props, ok := value.(*document.Object); ok {
			for pair := props.Oldest(); pair != nil; pair = pair.Next() {
				if s, ok := pair.Value.(string); ok {
					cfg.Properties[pair.Key] = s
				}
			}
		}
	}

	if value, ok := raw.Get(types.FieldExternalTasks); ok {
		locations, ok := document.Strings(value)
		if !ok {
			return nil, validation.ErrExternalTasksWrongItemsType
		}
		cfg.ExternalTasks = locations
	}

	value, _ := raw.Get(types.FieldPhases)
	phases, ok := value.(*document.Object)
	if !ok {
		return nil, validation.ErrPhasesWrongType
	}
	for pair := phases.Oldest(); pair != nil; pair = pair.Next() {
		body, ok := pair.Value.(*document.Object)
		if !ok {
			return nil, fmt.Errorf("%w: %q", validation.ErrPhaseWrongType, pair.Key)
		}

		phase := &types.Phase{
			Name:    pair.Key,
			Depends: validation.PhaseDepends(body),
		}
		for task := body.Oldest(); task != nil; task = task.Next() {
			if types.IsReservedTaskName(task.Key) {
				continue
			}
			phase.Tasks = append(phase.Tasks, types.TaskInvocation{Name: task.Key, Options: task.Value})
		}
		cfg.Phases = append(cfg.Phases, phase)
	}

	if value, ok := raw.Get(types.FieldDefaultPhase); ok {
		cfg.DefaultPhase, _ = value.(string)
	}

	return cfg, nil
}
