package engine

import "github.com/poltergeist/phasebuild/pkg/types"

// PhasesOrder returns the phases to run for target: every dependency before
// its dependents, each phase once, target last. Unknown dependencies and
// cycles are rejected by validation, the walk only guards against looping.
func PhasesOrder(phases []*types.Phase, target string) []string {
	byName := make(map[string]*types.Phase, len(phases))
	for _, phase := range phases {
		byName[phase.Name] = phase
	}

	var order []string
	added := make(map[string]bool)
	visiting := make(map[string]bool)

	var walk func(name string)
	walk = func(name string) {
		if added[name] || visiting[name] {
			return
		}
		visiting[name] = true
		if phase, ok := byName[name]; ok {
			for _, dep := range phase.Depends {
				walk(dep)
			}
		}
		visiting[name] = false
		added[name] = true
		order = append(order, name)
	}
	walk(target)

	return order
}

// TasksOrder returns the task invocations of a phase in declaration order
func TasksOrder(phase *types.Phase) []types.TaskInvocation {
	order := make([]types.TaskInvocation, 0, len(phase.Tasks))
	for _, task := range phase.Tasks {
		if types.IsReservedTaskName(task.Name) {
			continue
		}
		order = append(order, task)
	}
	return order
}
