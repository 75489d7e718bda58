package validation

import (
	"fmt"
	"sort"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
)

// ValidateTasksExistence reports every task invocation whose task is not registered.
func ValidateTasksExistence(phases []*types.Phase, registry *tasks.Registry) error {
	result := NewValidationResult()
	for _, phase := range phases {
		for _, invocation := range phase.Tasks {
			if types.IsReservedTaskName(invocation.Name) {
				continue
			}
			if !registry.Has(invocation.Name) {
				result.AddError(phase.Name, invocation.Name, "", ErrTaskNotFound, "")
			}
		}
	}
	return result.Err()
}

// ValidateTasksOptions checks every invocation of a registered task against the
// options the task declares. Undeclared options are reported as warnings.
func ValidateTasksOptions(phases []*types.Phase, registry *tasks.Registry) *ValidationResult {
	result := NewValidationResult()
	for _, phase := range phases {
		for _, invocation := range phase.Tasks {
			task, ok := registry.Get(invocation.Name)
			if !ok {
				continue
			}
			validateInvocation(result, phase.Name, invocation, task)
		}
	}
	return result
}

func validateInvocation(result *ValidationResult, phase string, invocation types.TaskInvocation, task *tasks.Task) {
	options, ok := invocation.Options.(*document.Object)
	if !ok || options == nil {
		result.AddError(phase, invocation.Name, "", ErrOptionsWrongType, "")
		return
	}
	if options.Len() == 0 {
		result.AddError(phase, invocation.Name, "", ErrOptionsEmpty, "")
		return
	}

	for _, name := range task.RequiredOptions.Names() {
		value, present := options.Get(name)
		switch {
		case !present:
			result.AddError(phase, invocation.Name, name, ErrRequiredOptionMissing, "")
		case !task.RequiredOptions.Accepts(name, document.TypeOf(value)):
			result.AddError(phase, invocation.Name, name, ErrRequiredOptionWrongType,
				fmt.Sprintf("should be of type %s", task.RequiredOptions.Describe(name)))
		case document.IsEmpty(value):
			result.AddError(phase, invocation.Name, name, ErrRequiredOptionEmpty, "")
		}
	}

	for _, name := range document.Keys(options) {
		if _, required := task.RequiredOptions[name]; required {
			continue
		}

		value, _ := options.Get(name)
		if _, optional := task.OptionalOptions[name]; optional {
			switch {
			case !task.OptionalOptions.Accepts(name, document.TypeOf(value)):
				result.AddError(phase, invocation.Name, name, ErrOptionalOptionWrongType,
					fmt.Sprintf("should be of type %s", task.OptionalOptions.Describe(name)))
			case document.IsEmpty(value):
				result.AddError(phase, invocation.Name, name, ErrOptionalOptionEmpty, "")
			}
			continue
		}

		if len(task.RequiredOptions)+len(task.OptionalOptions) > 0 {
			result.AddWarning(phase, invocation.Name, name, ErrUnknownOption, declaredOptions(task))
		}
	}
}

func declaredOptions(task *tasks.Task) string {
	names := append(task.RequiredOptions.Names(), task.OptionalOptions.Names()...)
	sort.Strings(names)
	return fmt.Sprintf("declared options: %v", names)
}
