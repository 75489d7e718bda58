package validation

import "errors"

// Structural configuration errors
var (
	ErrConfigWrongType = errors.New("configuration should be of type object")

	ErrExternalTasksWrongType      = errors.New("external tasks should be of type string or array")
	ErrExternalTasksWrongItemsType = errors.New("external tasks array should contain only strings")
	ErrExternalTasksEmptyItem      = errors.New("external tasks array should not contain empty strings")
	ErrExternalTasksEmptyArray     = errors.New("external tasks array should have at least one tasks location")
	ErrExternalTasksEmptyString    = errors.New("empty external tasks string provided")

	ErrParentsWrongType      = errors.New("parent configuration paths should be of type string or array")
	ErrParentsEmptyString    = errors.New("parent configuration path is an empty string")
	ErrParentsEmptyArray     = errors.New("parent configuration paths array is empty")
	ErrParentsWrongItemsType = errors.New("parent configuration paths array should contain only strings")
	ErrParentsEmptyItem      = errors.New("parent configuration paths array should not contain empty strings")

	ErrPhasesMissing           = errors.New("phases should be defined")
	ErrPhasesWrongType         = errors.New("phases should be of type object")
	ErrPhasesEmpty             = errors.New("phases should contain at least one phase")
	ErrPhaseWrongType          = errors.New("phase should be of type object")
	ErrPhaseNoTasks            = errors.New("phase should contain at least one task")
	ErrPhaseDependsWrongType   = errors.New("phase depends should be a string or an array of strings")
	ErrPhaseMissingDependency  = errors.New("phase dependency not found in list of phases")
	ErrPhaseCircularDependency = errors.New("circular phase dependency")

	ErrDefaultPhaseMissing   = errors.New("default phase should be defined")
	ErrDefaultPhaseWrongType = errors.New("default phase should be of type string")
	ErrDefaultPhaseEmpty     = errors.New("default phase can not be empty")
	ErrDefaultPhaseNotFound  = errors.New("default phase not found in list of phases")

	ErrJunk = errors.New("configuration contains junk")
)

// Task contract errors
var (
	ErrTaskNotFound            = errors.New("task not found in loaded task list")
	ErrOptionsWrongType        = errors.New("task options should be of type object")
	ErrOptionsEmpty            = errors.New("task options is an empty object")
	ErrRequiredOptionMissing   = errors.New("required option is missing")
	ErrRequiredOptionWrongType = errors.New("required option has the wrong type")
	ErrRequiredOptionEmpty     = errors.New("required option should not be empty")
	ErrOptionalOptionWrongType = errors.New("optional option has the wrong type")
	ErrOptionalOptionEmpty     = errors.New("optional option should not be empty")
	ErrUnknownOption           = errors.New("option is not declared by the task")
)
