package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/properties"
	"github.com/poltergeist/phasebuild/pkg/validation"
)

func parse(t *testing.T, data string) any {
	t.Helper()
	value, err := document.Parse([]byte(data))
	require.NoError(t, err)
	return value
}

const validConfig = `{
	"properties": {"out": "dist"},
	"externalTasks": ["tasks"],
	"phases": {
		"clean": {"delete": {"target": "$(out)"}},
		"build": {"depends": "clean", "concat": {"target": "a", "files": ["b"]}}
	},
	"defaultPhase": "build"
}`

func TestValidateConfigurationValid(t *testing.T) {
	assert.NoError(t, validation.ValidateConfiguration(parse(t, validConfig)))
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   error
	}{
		{"not an object", `[]`, validation.ErrConfigWrongType},
		{"properties wrong type", `{"properties": []}`, properties.ErrWrongListType},
		{"external tasks wrong type", `{"externalTasks": 3}`, validation.ErrExternalTasksWrongType},
		{"external tasks empty string", `{"externalTasks": ""}`, validation.ErrExternalTasksEmptyString},
		{"external tasks empty array", `{"externalTasks": []}`, validation.ErrExternalTasksEmptyArray},
		{"external tasks wrong item", `{"externalTasks": [1]}`, validation.ErrExternalTasksWrongItemsType},
		{"external tasks blank item", `{"externalTasks": [" "]}`, validation.ErrExternalTasksEmptyItem},
		{"parents wrong type", `{"parents": {}}`, validation.ErrParentsWrongType},
		{"parents empty string", `{"parents": ""}`, validation.ErrParentsEmptyString},
		{"parents empty array", `{"parents": []}`, validation.ErrParentsEmptyArray},
		{"parents wrong item", `{"parents": [true]}`, validation.ErrParentsWrongItemsType},
		{"parents blank item", `{"parents": [""]}`, validation.ErrParentsEmptyItem},
		{"phases missing", `{}`, validation.ErrPhasesMissing},
		{"phases wrong type", `{"phases": []}`, validation.ErrPhasesWrongType},
		{"phases empty", `{"phases": {}}`, validation.ErrPhasesEmpty},
		{"phase wrong type", `{"phases": {"build": "x"}}`, validation.ErrPhaseWrongType},
		{"phase without tasks", `{"phases": {"build": {"depends": []}}}`, validation.ErrPhaseNoTasks},
		{"phase depends wrong type", `{"phases": {"build": {"depends": 1, "concat": {}}}}`, validation.ErrPhaseDependsWrongType},
		{"missing dependency", `{"phases": {"build": {"depends": "clean", "concat": {}}}}`, validation.ErrPhaseMissingDependency},
		{"circular dependency", `{"phases": {
			"a": {"depends": "c", "t": {}},
			"b": {"depends": "a", "t": {}},
			"c": {"depends": "b", "t": {}}
		}}`, validation.ErrPhaseCircularDependency},
		{"self dependency", `{"phases": {"a": {"depends": "a", "t": {}}}}`, validation.ErrPhaseCircularDependency},
		{"default phase missing", `{"phases": {"a": {"t": {}}}}`, validation.ErrDefaultPhaseMissing},
		{"default phase wrong type", `{"phases": {"a": {"t": {}}}, "defaultPhase": 1}`, validation.ErrDefaultPhaseWrongType},
		{"default phase empty", `{"phases": {"a": {"t": {}}}, "defaultPhase": ""}`, validation.ErrDefaultPhaseEmpty},
		{"default phase not found", `{"phases": {"a": {"t": {}}}, "defaultPhase": "b"}`, validation.ErrDefaultPhaseNotFound},
		{"junk", `{"phases": {"a": {"t": {}}}, "defaultPhase": "a", "extra": 1}`, validation.ErrJunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, validation.ValidateConfiguration(parse(t, tt.config)), tt.want)
		})
	}
}

func TestValidateConfigurationOrder(t *testing.T) {
	// external tasks are checked before phases, phases before the default phase
	err := validation.ValidateConfiguration(parse(t, `{"externalTasks": 1, "defaultPhase": 2}`))
	assert.ErrorIs(t, err, validation.ErrExternalTasksWrongType)

	err = validation.ValidateConfiguration(parse(t, `{"phases": {"a": {"t": {}}}, "defaultPhase": 2, "junk": 1}`))
	assert.ErrorIs(t, err, validation.ErrDefaultPhaseWrongType)
	assert.NotErrorIs(t, err, validation.ErrJunk)
}

func TestCheckPhaseDependenciesReportsAll(t *testing.T) {
	phases := parse(t, `{
		"a": {"depends": ["x", "y"], "t": {}},
		"b": {"depends": "z", "t": {}}
	}`).(*document.Object)

	err := validation.CheckPhaseDependencies(phases)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrPhaseMissingDependency)
	assert.Contains(t, err.Error(), `phase "a" depends on "x"`)
	assert.Contains(t, err.Error(), `phase "a" depends on "y"`)
	assert.Contains(t, err.Error(), `phase "b" depends on "z"`)
}

func TestCheckPhaseCircularDependenciesAllowsDiamond(t *testing.T) {
	phases := parse(t, `{
		"a": {"t": {}},
		"b": {"depends": "a", "t": {}},
		"c": {"depends": "a", "t": {}},
		"d": {"depends": ["b", "c"], "t": {}}
	}`).(*document.Object)

	assert.NoError(t, validation.CheckPhaseCircularDependencies(phases))
}

func TestPhaseDepends(t *testing.T) {
	assert.Equal(t, []string{"a"}, validation.PhaseDepends(parse(t, `{"depends": "a"}`)))
	assert.Equal(t, []string{"a", "b"}, validation.PhaseDepends(parse(t, `{"depends": ["a", "b"]}`)))
	assert.Empty(t, validation.PhaseDepends(parse(t, `{"t": {}}`)))
	assert.Nil(t, validation.PhaseDepends("nope"))
}
