package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poltergeist/phasebuild/internal/engine"
	"github.com/poltergeist/phasebuild/pkg/types"
)

func TestPhasesOrder(t *testing.T) {
	phases := []*types.Phase{
		{Name: "clean"},
		{Name: "lint", Depends: []string{"clean"}},
		{Name: "compile", Depends: []string{"clean"}},
		{Name: "build", Depends: []string{"lint", "compile"}},
		{Name: "loop", Depends: []string{"loop2"}},
		{Name: "loop2", Depends: []string{"loop"}},
	}

	tests := []struct {
		target string
		want   []string
	}{
		{"clean", []string{"clean"}},
		{"compile", []string{"clean", "compile"}},
		{"build", []string{"clean", "lint", "compile", "build"}},
		{"loop", []string{"loop2", "loop"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.PhasesOrder(phases, tt.target))
		})
	}
}

func TestTasksOrderSkipsReservedNames(t *testing.T) {
	phase := &types.Phase{Name: "build", Tasks: []types.TaskInvocation{
		{Name: "concat"},
		{Name: "depends"},
		{Name: "copy"},
	}}

	order := engine.TasksOrder(phase)
	assert.Len(t, order, 2)
	assert.Equal(t, "concat", order[0].Name)
	assert.Equal(t, "copy", order[1].Name)
}
