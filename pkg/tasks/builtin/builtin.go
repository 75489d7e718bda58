// Package builtin holds the tasks available to every configuration.
package builtin

import (
	"fmt"
	"path/filepath"

	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/utils"
)

// Tasks returns fresh instances of all built-in tasks.
func Tasks() []*tasks.Task {
	return []*tasks.Task{
		Concat(),
		Copy(),
		Delete(),
		Execute(),
	}
}

// resolve turns p into an absolute path under the base directory and
// reports whether it stays inside it
func resolve(tc tasks.Context, p string) (string, bool) {
	full := utils.ResolvePath(tc.BaseDir(), p)
	return full, utils.IsWithin(tc.BaseDir(), full)
}

// relative renders full relative to the base directory for messages
func relative(tc tasks.Context, full string) string {
	rel, err := filepath.Rel(tc.BaseDir(), full)
	if err != nil {
		return full
	}
	return rel
}

func errorf(tc tasks.Context, format string, args ...any) {
	tc.Error(fmt.Sprintf(format, args...))
}

func warnf(tc tasks.Context, format string, args ...any) {
	tc.Warn(fmt.Sprintf(format, args...))
}

func infof(tc tasks.Context, format string, args ...any) {
	tc.Info(fmt.Sprintf(format, args...))
}
