package builtin

import (
	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
)

// Delete removes files and directories under the base directory.
func Delete() *tasks.Task {
	return &tasks.Task{
		Name:        "delete",
		Description: "Delete files or directories",
		RequiredOptions: types.OptionSpec{
			"target": {types.OptionString, types.OptionArray},
		},
		Mode: tasks.Sync,
		Run:  runDelete,
	}
}

func runDelete(tc tasks.Context, options tasks.Options) {
	fs := tc.Fs()

	targets, ok := document.Strings(options["target"])
	if !ok {
		errorf(tc, "Even in array of targets, they should be of type String")
		return
	}

	for _, target := range targets {
		full, inside := resolve(tc, target)
		if !inside || full == resolveRoot(tc) {
			errorf(tc, "Path to be deleted %q is not under current root %q", full, tc.BaseDir())
			return
		}

		info, err := fs.Stat(full)
		if err != nil {
			warnf(tc, "Path to be deleted %q does not exist", full)
			continue
		}

		if err := fs.RemoveAll(full); err != nil {
			errorf(tc, "Cannot delete %q: %v", full, err)
			return
		}
		if info.IsDir() {
			infof(tc, "Directory %q deleted", full)
		} else {
			infof(tc, "File %q deleted", full)
		}
	}
}

func resolveRoot(tc tasks.Context) string {
	root, _ := resolve(tc, ".")
	return root
}
