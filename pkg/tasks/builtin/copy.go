package builtin

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	cp "github.com/otiai10/copy"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
	"github.com/poltergeist/phasebuild/pkg/utils"
)

const wildcards = "*?["

// Copy copies files and directories on the host filesystem.
// A "to" path ending in "/" is a directory; "from" entries may be globs.
func Copy() *tasks.Task {
	return &tasks.Task{
		Name:        "copy",
		Description: "Copy files or directories",
		RequiredOptions: types.OptionSpec{
			"from": {types.OptionString, types.OptionArray},
			"to":   {types.OptionString},
		},
		Mode: tasks.Sync,
		Run:  runCopy,
	}
}

func runCopy(tc tasks.Context, options tasks.Options) {
	to := options.String("to")
	toIsDirectory := strings.HasSuffix(to, "/")

	if strings.ContainsAny(to, wildcards) {
		errorf(tc, "Path where to copy %q should not contain wildcards", to)
		return
	}

	toPath, inside := resolve(tc, to)
	if !inside {
		errorf(tc, "Path where to copy %q is not under current root %q", toPath, tc.BaseDir())
		return
	}

	sources, ok := document.Strings(options["from"])
	if !ok {
		errorf(tc, "From array should contain only objects of type String")
		return
	}

	var fromPaths []string
	for _, from := range sources {
		if from == "" {
			errorf(tc, "From array items should not be empty")
			return
		}

		fromPath, _ := resolve(tc, from)
		if !strings.ContainsAny(from, wildcards) {
			fromPaths = append(fromPaths, fromPath)
			continue
		}

		matches, err := doublestar.FilepathGlob(fromPath)
		if err != nil {
			errorf(tc, "Invalid pattern %q: %v", from, err)
			return
		}
		fromPaths = append(fromPaths, matches...)
	}

	if len(fromPaths) == 0 {
		errorf(tc, "List of files to copy is empty")
		return
	}

	infof(tc, "Copying to %q", toPath)

	dir := filepath.Dir(toPath)
	if toIsDirectory {
		dir = toPath
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		errorf(tc, "Cannot create %q: %v", relative(tc, dir), err)
		return
	}

	for _, fromPath := range fromPaths {
		info, err := os.Stat(fromPath)
		switch {
		case err != nil:
			errorf(tc, "Path to copy from %q does not exist", relative(tc, fromPath))
			return
		case !utils.IsWithin(tc.BaseDir(), fromPath):
			errorf(tc, "Path to copy from %q is not under current root %q", relative(tc, fromPath), tc.BaseDir())
			return
		case utils.IsWithin(fromPath, toPath):
			errorf(tc, "You can't copy to path %q that is under location you copy from %q", relative(tc, toPath), relative(tc, fromPath))
			return
		case info.IsDir() && !toIsDirectory:
			errorf(tc, "It is not possible to copy directory %q to file %q", relative(tc, fromPath), relative(tc, toPath))
			return
		}

		destination := toPath
		if toIsDirectory {
			destination = filepath.Join(toPath, filepath.Base(fromPath))
		}
		if err := cp.Copy(fromPath, destination); err != nil {
			errorf(tc, "Cannot copy %q: %v", relative(tc, fromPath), err)
			return
		}

		infof(tc, "- Copied %q", relative(tc, fromPath))
	}
}
