package builtin

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
	"github.com/poltergeist/phasebuild/pkg/utils"
)

// Concat joins files into a target, each followed by a newline.
func Concat() *tasks.Task {
	return &tasks.Task{
		Name:        "concat",
		Description: "Concatenate files into a target file",
		RequiredOptions: types.OptionSpec{
			"target": {types.OptionString},
			"files":  {types.OptionArray},
		},
		Mode: tasks.Sync,
		Run:  runConcat,
	}
}

func runConcat(tc tasks.Context, options tasks.Options) {
	fs := tc.Fs()
	target := options.String("target")

	targetPath, inside := resolve(tc, target)
	if !inside {
		errorf(tc, "Target path %q is not under current root %q", target, tc.BaseDir())
		return
	}

	if err := fs.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		errorf(tc, "Cannot create directory for %q: %v", target, err)
		return
	}

	if exists, _ := afero.Exists(fs, targetPath); exists {
		warnf(tc, "Target file %q exists and will be overridden", target)
		if err := fs.Remove(targetPath); err != nil {
			errorf(tc, "Cannot remove %q: %v", target, err)
			return
		}
	}

	files, ok := document.Strings(options["files"])
	if !ok {
		errorf(tc, "Files array should contain only String")
		return
	}
	if len(files) == 0 {
		errorf(tc, "No files provided for concatenation")
		return
	}

	infof(tc, "Concatenating files in %s", target)

	out, err := fs.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		errorf(tc, "Cannot open %q: %v", target, err)
		return
	}
	defer out.Close()

	var written int64
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}

		filePath, _ := resolve(tc, file)
		data, err := afero.ReadFile(fs, filePath)
		if err != nil {
			errorf(tc, "File %q does not exist", relative(tc, filePath))
			return
		}

		if _, err := out.Write(append(data, '\n')); err != nil {
			errorf(tc, "Cannot write %q: %v", target, err)
			return
		}
		written += int64(len(data)) + 1
		infof(tc, "- appended %s (%s)", relative(tc, filePath), utils.FormatBytes(int64(len(data))))
	}
	infof(tc, "Wrote %s (%s)", target, utils.FormatBytes(written))
}
