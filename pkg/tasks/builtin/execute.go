package builtin

import (
	"errors"
	"strings"

	"github.com/google/shlex"

	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
)

// Execute runs an external command with optional extra attributes.
func Execute() *tasks.Task {
	return &tasks.Task{
		Name:        "execute",
		Description: "Execute an external command",
		RequiredOptions: types.OptionSpec{
			"command": {types.OptionString},
		},
		OptionalOptions: types.OptionSpec{
			"attributes": {types.OptionString, types.OptionArray},
		},
		Mode:     tasks.Async,
		RunAsync: runExecute,
	}
}

func runExecute(tc tasks.Context, options tasks.Options, done func()) {
	command := strings.TrimSpace(options.String("command"))
	if command == "" {
		errorf(tc, "No command specified for execution")
		done()
		return
	}

	if attributes := options.Strings("attributes"); len(attributes) > 0 {
		command += " " + strings.Join(attributes, " ")
	}

	argv, err := shlex.Split(command)
	if err != nil {
		errorf(tc, "Cannot parse command %q: %v", command, err)
		done()
		return
	}

	infof(tc, "Executing %q", command)

	go func() {
		defer done()

		err := tasks.RunCommand(tc, argv, nil)
		var cmdErr *tasks.CommandError
		switch {
		case errors.As(err, &cmdErr):
			errorf(tc, "There was an error executing command (exit code: %d)", cmdErr.ExitCode)
		case err != nil:
			tc.Error(err.Error())
		}
	}()
}
