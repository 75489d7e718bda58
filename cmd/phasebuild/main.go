// Command phasebuild runs the phases of a layered build configuration.
package main

import (
	"os"

	"github.com/poltergeist/phasebuild/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.NewCLI(version).Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
