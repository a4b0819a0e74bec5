// Command mxcore is the CLI entrypoint for the mxcore media conversion
// orchestrator: a preset-driven batch converter around the same planner,
// scheduler, and runner a GUI host embeds through the orchestrator facade.
package main

import (
	"os"

	"github.com/backmassage/mxcore/cmd/mxcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
