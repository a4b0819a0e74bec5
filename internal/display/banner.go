package display

import (
	"fmt"
	"os"

	"github.com/backmassage/mxcore/internal/config"
	"github.com/backmassage/mxcore/internal/term"
)

// PrintBanner prints the mxcore ASCII art logo to stdout, in magenta when
// mode resolves to color-enabled.
func PrintBanner(mode config.ColorMode) {
	color := term.ColorEnabled(mode)
	if color {
		fmt.Fprint(os.Stdout, "\033[1;95m")
	}
	fmt.Fprint(os.Stdout, ` _ __ ___ __  _____ ___  _ __ ___
| '_ ` + "`" + ` _ \ \/ / __/ _ \| '__/ _ \
| | | | | |>  < (_| (_) | | |  __/
|_| |_| |_/_/\_\___\___/|_|  \___|
`)
	if color {
		fmt.Fprintln(os.Stdout, "\033[0m")
	}
}
