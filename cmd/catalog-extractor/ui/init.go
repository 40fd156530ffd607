package ui

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	noColorFlag bool
	verboseFlag bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// InitUI initializes the UI with color and verbose settings.
// Color is also disabled when stdout is not a terminal.
func InitUI(noColor, verbose bool) {
	noColorFlag = noColor || !isTerminal(stdout)
	verboseFlag = verbose

	if noColorFlag {
		color.NoColor = true
	}
}

// SetOutput redirects UI output, e.g. to a buffer in tests.
func SetOutput(out, errOut io.Writer) {
	stdout = out
	stderr = errOut
}

// IsTerminal checks if progress output is going to a terminal.
func IsTerminal() bool {
	return isTerminal(stderr)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
