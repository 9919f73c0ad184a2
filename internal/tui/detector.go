package tui

import (
	"os"

	"golang.org/x/term"
)

// Detector decides how output should be presented on this terminal.
type Detector struct {
	noColor bool
	stdin   *os.File
	stdout  *os.File
}

// NewDetector creates a detector for the process's standard streams.
func NewDetector() *Detector {
	return &Detector{stdin: os.Stdin, stdout: os.Stdout}
}

// NoColor disables color output.
func (d *Detector) NoColor(disable bool) *Detector {
	d.noColor = disable
	return d
}

// Interactive reports whether the interactive menu can run: both stdin and
// stdout must be terminals and no CI environment may be detected.
func (d *Detector) Interactive() bool {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return false
	}
	if os.Getenv("DOTLYZER_NONINTERACTIVE") == "1" {
		return false
	}
	return isTTY(d.stdin) && isTTY(d.stdout)
}

// ShouldUseColor determines if color should be used on stdout.
func (d *Detector) ShouldUseColor() bool {
	if d.noColor {
		return false
	}

	// NO_COLOR convention
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}

	return isTTY(d.stdout)
}

func isTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalSize returns terminal dimensions.
func TerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80, 24 // Default
	}
	return w, h
}
