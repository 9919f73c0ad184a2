package tui_test

import (
	"testing"

	"github.com/Yousha/dotlyzer/internal/tui"
)

func TestDetector_NoColorFlag(t *testing.T) {
	t.Parallel()
	if tui.NewDetector().NoColor(true).ShouldUseColor() {
		t.Error("ShouldUseColor() = true with NoColor(true)")
	}
}

func TestDetector_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if tui.NewDetector().ShouldUseColor() {
		t.Error("ShouldUseColor() = true with NO_COLOR set")
	}
}

func TestDetector_DumbTerminal(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "dumb")
	if tui.NewDetector().ShouldUseColor() {
		t.Error("ShouldUseColor() = true with TERM=dumb")
	}
}

func TestDetector_Interactive_CIEnvironment(t *testing.T) {
	t.Setenv("CI", "true")
	if tui.NewDetector().Interactive() {
		t.Error("Interactive() = true in CI")
	}

	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "true")
	if tui.NewDetector().Interactive() {
		t.Error("Interactive() = true in GITHUB_ACTIONS")
	}
}

func TestDetector_Interactive_Disabled(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	t.Setenv("DOTLYZER_NONINTERACTIVE", "1")
	if tui.NewDetector().Interactive() {
		t.Error("Interactive() = true with DOTLYZER_NONINTERACTIVE=1")
	}
}

func TestTerminalSize_Defaults(t *testing.T) {
	t.Parallel()
	w, h := tui.TerminalSize()
	if w <= 0 || h <= 0 {
		t.Errorf("TerminalSize() = %d, %d", w, h)
	}
}
