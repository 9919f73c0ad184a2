package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SpinnerModel shows that a report is being collected.
type SpinnerModel struct {
	frames []string
	index  int
}

var spinnerStyles = map[string][]string{
	"dots": {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	"line": {"-", "\\", "|", "/"},
}

// NewSpinner creates a spinner with the dots frames.
func NewSpinner() SpinnerModel {
	return SpinnerModel{frames: spinnerStyles["dots"]}
}

// WithStyle switches to a named frame set; unknown names are ignored.
func (s SpinnerModel) WithStyle(style string) SpinnerModel {
	if frames, ok := spinnerStyles[style]; ok {
		s.frames = frames
		s.index = 0
	}
	return s
}

// Tick returns a command that advances the spinner.
func (s SpinnerModel) Tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// Update advances on tick messages.
func (s SpinnerModel) Update(msg tea.Msg) (SpinnerModel, tea.Cmd) {
	if _, ok := msg.(spinnerTickMsg); ok {
		s.index = (s.index + 1) % len(s.frames)
		return s, s.Tick()
	}
	return s, nil
}

// View renders the current frame.
func (s SpinnerModel) View() string {
	return SuccessStyle.Render(s.frames[s.index])
}
