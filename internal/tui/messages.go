package tui

import (
	"time"

	"github.com/Yousha/dotlyzer/internal/diagnostics"
)

type spinnerTickMsg time.Time

// processesMsg carries a finished process listing.
type processesMsg struct {
	report *diagnostics.ProcessListReport
	err    error
}

// reportMsg carries a finished report or the error that aborted it.
type reportMsg struct {
	title  string
	report diagnostics.Report
	err    error
}
