package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/diagnostics"
)

func profileReport() *diagnostics.ProfileReport {
	return &diagnostics.ProfileReport{
		Header: diagnostics.Header{
			ReportID:   "r-1",
			Kind:       diagnostics.KindProfile,
			PID:        321,
			CapturedAt: time.Unix(1700000000, 0),
		},
		CPU: core.Ok(diagnostics.CPUProfile{
			Total:   core.Ok(15 * time.Second),
			User:    core.Ok(10 * time.Second),
			Kernel:  core.Ok(5 * time.Second),
			Uptime:  core.Ok(150 * time.Second),
			Percent: core.Ok(10.0),
			// Start time is not exported.
			StartTime: core.Fail[time.Time](core.ErrAccessDenied("start time")),
		}),
		Threads: core.Ok([]diagnostics.ThreadTiming{
			{ID: 321, Total: 12 * time.Second},
			{ID: 322, Total: 3 * time.Second},
		}),
	}
}

func TestWriteProfileTextfile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "textfile", "dotlyzer.prom")

	require.NoError(t, WriteProfileTextfile(path, profileReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	for _, line := range []string{
		`dotlyzer_process_cpu_seconds{mode="user",pid="321"} 10`,
		`dotlyzer_process_cpu_seconds{mode="kernel",pid="321"} 5`,
		`dotlyzer_process_uptime_seconds{pid="321"} 150`,
		`dotlyzer_process_cpu_percent{pid="321"} 10`,
		`dotlyzer_thread_cpu_seconds{pid="321",tid="321"} 12`,
		`dotlyzer_thread_cpu_seconds{pid="321",tid="322"} 3`,
		`dotlyzer_report_timestamp_seconds{pid="321",report_id="r-1"} 1.7e+09`,
	} {
		assert.Contains(t, text, line)
	}
}

func TestProfileRegistry_SkipsUnavailable(t *testing.T) {
	t.Parallel()
	report := profileReport()
	report.CPU = core.Fail[diagnostics.CPUProfile](core.ErrAccessDenied("cpu times"))
	report.Threads = core.Fail[[]diagnostics.ThreadTiming](core.ErrAccessDenied("threads"))

	families, err := ProfileRegistry(report).Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Equal(t, []string{"dotlyzer_report_timestamp_seconds"}, names)
}
