package tui

import (
	"bytes"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/diagnostics"
	"github.com/Yousha/dotlyzer/internal/dump"
	"github.com/Yousha/dotlyzer/internal/inspect"
)

var captured = time.Date(2026, 10, 15, 9, 4, 5, 0, time.UTC)

func newTestRenderer(buf *bytes.Buffer) *Renderer {
	r := NewRenderer(buf, false)
	r.now = func() time.Time { return captured.Add(3 * time.Minute) }
	return r
}

func header(kind string, pid int32) diagnostics.Header {
	return diagnostics.Header{ReportID: "rep-1", Kind: kind, PID: pid, CapturedAt: captured}
}

func TestRender_MemoryReport(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.MemoryReport{
		Header: header(diagnostics.KindMemory, 42),
		Counters: core.Ok(diagnostics.MemoryCounters{
			WorkingSet:     core.Ok(uint64(1024)),
			PeakWorkingSet: core.Ok(uint64(1536)),
			Private:        core.Fail[uint64](core.ErrAccessDenied("private bytes")),
			Virtual:        core.Ok(uint64(1 << 30)),
		}),
		Inspector: core.Ok(diagnostics.SelfRuntime{Caption: diagnostics.SelfRuntimeCaption, Goroutines: 1234, NumGC: 3}),
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()

	assert.Contains(t, out, ">>> Memory Analysis (pid 42)")
	assert.Contains(t, out, "rep-1")
	assert.Contains(t, out, "3 minutes ago")
	assert.Contains(t, out, "1.0 KB")
	assert.Contains(t, out, "1.5 KB")
	assert.Contains(t, out, "1.0 GB")
	assert.Regexp(t, `Private bytes:\s+access denied`, out)
	assert.Contains(t, out, "--- "+diagnostics.SelfRuntimeCaption)
	assert.Contains(t, out, "1,234")
	assert.NotContains(t, out, "\x1b[")
}

func TestRender_UnavailableSection(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.ThreadsReport{
		Header:  header(diagnostics.KindThreads, 7),
		Threads: core.Fail[diagnostics.ThreadSummary](core.ErrAccessDenied("threads")),
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	assert.Contains(t, buf.String(), "--- Threads\n  access denied\n")
}

func TestRender_ThreadsTopTable(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.ThreadsReport{
		Header: header(diagnostics.KindThreads, 7),
		Threads: core.Ok(diagnostics.ThreadSummary{
			Count: 2,
			StateCounts: []inspect.StateCount{
				{State: inspect.StateWaiting, Count: 1},
				{State: inspect.UnknownState("T"), Count: 1},
			},
			Top: []inspect.ThreadInfo{
				{ID: 8, State: inspect.StateRunning, CPUTotal: 1500 * time.Millisecond, StartTime: core.Fail[time.Time](core.ErrAccessDenied("start"))},
			},
		}),
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()
	assert.Contains(t, out, "--- Top 1 by CPU time")
	assert.Contains(t, out, "Unknown(T):")
	assert.Regexp(t, `8\s+Running\s+00:00:01\.500`, out)
}

func TestRender_FeaturesReport(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.FeaturesReport{
		Header:      header(diagnostics.KindFeatures, 9),
		Modules:     core.Fail[inspect.ModuleReport](core.ErrAccessDenied("module list")),
		HandleCount: core.Ok(int32(12000)),
		Managed:     core.Ok(true),
		Exceptions:  core.Fail[string](core.ErrUnsupported("exception and stack inspection")),
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()
	assert.Contains(t, out, "12,000")
	assert.Regexp(t, `Managed runtime:\s+managed`, out)
	assert.Contains(t, out, "unavailable: not supported on this platform")
	assert.Contains(t, out, "--- Modules\n  access denied\n")
}

func TestRender_ModulesOmitted(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	mods := inspect.ModuleReport{
		Total:   25,
		Top:     []inspect.ModuleInfo{{Name: "big.so", Path: "/lib/big.so", Size: 2 << 20}},
		Listing: []inspect.ModuleInfo{{Name: "big.so", Path: "/lib/big.so", Size: 2 << 20}},
		Omitted: 5,
	}
	report := &diagnostics.FeaturesReport{Header: header(diagnostics.KindFeatures, 9), Modules: core.Ok(mods)}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()
	assert.Contains(t, out, "2.0 MB")
	assert.Contains(t, out, "/lib/big.so")
	assert.Contains(t, out, "... and 5 more")
}

func TestRender_ProfileReport(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.ProfileReport{
		Header: header(diagnostics.KindProfile, 3),
		CPU: core.Ok(diagnostics.CPUProfile{
			Total:   core.Ok(10 * time.Second),
			Uptime:  core.Ok(100 * time.Second),
			Percent: core.Ok(10.0),
		}),
		Threads: core.Ok([]diagnostics.ThreadTiming{{ID: 3, Total: time.Second}}),
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "00:01:40.000")
	assert.Regexp(t, `3\s+00:00:01\.000`, out)
}

func TestRender_PermissionsUnknownArchitecture(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.PermissionsReport{
		Header: header(diagnostics.KindPermissions, 5),
		Permissions: core.Ok(inspect.PermissionReport{
			PID:             5,
			SessionID:       core.Ok(uint32(1)),
			PriorityClass:   core.Fail[string](core.ErrAccessDenied("priority")),
			CallerIsAdmin:   core.Ok(false),
			Architecture:    inspect.ArchUnknown,
			ArchitectureErr: core.ErrAccessDenied("architecture"),
		}),
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()
	assert.Regexp(t, `Priority class:\s+access denied`, out)
	assert.Contains(t, out, "Unknown (access denied)")
	assert.Regexp(t, `Caller is admin:\s+no`, out)
}

func TestRender_ProcessList(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := &diagnostics.ProcessListReport{
		Header: header(diagnostics.KindProcesses, 0),
		Listing: inspect.Listing{
			Entries: []inspect.ProcessEntry{
				{PID: 10, Name: "Alpha", Managed: true},
				{PID: 11, Name: "beta"},
			},
			Stats: inspect.EnumStats{Total: 2, ModuleFailures: 1},
		},
	}

	require.NoError(t, newTestRenderer(&buf).Render(report))
	out := buf.String()
	assert.Contains(t, out, ">>> Processes\n")
	assert.Regexp(t, `10\s+Alpha\s+managed\n`, out)
	assert.Contains(t, out, "  11       beta\n")
	assert.Contains(t, out, "2 processes, 1 without module access")
	assert.Less(t, strings.Index(out, "Alpha"), strings.Index(out, "beta"))
}

func TestRender_DumpSuccessAndFailure(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := newTestRenderer(&buf)

	ok := &diagnostics.DumpReport{
		Header: header(diagnostics.KindDump, 4),
		Dump:   dump.Result{Succeeded: true, Path: "dumps/dump_4.dmp", Mode: "normal", Size: 2048},
	}
	require.NoError(t, r.Render(ok))
	assert.Contains(t, buf.String(), "written")
	assert.Contains(t, buf.String(), "2.0 KB")

	buf.Reset()
	code := uint32(1450)
	failed := &diagnostics.DumpReport{
		Header: header(diagnostics.KindDump, 4),
		Dump:   dump.Result{Path: "dumps/dump_4.dmp", Mode: "full", NativeErrorCode: &code, Err: syscall.Errno(1450)},
		Error:  "native call failed",
	}
	require.NoError(t, r.Render(failed))
	out := buf.String()
	assert.Regexp(t, `Result:\s+failed`, out)
	assert.Regexp(t, `Native error code:\s+1450`, out)
	assert.Contains(t, out, "content not reliable")
}

type unknownReport struct{ diagnostics.Header }

func TestRender_UnknownReportType(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := newTestRenderer(&buf).Render(unknownReport{})
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestRenderAbout(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, newTestRenderer(&buf).RenderAbout())
	out := buf.String()
	assert.Contains(t, out, core.AppVersion)
	assert.Contains(t, out, core.AppDescription)
	for _, f := range core.Features {
		assert.Contains(t, out, "  - "+f)
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := newTestRenderer(&buf)

	require.NoError(t, r.RenderError(core.ErrNotFound(99999)))
	assert.Equal(t, "error: process not found or has exited\n", buf.String())

	buf.Reset()
	require.NoError(t, r.RenderError(core.ErrValidation(core.CodeInvalidConfig, "bad")))
	assert.True(t, strings.HasPrefix(buf.String(), "error: "))
}
