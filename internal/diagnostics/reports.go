package diagnostics

import (
	"time"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/dump"
	"github.com/Yousha/dotlyzer/internal/inspect"
)

// Report kinds.
const (
	KindSystem      = "system"
	KindMemory      = "memory"
	KindThreads     = "threads"
	KindFeatures    = "features"
	KindProfile     = "profile"
	KindPermissions = "permissions"
	KindProcesses   = "processes"
	KindDump        = "dump"
)

// Header identifies one report.
type Header struct {
	ReportID   string    `json:"report_id" yaml:"report_id"`
	Kind       string    `json:"kind" yaml:"kind"`
	PID        int32     `json:"pid,omitempty" yaml:"pid,omitempty"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// Meta returns the header. Every report embeds Header and so satisfies
// Report.
func (h Header) Meta() Header {
	return h
}

// Report is any report produced by the Aggregator.
type Report interface {
	Meta() Header
}

// Identity describes who and what the target process is.
type Identity struct {
	PID         int32                  `json:"pid" yaml:"pid"`
	Name        string                 `json:"name" yaml:"name"`
	Exe         core.Result[string]    `json:"exe" yaml:"exe"`
	ParentPID   core.Result[int32]     `json:"parent_pid" yaml:"parent_pid"`
	User        core.Result[string]    `json:"user" yaml:"user"`
	StartTime   core.Result[time.Time] `json:"start_time" yaml:"start_time"`
	CommandLine core.Result[[]string]  `json:"command_line" yaml:"command_line"`
	Managed     core.Result[bool]      `json:"managed" yaml:"managed"`
}

// SystemReport is the overall view of one process and its host.
type SystemReport struct {
	Header      `json:",inline" yaml:",inline"`
	Identity    core.Result[Identity]                 `json:"identity" yaml:"identity"`
	Permissions core.Result[inspect.PermissionReport] `json:"permissions" yaml:"permissions"`
	Host        core.Result[HostInfo]                 `json:"host" yaml:"host"`
}

// MemoryCounters are the memory fields of a metrics snapshot, in bytes.
type MemoryCounters struct {
	WorkingSet     core.Result[uint64] `json:"working_set" yaml:"working_set"`
	PeakWorkingSet core.Result[uint64] `json:"peak_working_set" yaml:"peak_working_set"`
	Private        core.Result[uint64] `json:"private" yaml:"private"`
	Virtual        core.Result[uint64] `json:"virtual" yaml:"virtual"`
	Paged          core.Result[uint64] `json:"paged" yaml:"paged"`
	PeakPaged      core.Result[uint64] `json:"peak_paged" yaml:"peak_paged"`
}

// MemoryReport holds the target's memory counters. Inspector describes the
// inspecting process and is captioned accordingly.
type MemoryReport struct {
	Header    `json:",inline" yaml:",inline"`
	Counters  core.Result[MemoryCounters] `json:"counters" yaml:"counters"`
	Inspector core.Result[SelfRuntime]    `json:"inspector_runtime" yaml:"inspector_runtime"`
}

// ThreadSummary is the thread section of a ThreadsReport.
type ThreadSummary struct {
	Count       int                  `json:"count" yaml:"count"`
	StateCounts []inspect.StateCount `json:"state_counts" yaml:"state_counts"`
	Top         []inspect.ThreadInfo `json:"top" yaml:"top"`
	Skipped     int                  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// ThreadsReport summarizes thread states and CPU leaders.
type ThreadsReport struct {
	Header  `json:",inline" yaml:",inline"`
	Threads core.Result[ThreadSummary] `json:"threads" yaml:"threads"`
}

// FeaturesReport lists modules and the runtime-level diagnostic features.
type FeaturesReport struct {
	Header      `json:",inline" yaml:",inline"`
	Modules     core.Result[inspect.ModuleReport] `json:"modules" yaml:"modules"`
	HandleCount core.Result[int32]                `json:"handle_count" yaml:"handle_count"`
	Managed     core.Result[bool]                 `json:"managed" yaml:"managed"`
	// Exceptions is always unavailable: symbolicated exception and stack
	// inspection is not performed.
	Exceptions core.Result[string] `json:"exception_inspection" yaml:"exception_inspection"`
}

// CPUProfile is the process-wide CPU usage.
type CPUProfile struct {
	Total     core.Result[time.Duration] `json:"total" yaml:"total"`
	User      core.Result[time.Duration] `json:"user" yaml:"user"`
	Kernel    core.Result[time.Duration] `json:"kernel" yaml:"kernel"`
	StartTime core.Result[time.Time]     `json:"start_time" yaml:"start_time"`
	Uptime    core.Result[time.Duration] `json:"uptime" yaml:"uptime"`
	Percent   core.Result[float64]       `json:"percent" yaml:"percent"`
}

// ThreadTiming is the CPU time of one thread.
type ThreadTiming struct {
	ID        int32                  `json:"id" yaml:"id"`
	User      time.Duration          `json:"user" yaml:"user"`
	Kernel    time.Duration          `json:"kernel" yaml:"kernel"`
	Total     time.Duration          `json:"total" yaml:"total"`
	StartTime core.Result[time.Time] `json:"start_time" yaml:"start_time"`
}

// ProfileReport holds CPU usage and per-thread timing.
type ProfileReport struct {
	Header  `json:",inline" yaml:",inline"`
	CPU     core.Result[CPUProfile]     `json:"cpu" yaml:"cpu"`
	Threads core.Result[[]ThreadTiming] `json:"threads" yaml:"threads"`
}

// PermissionsReport wraps the permission view as a standalone report.
type PermissionsReport struct {
	Header      `json:",inline" yaml:",inline"`
	Permissions core.Result[inspect.PermissionReport] `json:"permissions" yaml:"permissions"`
}

// ProcessListReport is the sorted process table.
type ProcessListReport struct {
	Header  `json:",inline" yaml:",inline"`
	Listing inspect.Listing `json:"listing" yaml:"listing"`
}

// DumpReport is the outcome of one dump request.
type DumpReport struct {
	Header `json:",inline" yaml:",inline"`
	Dump   dump.Result `json:"dump" yaml:"dump"`
	Error  string      `json:"error,omitempty" yaml:"error,omitempty"`
}
