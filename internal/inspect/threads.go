package inspect

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// ThreadState is a named run state, or Unknown(<raw>) for a native code
// with no name.
type ThreadState string

const (
	StateInitialized ThreadState = "Initialized"
	StateReady       ThreadState = "Ready"
	StateRunning     ThreadState = "Running"
	StateStandby     ThreadState = "Standby"
	StateTerminated  ThreadState = "Terminated"
	StateWaiting     ThreadState = "Waiting"
	StateTransition  ThreadState = "Transition"
	StateUnknown     ThreadState = "Unknown"
)

// UnknownState keeps an unmapped native code visible.
func UnknownState(raw string) ThreadState {
	return ThreadState("Unknown(" + raw + ")")
}

// KTHREAD_STATE values as reported by NtQuerySystemInformation.
var windowsThreadStates = map[string]ThreadState{
	"0": StateInitialized,
	"1": StateReady,
	"2": StateRunning,
	"3": StateStandby,
	"4": StateTerminated,
	"5": StateWaiting,
	"6": StateTransition,
	"7": StateUnknown,
}

// State letters of /proc/<pid>/task/<tid>/stat. Stopped and traced threads
// (T, t) have no counterpart and stay raw.
var procThreadStates = map[string]ThreadState{
	"R": StateRunning,
	"S": StateWaiting,
	"D": StateWaiting,
	"I": StateWaiting,
	"Z": StateTerminated,
	"X": StateTerminated,
	"W": StateTransition,
}

func nativeThreadStates() map[string]ThreadState {
	if runtime.GOOS == "windows" {
		return windowsThreadStates
	}
	return procThreadStates
}

// MapThreadState names a native state code using table.
func MapThreadState(table map[string]ThreadState, code string) ThreadState {
	if s, ok := table[code]; ok {
		return s
	}
	return UnknownState(code)
}

// ThreadInfo is one thread at the time of the read.
type ThreadInfo struct {
	ID           int32                  `json:"id" yaml:"id"`
	State        ThreadState            `json:"state" yaml:"state"`
	BasePriority int32                  `json:"base_priority" yaml:"base_priority"`
	CPUTotal     time.Duration          `json:"cpu_total" yaml:"cpu_total"`
	CPUUser      time.Duration          `json:"cpu_user" yaml:"cpu_user"`
	CPUKernel    time.Duration          `json:"cpu_kernel" yaml:"cpu_kernel"`
	StartTime    core.Result[time.Time] `json:"start_time" yaml:"start_time"`
}

// StateCount is the number of threads in one state.
type StateCount struct {
	State ThreadState `json:"state" yaml:"state"`
	Count int         `json:"count" yaml:"count"`
}

// ThreadReport holds every readable thread and the derived views.
type ThreadReport struct {
	// Threads are in enumeration order.
	Threads     []ThreadInfo `json:"threads" yaml:"threads"`
	StateCounts []StateCount `json:"state_counts" yaml:"state_counts"`
	Top         []ThreadInfo `json:"top" yaml:"top"`
	// Skipped threads exited or could not be read mid-enumeration.
	Skipped int   `json:"skipped" yaml:"skipped"`
	Partial error `json:"-" yaml:"-"`
}

// InspectThreads enumerates the threads of p.
func (in *Inspector) InspectThreads(ctx context.Context, p *Process) (ThreadReport, error) {
	if err := p.Alive(ctx); err != nil {
		return ThreadReport{}, err
	}
	records, err := in.plat.Threads(p.PID)
	if err != nil {
		return ThreadReport{}, err
	}
	report := BuildThreadReport(records, nativeThreadStates(), in.settings.TopThreads)
	if report.Skipped > 0 {
		in.logger.WithPID(p.PID).Debug("threads skipped", "count", report.Skipped)
	}
	return report, nil
}

// BuildThreadReport converts platform records and derives the views.
func BuildThreadReport(records []platform.ThreadRecord, states map[string]ThreadState, topN int) ThreadReport {
	var report ThreadReport
	report.Threads = make([]ThreadInfo, 0, len(records))
	for _, r := range records {
		if r.Err != nil {
			report.Skipped++
			continue
		}
		info := ThreadInfo{
			ID:           r.TID,
			State:        MapThreadState(states, r.StateCode),
			BasePriority: r.BasePriority,
			CPUUser:      r.UserTime,
			CPUKernel:    r.KernelTime,
			CPUTotal:     r.UserTime + r.KernelTime,
		}
		if r.StartTime.IsZero() {
			info.StartTime = core.Fail[time.Time](core.ErrPartialData("thread start time", 1))
		} else {
			info.StartTime = core.Ok(r.StartTime)
		}
		report.Threads = append(report.Threads, info)
	}
	if report.Skipped > 0 {
		report.Partial = core.ErrPartialData("threads", report.Skipped)
	}
	report.StateCounts = CountByState(report.Threads)
	report.Top = TopByCPU(report.Threads, topN)
	return report
}

// CountByState tallies threads per state, ordered by state name.
func CountByState(threads []ThreadInfo) []StateCount {
	counts := make(map[ThreadState]int)
	for _, t := range threads {
		counts[t.State]++
	}
	out := make([]StateCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StateCount{State: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}

// TopByCPU returns the n threads with the most total CPU time, descending,
// ties by thread id ascending.
func TopByCPU(threads []ThreadInfo, n int) []ThreadInfo {
	sorted := append([]ThreadInfo(nil), threads...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CPUTotal != sorted[j].CPUTotal {
			return sorted[i].CPUTotal > sorted[j].CPUTotal
		}
		return sorted[i].ID < sorted[j].ID
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
