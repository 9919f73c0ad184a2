package inspect

import (
	"context"
	"time"

	"github.com/Yousha/dotlyzer/internal/core"
)

// MetricsSnapshot is one instant of a process's counters. Each field is
// read independently.
type MetricsSnapshot struct {
	PID int32 `json:"pid" yaml:"pid"`

	WorkingSet     core.Result[uint64] `json:"working_set" yaml:"working_set"`
	PeakWorkingSet core.Result[uint64] `json:"peak_working_set" yaml:"peak_working_set"`
	Private        core.Result[uint64] `json:"private" yaml:"private"`
	Virtual        core.Result[uint64] `json:"virtual" yaml:"virtual"`
	Paged          core.Result[uint64] `json:"paged" yaml:"paged"`
	PeakPaged      core.Result[uint64] `json:"peak_paged" yaml:"peak_paged"`

	HandleCount core.Result[int32] `json:"handle_count" yaml:"handle_count"`
	ThreadCount core.Result[int32] `json:"thread_count" yaml:"thread_count"`

	CPUTotal  core.Result[time.Duration] `json:"cpu_total" yaml:"cpu_total"`
	CPUUser   core.Result[time.Duration] `json:"cpu_user" yaml:"cpu_user"`
	CPUKernel core.Result[time.Duration] `json:"cpu_kernel" yaml:"cpu_kernel"`

	StartTime  core.Result[time.Time] `json:"start_time" yaml:"start_time"`
	CapturedAt time.Time              `json:"captured_at" yaml:"captured_at"`
}

// Uptime is the time between process start and capture.
func (m MetricsSnapshot) Uptime() core.Result[time.Duration] {
	start, ok := m.StartTime.Get()
	if !ok {
		return core.Fail[time.Duration](m.StartTime.Err)
	}
	return core.Ok(m.CapturedAt.Sub(start))
}

// CPUPercent is the CPU share over the process lifetime.
func (m MetricsSnapshot) CPUPercent() core.Result[float64] {
	total, ok := m.CPUTotal.Get()
	if !ok {
		return core.Fail[float64](m.CPUTotal.Err)
	}
	uptime, ok := m.Uptime().Get()
	if !ok {
		return core.Fail[float64](m.StartTime.Err)
	}
	return CPUPercent(total, uptime)
}

// CPUPercent returns total/uptime*100, or unavailable for a non-positive
// uptime.
func CPUPercent(total, uptime time.Duration) core.Result[float64] {
	if uptime <= 0 {
		return core.Fail[float64](core.ErrValidation(core.CodeZeroUptime, "process uptime is zero"))
	}
	return core.Ok(total.Seconds() / uptime.Seconds() * 100)
}

// CollectMetrics reads the counters of p. It fails only with NotFound; every
// other failure is recorded on the affected field.
func (in *Inspector) CollectMetrics(ctx context.Context, p *Process) (MetricsSnapshot, error) {
	if err := p.Alive(ctx); err != nil {
		return MetricsSnapshot{}, err
	}
	snap := MetricsSnapshot{PID: p.PID, CapturedAt: in.now()}

	if mi, err := p.proc.MemoryInfoWithContext(ctx); err != nil {
		err = classify(err, p.PID, "memory info")
		snap.WorkingSet = core.Fail[uint64](err)
		snap.Virtual = core.Fail[uint64](err)
	} else {
		snap.WorkingSet = core.Ok(mi.RSS)
		snap.Virtual = core.Ok(mi.VMS)
	}

	snap.HandleCount = core.From(p.proc.NumFDsWithContext(ctx))
	if !snap.HandleCount.Available() {
		snap.HandleCount.Err = classify(snap.HandleCount.Err, p.PID, "handle count")
	}
	snap.ThreadCount = core.From(p.proc.NumThreadsWithContext(ctx))
	if !snap.ThreadCount.Available() {
		snap.ThreadCount.Err = classify(snap.ThreadCount.Err, p.PID, "thread count")
	}

	if times, err := p.proc.TimesWithContext(ctx); err != nil {
		err = classify(err, p.PID, "cpu times")
		snap.CPUTotal = core.Fail[time.Duration](err)
		snap.CPUUser = core.Fail[time.Duration](err)
		snap.CPUKernel = core.Fail[time.Duration](err)
	} else {
		user := seconds(times.User)
		kernel := seconds(times.System)
		snap.CPUUser = core.Ok(user)
		snap.CPUKernel = core.Ok(kernel)
		snap.CPUTotal = core.Ok(user + kernel)
	}

	if ms, err := p.proc.CreateTimeWithContext(ctx); err != nil {
		snap.StartTime = core.Fail[time.Time](classify(err, p.PID, "start time"))
	} else {
		snap.StartTime = core.Ok(time.UnixMilli(ms))
	}

	in.collectNativeCounters(p, &snap)

	// A process that exited while being read has no trustworthy snapshot.
	if err := p.Alive(ctx); err != nil {
		return MetricsSnapshot{}, err
	}
	return snap, nil
}

func (in *Inspector) collectNativeCounters(p *Process, snap *MetricsSnapshot) {
	fail := func(err error) {
		snap.PeakWorkingSet = core.Fail[uint64](err)
		snap.Private = core.Fail[uint64](err)
		snap.Paged = core.Fail[uint64](err)
		snap.PeakPaged = core.Fail[uint64](err)
	}

	h, err := p.Handle()
	if err != nil {
		fail(err)
		return
	}
	counters, err := in.plat.MemoryCounters(h, p.PID)
	if err != nil {
		in.logger.WithPID(p.PID).Debug("memory counters unavailable", "error", err)
		fail(err)
		return
	}
	snap.PeakWorkingSet = counters.PeakWorkingSet
	snap.Private = counters.Private
	snap.Paged = counters.Paged
	snap.PeakPaged = counters.PeakPaged
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
