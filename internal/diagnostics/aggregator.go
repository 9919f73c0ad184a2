package diagnostics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/dump"
	"github.com/Yousha/dotlyzer/internal/inspect"
	"github.com/Yousha/dotlyzer/internal/logging"
)

// DefaultDumpDir is where CreateDump writes unless told otherwise.
const DefaultDumpDir = "dumps"

// Aggregator composes inspector output into reports. Each report opens the
// target once and releases it before returning.
type Aggregator struct {
	in      *inspect.Inspector
	dumps   *dump.Writer
	host    *HostCollector
	logger  *logging.Logger
	dumpDir string
	started time.Time
	now     func() time.Time
	newID   func() string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithDumpDir sets the directory for CreateDump.
func WithDumpDir(dir string) Option {
	return func(a *Aggregator) {
		if dir != "" {
			a.dumpDir = dir
		}
	}
}

// WithHostCollector shares a host collector between aggregators.
func WithHostCollector(c *HostCollector) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.host = c
		}
	}
}

// New creates an aggregator over in.
func New(in *inspect.Inspector, logger *logging.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Aggregator{
		in:      in,
		dumps:   dump.NewWriter(in.Platform(), logger),
		host:    NewHostCollector(),
		logger:  logger.WithComponent("diagnostics"),
		dumpDir: DefaultDumpDir,
		started: time.Now(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DumpDir returns the directory CreateDump writes to.
func (a *Aggregator) DumpDir() string {
	return a.dumpDir
}

func (a *Aggregator) header(kind string, pid int32) Header {
	return Header{ReportID: a.newID(), Kind: kind, PID: pid, CapturedAt: a.now()}
}

// withTarget runs fn with the opened target and a logger tagged for the
// report. NotFound while opening aborts the report.
func (a *Aggregator) withTarget(ctx context.Context, h Header, fn func(*inspect.Process, *logging.Logger)) error {
	log := a.logger.WithReport(h.Kind, h.ReportID).WithPID(h.PID)
	err := a.in.WithProcess(ctx, h.PID, func(p *inspect.Process) error {
		fn(p, log)
		return nil
	})
	if err != nil {
		log.Info("report aborted", "error", err)
		return err
	}
	log.Debug("report complete")
	return nil
}

// SystemDiagnostics reports identity, permissions and host information.
func (a *Aggregator) SystemDiagnostics(ctx context.Context, pid int32) (*SystemReport, error) {
	report := &SystemReport{Header: a.header(KindSystem, pid)}
	err := a.withTarget(ctx, report.Header, func(p *inspect.Process, log *logging.Logger) {
		report.Identity = runSection(log, "identity", func() (Identity, error) {
			return a.identity(ctx, p, log)
		})
		report.Permissions = runSection(log, "permissions", func() (inspect.PermissionReport, error) {
			return a.in.InspectPermissions(ctx, p)
		})
		report.Host = runSection(log, "host", func() (HostInfo, error) {
			return a.host.Collect(ctx), nil
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (a *Aggregator) identity(ctx context.Context, p *inspect.Process, log *logging.Logger) (Identity, error) {
	if err := p.Alive(ctx); err != nil {
		return Identity{}, err
	}
	proc := p.Proc()
	id := Identity{PID: p.PID, Name: p.Name}

	exe, err := proc.ExeWithContext(ctx)
	id.Exe = read(p.PID, "executable path", exe, err)
	ppid, err := proc.PpidWithContext(ctx)
	id.ParentPID = read(p.PID, "parent pid", ppid, err)
	user, err := proc.UsernameWithContext(ctx)
	id.User = read(p.PID, "user", user, err)

	if ms, err := proc.CreateTimeWithContext(ctx); err != nil {
		id.StartTime = core.Fail[time.Time](core.Classify(err, p.PID, "start time"))
	} else {
		id.StartTime = core.Ok(time.UnixMilli(ms))
	}

	if args, err := proc.CmdlineSliceWithContext(ctx); err != nil {
		id.CommandLine = core.Fail[[]string](core.Classify(err, p.PID, "command line"))
	} else {
		id.CommandLine = core.Ok(log.Sanitizer().SanitizeArgs(args))
	}

	id.Managed = a.in.IsManaged(p)
	return id, nil
}

// MemoryAnalysis reports the target's memory counters together with the
// inspector's own runtime figures.
func (a *Aggregator) MemoryAnalysis(ctx context.Context, pid int32) (*MemoryReport, error) {
	report := &MemoryReport{Header: a.header(KindMemory, pid)}
	err := a.withTarget(ctx, report.Header, func(p *inspect.Process, log *logging.Logger) {
		report.Counters = runSection(log, "memory", func() (MemoryCounters, error) {
			snap, err := a.in.CollectMetrics(ctx, p)
			if err != nil {
				return MemoryCounters{}, err
			}
			return MemoryCounters{
				WorkingSet:     snap.WorkingSet,
				PeakWorkingSet: snap.PeakWorkingSet,
				Private:        snap.Private,
				Virtual:        snap.Virtual,
				Paged:          snap.Paged,
				PeakPaged:      snap.PeakPaged,
			}, nil
		})
		report.Inspector = runSection(log, "inspector runtime", func() (SelfRuntime, error) {
			return TakeSelfRuntime(a.started), nil
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ThreadAnalysis reports thread count, state counts and CPU leaders.
func (a *Aggregator) ThreadAnalysis(ctx context.Context, pid int32) (*ThreadsReport, error) {
	report := &ThreadsReport{Header: a.header(KindThreads, pid)}
	err := a.withTarget(ctx, report.Header, func(p *inspect.Process, log *logging.Logger) {
		report.Threads = runSection(log, "threads", func() (ThreadSummary, error) {
			tr, err := a.in.InspectThreads(ctx, p)
			if err != nil {
				return ThreadSummary{}, err
			}
			return ThreadSummary{
				Count:       len(tr.Threads),
				StateCounts: tr.StateCounts,
				Top:         tr.Top,
				Skipped:     tr.Skipped,
			}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// DiagnosticFeatures reports modules, handle count and the runtime tag.
func (a *Aggregator) DiagnosticFeatures(ctx context.Context, pid int32) (*FeaturesReport, error) {
	report := &FeaturesReport{
		Header:     a.header(KindFeatures, pid),
		Exceptions: core.Fail[string](core.ErrUnsupported("exception and stack inspection")),
	}
	err := a.withTarget(ctx, report.Header, func(p *inspect.Process, log *logging.Logger) {
		report.Modules = runSection(log, "modules", func() (inspect.ModuleReport, error) {
			mr := a.in.InspectModules(ctx, p)
			if mr.Err != nil {
				return inspect.ModuleReport{}, mr.Err
			}
			return mr, nil
		})
		report.HandleCount = runSection(log, "handle count", func() (int32, error) {
			n, err := p.Proc().NumFDsWithContext(ctx)
			if err != nil {
				return 0, core.Classify(err, p.PID, "handle count")
			}
			return n, nil
		})
		report.Managed = runSection(log, "managed runtime", func() (bool, error) {
			managed := a.in.IsManaged(p)
			return managed.Value, managed.Err
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Profiling reports CPU usage and per-thread timing.
func (a *Aggregator) Profiling(ctx context.Context, pid int32) (*ProfileReport, error) {
	report := &ProfileReport{Header: a.header(KindProfile, pid)}
	err := a.withTarget(ctx, report.Header, func(p *inspect.Process, log *logging.Logger) {
		report.CPU = runSection(log, "cpu", func() (CPUProfile, error) {
			snap, err := a.in.CollectMetrics(ctx, p)
			if err != nil {
				return CPUProfile{}, err
			}
			return CPUProfile{
				Total:     snap.CPUTotal,
				User:      snap.CPUUser,
				Kernel:    snap.CPUKernel,
				StartTime: snap.StartTime,
				Uptime:    snap.Uptime(),
				Percent:   snap.CPUPercent(),
			}, nil
		})
		report.Threads = runSection(log, "thread timing", func() ([]ThreadTiming, error) {
			tr, err := a.in.InspectThreads(ctx, p)
			if err != nil {
				return nil, err
			}
			timings := make([]ThreadTiming, len(tr.Threads))
			for i, t := range tr.Threads {
				timings[i] = ThreadTiming{
					ID:        t.ID,
					User:      t.CPUUser,
					Kernel:    t.CPUKernel,
					Total:     t.CPUTotal,
					StartTime: t.StartTime,
				}
			}
			return timings, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Permissions reports the permission view on its own.
func (a *Aggregator) Permissions(ctx context.Context, pid int32) (*PermissionsReport, error) {
	report := &PermissionsReport{Header: a.header(KindPermissions, pid)}
	err := a.withTarget(ctx, report.Header, func(p *inspect.Process, log *logging.Logger) {
		report.Permissions = runSection(log, "permissions", func() (inspect.PermissionReport, error) {
			return a.in.InspectPermissions(ctx, p)
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListProcesses lists every visible process.
func (a *Aggregator) ListProcesses(ctx context.Context) (*ProcessListReport, error) {
	report := &ProcessListReport{Header: a.header(KindProcesses, 0)}
	listing, err := a.in.Enumerator().List(ctx)
	if err != nil {
		a.logger.WithReport(report.Kind, report.ReportID).Error("process listing failed", "error", err)
		return nil, err
	}
	report.Listing = listing
	return report, nil
}

// CreateDump snapshots pid into the dump directory. A failed dump is still
// a report; only a missing process is an error.
func (a *Aggregator) CreateDump(ctx context.Context, pid int32, mode dump.Mode) (*DumpReport, error) {
	report := &DumpReport{Header: a.header(KindDump, pid)}
	res := a.dumps.Write(ctx, dump.Request{
		PID:  pid,
		Mode: mode,
		Path: dump.DefaultPath(a.dumpDir, pid, report.CapturedAt),
	})
	if res.IsNotFound() {
		return nil, res.Err
	}
	report.Dump = res
	report.Error = res.Reason()
	return report, nil
}

func read[T any](pid int32, what string, v T, err error) core.Result[T] {
	if err != nil {
		return core.Fail[T](core.Classify(err, pid, what))
	}
	return core.Ok(v)
}
