package inspect

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// Process is an open inspection session on one process. It pairs the
// gopsutil view with a native handle; both are released by Close.
type Process struct {
	PID  int32
	Name string

	proc      *process.Process
	host      platform.Host
	native    platform.Handle
	nativeErr error
	closed    bool
}

// Open resolves pid to a running process and acquires its native handle.
// A process the caller may not open natively is still returned; readers that
// need the handle then report AccessDenied for their own fields.
func (in *Inspector) Open(ctx context.Context, pid int32) (*Process, error) {
	if pid < 0 {
		return nil, core.ErrNotFound(pid)
	}
	// gopsutil rejects pids it considers invalid with a plain error.
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil || !exists {
		return nil, core.ErrNotFound(pid).WithCause(err)
	}
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, classify(err, pid, "process")
	}

	p := &Process{PID: pid, proc: proc, host: in.plat}
	if name, err := proc.NameWithContext(ctx); err == nil {
		p.Name = name
	}

	h, err := in.plat.OpenProcess(pid)
	switch {
	case core.IsNotFound(err):
		return nil, err
	case err != nil:
		in.logger.WithPID(pid).Debug("native handle unavailable", "error", err)
		p.nativeErr = err
	default:
		p.native = h
	}
	return p, nil
}

// WithProcess opens pid, runs fn and releases the process on every exit
// path, panics included.
func (in *Inspector) WithProcess(ctx context.Context, pid int32, fn func(*Process) error) error {
	p, err := in.Open(ctx, pid)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

// Close releases the native handle. It is safe to call more than once.
func (p *Process) Close() error {
	if p == nil || p.closed {
		return nil
	}
	p.closed = true
	if p.native == 0 {
		return nil
	}
	h := p.native
	p.native = 0
	return p.host.CloseHandle(h)
}

// Handle returns the native handle, or why there is none.
func (p *Process) Handle() (platform.Handle, error) {
	if p.closed {
		return 0, core.ErrInternal("process handle already closed")
	}
	if p.nativeErr != nil {
		return 0, p.nativeErr
	}
	return p.native, nil
}

// Alive fails with NotFound once the process has exited. gopsutil compares
// creation times, so a recycled pid also counts as gone.
func (p *Process) Alive(ctx context.Context) error {
	if p.closed {
		return core.ErrInternal("process handle already closed")
	}
	running, err := p.proc.IsRunningWithContext(ctx)
	if err != nil || !running {
		return core.ErrNotFound(p.PID)
	}
	return nil
}

// Proc exposes the gopsutil process for readers outside this package.
func (p *Process) Proc() *process.Process {
	return p.proc
}
