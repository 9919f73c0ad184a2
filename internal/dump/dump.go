// Package dump writes process snapshots through the platform dump writer.
package dump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/logging"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// Mode selects how much of the process is captured.
type Mode int

const (
	// ModeNormal captures threads, modules and stacks.
	ModeNormal Mode = iota
	// ModeFull captures all readable memory.
	ModeFull
)

// String returns the mode name accepted by ParseMode.
func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "normal"
}

// DumpType is the native flag for m.
func (m Mode) DumpType() platform.DumpType {
	if m == ModeFull {
		return platform.DumpFullMemory
	}
	return platform.DumpNormal
}

// ParseMode maps "full" (any case) to ModeFull and anything else to
// ModeNormal.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "full") {
		return ModeFull
	}
	return ModeNormal
}

// Request describes one dump.
type Request struct {
	PID  int32
	Mode Mode
	Path string
}

// Result is the outcome of a dump. A failed result may still name a file on
// disk; its content is not reliable.
type Result struct {
	Succeeded       bool    `json:"succeeded" yaml:"succeeded"`
	Path            string  `json:"path,omitempty" yaml:"path,omitempty"`
	Mode            string  `json:"mode" yaml:"mode"`
	Size            int64   `json:"size,omitempty" yaml:"size,omitempty"`
	NativeErrorCode *uint32 `json:"native_error_code,omitempty" yaml:"native_error_code,omitempty"`
	Err             error   `json:"-" yaml:"-"`
}

// Reason returns the failure reason, or "".
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Writer performs dump requests. It does not serialize requests for the
// same path; callers must.
type Writer struct {
	plat   platform.Platform
	logger *logging.Logger
	exists func(ctx context.Context, pid int32) (bool, error)
}

// NewWriter creates a writer over plat.
func NewWriter(plat platform.Platform, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		plat:   plat,
		logger: logger.WithComponent("dump"),
		exists: process.PidExistsWithContext,
	}
}

// Write captures req.PID into req.Path. The output directory is created as
// needed and the file is truncated. Nothing is created when the process is
// not running or cannot be opened.
func (w *Writer) Write(ctx context.Context, req Request) Result {
	res := Result{Mode: req.Mode.String()}
	log := w.logger.WithPID(req.PID)

	if req.PID < 0 {
		res.Err = core.ErrNotFound(req.PID)
		return res
	}
	if ok, err := w.exists(ctx, req.PID); err != nil || !ok {
		res.Err = core.ErrNotFound(req.PID).WithCause(err)
		return res
	}
	if req.Path == "" {
		res.Err = core.ErrValidation(core.CodeInvalidConfig, "dump path is empty")
		return res
	}

	h, err := w.plat.OpenProcess(req.PID)
	if err != nil {
		res.Err = err
		return res
	}
	defer w.plat.CloseHandle(h)

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		res.Err = fmt.Errorf("creating dump directory: %w", err)
		return res
	}
	f, err := os.Create(req.Path)
	if err != nil {
		res.Err = fmt.Errorf("creating dump file: %w", err)
		return res
	}
	res.Path = req.Path

	log.Info("writing dump", "path", req.Path, "mode", req.Mode.String())
	ok, werr := w.plat.WriteDump(h, req.PID, f, req.Mode.DumpType())
	cerr := f.Close()

	if !ok {
		res.NativeErrorCode, res.Err = nativeFailure(werr)
		log.Warn("dump failed", "path", req.Path, "error", res.Err)
		return res
	}
	if cerr != nil {
		res.Err = fmt.Errorf("closing dump file: %w", cerr)
		return res
	}

	if fi, err := os.Stat(req.Path); err == nil {
		res.Size = fi.Size()
	}
	res.Succeeded = true
	log.Info("dump written", "path", req.Path, "bytes", res.Size)
	return res
}

// nativeFailure turns the writer's failure into a NativeCallFailure with the
// native code, if one is known.
func nativeFailure(err error) (*uint32, error) {
	if code, ok := core.NativeErrorCode(err); ok {
		return &code, err
	}
	if core.IsCategory(err, core.ErrCatUnsupported) || core.IsNotFound(err) {
		return nil, err
	}
	code := core.OSErrorCode(err)
	domErr := core.ErrNativeCall("dump writer", code)
	if err != nil {
		domErr = domErr.WithCause(err)
	}
	return code, domErr
}

// Ext is the dump file extension of the running platform.
func Ext() string {
	if runtime.GOOS == "windows" {
		return "dmp"
	}
	return "zdump"
}

// DefaultPath returns dir/dump_<pid>_<YYYYMMDD_HHMMSS>.<ext>.
func DefaultPath(dir string, pid int32, at time.Time) string {
	name := fmt.Sprintf("dump_%d_%s.%s", pid, at.Format("20060102_150405"), Ext())
	return filepath.Join(dir, name)
}

// IsNotFound reports whether r failed because the process was not running.
func (r Result) IsNotFound() bool {
	return core.IsNotFound(r.Err)
}
