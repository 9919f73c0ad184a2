package inspect

import (
	"context"
	"os"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// Architecture is the bit width of a target process.
type Architecture string

const (
	Arch32      Architecture = "32-bit"
	Arch64      Architecture = "64-bit"
	ArchUnknown Architecture = "Unknown"
)

// PermissionReport describes the target's session and priority, the
// caller's privilege and the target's architecture. The working directory
// and arguments belong to the invoking process and are informational.
type PermissionReport struct {
	PID           int32               `json:"pid" yaml:"pid"`
	SessionID     core.Result[uint32] `json:"session_id" yaml:"session_id"`
	PriorityClass core.Result[string] `json:"priority_class" yaml:"priority_class"`
	CallerIsAdmin core.Result[bool]   `json:"caller_is_admin" yaml:"caller_is_admin"`
	Architecture  Architecture        `json:"architecture" yaml:"architecture"`
	CallerWorkDir core.Result[string] `json:"caller_working_dir" yaml:"caller_working_dir"`
	CallerArgs    []string            `json:"caller_args" yaml:"caller_args"`

	// ArchitectureErr is why Architecture is Unknown.
	ArchitectureErr error `json:"-" yaml:"-"`
}

// InspectPermissions reads the permission view of p.
func (in *Inspector) InspectPermissions(ctx context.Context, p *Process) (PermissionReport, error) {
	if err := p.Alive(ctx); err != nil {
		return PermissionReport{}, err
	}
	report := PermissionReport{PID: p.PID}

	h, herr := p.Handle()
	report.SessionID = core.From(in.plat.SessionID(h, p.PID))
	if herr != nil {
		report.PriorityClass = core.Fail[string](herr)
	} else {
		report.PriorityClass = core.From(in.plat.PriorityClass(h, p.PID))
	}
	report.CallerIsAdmin = core.From(in.plat.IsElevated())

	report.Architecture, report.ArchitectureErr = DetectArchitecture(in.plat, in.plat, h, herr)
	if report.ArchitectureErr != nil {
		in.logger.WithPID(p.PID).Debug("architecture unknown", "error", report.ArchitectureErr)
	}

	report.CallerWorkDir = core.From(os.Getwd())
	report.CallerArgs = in.logger.Sanitizer().SanitizeArgs(in.callerArgs)
	return report, nil
}

// DetectArchitecture decides the bit width of the process behind h. On a
// 32-bit OS everything is 32-bit. On a 64-bit OS a process running under
// the 32-bit compatibility layer is 32-bit, any other is 64-bit. A missing
// handle or failed query gives Unknown.
func DetectArchitecture(host platform.Host, diag platform.Diagnostics, h platform.Handle, handleErr error) (Architecture, error) {
	if !host.Is64BitOS() {
		return Arch32, nil
	}
	if handleErr != nil {
		return ArchUnknown, handleErr
	}
	wow, err := diag.IsWow64Process(h)
	if err != nil {
		if core.GetCategory(err) == core.ErrCatUnsupported {
			return ArchUnknown, err
		}
		return ArchUnknown, core.ErrNativeCall("IsWow64Process", core.OSErrorCode(err)).WithCause(err)
	}
	if wow {
		return Arch32, nil
	}
	return Arch64, nil
}
