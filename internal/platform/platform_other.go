//go:build !linux && !windows

package platform

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Yousha/dotlyzer/internal/core"
)

// otherPlatform answers what gopsutil can and reports native features as
// unsupported.
type otherPlatform struct {
	opts options
}

// New returns the fallback implementation.
func New(opts ...Option) Platform {
	return &otherPlatform{opts: buildOptions(opts)}
}

func (o *otherPlatform) OpenProcess(pid int32) (Handle, error) {
	if pid <= 0 {
		return 0, core.ErrNotFound(pid)
	}
	return Handle(pid), nil
}

func (o *otherPlatform) CloseHandle(Handle) error { return nil }

func (o *otherPlatform) SessionID(Handle, int32) (uint32, error) {
	return 0, core.ErrUnsupported("session id")
}

func (o *otherPlatform) PriorityClass(Handle, int32) (string, error) {
	return "", core.ErrUnsupported("priority class")
}

func (o *otherPlatform) IsElevated() (bool, error) {
	return os.Geteuid() == 0, nil
}

func (o *otherPlatform) Is64BitOS() bool {
	arch, err := host.KernelArch()
	if err != nil {
		return false
	}
	return strings.Contains(arch, "64")
}

func (o *otherPlatform) IsWow64Process(Handle) (bool, error) {
	return false, core.ErrUnsupported("compatibility subsystem query")
}

func (o *otherPlatform) Modules(int32) ([]ModuleRecord, error) {
	return nil, core.ErrUnsupported("module enumeration")
}

func (o *otherPlatform) Threads(int32) ([]ThreadRecord, error) {
	return nil, core.ErrUnsupported("thread enumeration")
}

func (o *otherPlatform) MemoryCounters(Handle, int32) (MemoryCounters, error) {
	return MemoryCounters{}, core.ErrUnsupported("extended memory counters")
}

func (o *otherPlatform) WriteDump(Handle, int32, *os.File, DumpType) (bool, error) {
	return false, core.ErrUnsupported("process dump")
}
