// Package platform is the narrow boundary between the inspection engine and
// the operating system's native process APIs.
//
// The engine only depends on the interfaces declared here:
//
//   - Host opens and releases native process handles and answers identity
//     questions (session, priority class, caller elevation, OS bitness).
//
//   - Introspector enumerates modules and threads and reads the memory
//     counters gopsutil does not expose portably.
//
//   - Diagnostics wraps the two foreign primitives: the dump writer and the
//     32-bit compatibility subsystem query.
//
// New returns the implementation for the running OS. Windows is backed by
// kernel32, psapi, ntdll and dbghelp; Linux by /proc; other systems report
// native features as unsupported.
package platform

import (
	"os"
	"time"

	"github.com/Yousha/dotlyzer/internal/core"
)

// Handle is an opaque native process reference. Zero is never valid.
type Handle uintptr

// DumpType is the flag passed to the native dump writer.
type DumpType uint32

const (
	// DumpNormal captures thread and module state with stack memory only.
	DumpNormal DumpType = 0
	// DumpFullMemory captures all readable process memory.
	DumpFullMemory DumpType = 2
)

// ModuleRecord is one loaded module as reported by the OS.
type ModuleRecord struct {
	Name string
	Path string
	Size uint64
}

// ThreadRecord is one thread as reported by the OS. Err is set when the
// thread's properties could not be read (usually because it exited while
// being enumerated); the other fields are then meaningless.
type ThreadRecord struct {
	TID          int32
	StateCode    string
	BasePriority int32
	UserTime     time.Duration
	KernelTime   time.Duration
	StartTime    time.Time
	Err          error
}

// MemoryCounters are the memory figures beyond working set and virtual size.
type MemoryCounters struct {
	PeakWorkingSet core.Result[uint64]
	Private        core.Result[uint64]
	Paged          core.Result[uint64]
	PeakPaged      core.Result[uint64]
}

// Host opens native handles and answers identity questions.
type Host interface {
	OpenProcess(pid int32) (Handle, error)
	CloseHandle(h Handle) error
	SessionID(h Handle, pid int32) (uint32, error)
	PriorityClass(h Handle, pid int32) (string, error)
	IsElevated() (bool, error)
	Is64BitOS() bool
}

// Introspector enumerates per-process items.
type Introspector interface {
	Modules(pid int32) ([]ModuleRecord, error)
	Threads(pid int32) ([]ThreadRecord, error)
	MemoryCounters(h Handle, pid int32) (MemoryCounters, error)
}

// Diagnostics is the foreign-primitive boundary.
type Diagnostics interface {
	// WriteDump serializes the target process into f. The boolean is the
	// native success status; err carries the native failure when false.
	WriteDump(h Handle, pid int32, f *os.File, typ DumpType) (bool, error)
	// IsWow64Process reports whether the target runs under the 32-bit
	// compatibility subsystem of a 64-bit OS.
	IsWow64Process(h Handle) (bool, error)
}

// Platform bundles every native capability.
type Platform interface {
	Host
	Introspector
	Diagnostics
}

// Priority class names, shared by every implementation.
const (
	PriorityIdle        = "Idle"
	PriorityBelowNormal = "BelowNormal"
	PriorityNormal      = "Normal"
	PriorityAboveNormal = "AboveNormal"
	PriorityHigh        = "High"
	PriorityRealTime    = "RealTime"
)

// Option tunes a platform implementation.
type Option func(*options)

type options struct {
	maxRegionBytes uint64
}

// WithMaxRegionBytes caps the size of a single memory region captured by
// dump writers that copy memory themselves.
func WithMaxRegionBytes(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRegionBytes = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxRegionBytes: 256 * 1024 * 1024}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
