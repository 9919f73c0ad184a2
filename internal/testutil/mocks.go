package testutil

import (
	"os"
	"sync"
	"time"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// MockCall records a call to the mock.
type MockCall struct {
	Method    string
	PID       int32
	Timestamp time.Time
}

// MockPlatform implements platform.Platform with canned answers. Exported
// fields may be set directly before use.
type MockPlatform struct {
	Is64Bit     bool
	Elevated    bool
	ElevatedErr error
	Session     uint32
	SessionErr  error
	Priority    string
	PriorityErr error
	Wow64       bool
	Wow64Err    error
	OpenErr     error

	ModuleLists map[int32][]platform.ModuleRecord
	ModuleErrs  map[int32]error
	ThreadLists map[int32][]platform.ThreadRecord
	ThreadErr   error

	Counters    platform.MemoryCounters
	CountersErr error

	// DumpFunc replaces the default dump writer, which writes a small
	// marker and reports success.
	DumpFunc func(pid int32, f *os.File, typ platform.DumpType) (bool, error)

	mu         sync.Mutex
	calls      []MockCall
	nextHandle platform.Handle
	open       map[platform.Handle]int32
}

// NewMockPlatform returns a 64-bit, non-elevated mock with readable
// counters.
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		Is64Bit:     true,
		Priority:    platform.PriorityNormal,
		Session:     1,
		ModuleLists: make(map[int32][]platform.ModuleRecord),
		ModuleErrs:  make(map[int32]error),
		ThreadLists: make(map[int32][]platform.ThreadRecord),
		Counters: platform.MemoryCounters{
			PeakWorkingSet: core.Ok(uint64(64 << 20)),
			Private:        core.Ok(uint64(32 << 20)),
			Paged:          core.Ok(uint64(40 << 20)),
			PeakPaged:      core.Ok(uint64(48 << 20)),
		},
		nextHandle: 100,
		open:       make(map[platform.Handle]int32),
	}
}

// WithModules sets the module list of pid.
func (m *MockPlatform) WithModules(pid int32, mods ...platform.ModuleRecord) *MockPlatform {
	m.ModuleLists[pid] = mods
	return m
}

// WithModuleError makes module enumeration of pid fail.
func (m *MockPlatform) WithModuleError(pid int32, err error) *MockPlatform {
	m.ModuleErrs[pid] = err
	return m
}

// WithThreads sets the thread list of pid.
func (m *MockPlatform) WithThreads(pid int32, threads ...platform.ThreadRecord) *MockPlatform {
	m.ThreadLists[pid] = threads
	return m
}

func (m *MockPlatform) OpenProcess(pid int32) (platform.Handle, error) {
	m.recordCall("OpenProcess", pid)
	if m.OpenErr != nil {
		return 0, m.OpenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	m.open[m.nextHandle] = pid
	return m.nextHandle, nil
}

func (m *MockPlatform) CloseHandle(h platform.Handle) error {
	m.recordCall("CloseHandle", 0)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, h)
	return nil
}

func (m *MockPlatform) SessionID(_ platform.Handle, pid int32) (uint32, error) {
	m.recordCall("SessionID", pid)
	return m.Session, m.SessionErr
}

func (m *MockPlatform) PriorityClass(_ platform.Handle, pid int32) (string, error) {
	m.recordCall("PriorityClass", pid)
	return m.Priority, m.PriorityErr
}

func (m *MockPlatform) IsElevated() (bool, error) {
	m.recordCall("IsElevated", 0)
	return m.Elevated, m.ElevatedErr
}

func (m *MockPlatform) Is64BitOS() bool {
	m.recordCall("Is64BitOS", 0)
	return m.Is64Bit
}

func (m *MockPlatform) IsWow64Process(platform.Handle) (bool, error) {
	m.recordCall("IsWow64Process", 0)
	return m.Wow64, m.Wow64Err
}

func (m *MockPlatform) Modules(pid int32) ([]platform.ModuleRecord, error) {
	m.recordCall("Modules", pid)
	if err := m.ModuleErrs[pid]; err != nil {
		return nil, err
	}
	return m.ModuleLists[pid], nil
}

func (m *MockPlatform) Threads(pid int32) ([]platform.ThreadRecord, error) {
	m.recordCall("Threads", pid)
	if m.ThreadErr != nil {
		return nil, m.ThreadErr
	}
	return m.ThreadLists[pid], nil
}

func (m *MockPlatform) MemoryCounters(_ platform.Handle, pid int32) (platform.MemoryCounters, error) {
	m.recordCall("MemoryCounters", pid)
	return m.Counters, m.CountersErr
}

func (m *MockPlatform) WriteDump(_ platform.Handle, pid int32, f *os.File, typ platform.DumpType) (bool, error) {
	m.recordCall("WriteDump", pid)
	if m.DumpFunc != nil {
		return m.DumpFunc(pid, f, typ)
	}
	_, err := f.WriteString("MDMP")
	return err == nil, err
}

// OpenHandles returns the number of handles not yet closed.
func (m *MockPlatform) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// CallCount returns number of calls to a method.
func (m *MockPlatform) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Calls returns recorded calls.
func (m *MockPlatform) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

func (m *MockPlatform) recordCall(method string, pid int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		PID:       pid,
		Timestamp: time.Now(),
	})
}

var _ platform.Platform = (*MockPlatform)(nil)
