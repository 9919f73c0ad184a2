//go:build windows

package platform

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Yousha/dotlyzer/internal/core"
)

var (
	modDbghelp  = windows.NewLazySystemDLL("dbghelp.dll")
	modPsapi    = windows.NewLazySystemDLL("psapi.dll")
	modKernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procMiniDumpWriteDump    = modDbghelp.NewProc("MiniDumpWriteDump")
	procGetProcessMemoryInfo = modPsapi.NewProc("GetProcessMemoryInfo")
	procGetPriorityClass     = modKernel32.NewProc("GetPriorityClass")
)

const stillActive = 259

// Priority class values returned by GetPriorityClass.
var priorityClasses = map[uintptr]string{
	0x00000040: PriorityIdle,
	0x00004000: PriorityBelowNormal,
	0x00000020: PriorityNormal,
	0x00008000: PriorityAboveNormal,
	0x00000080: PriorityHigh,
	0x00000100: PriorityRealTime,
}

// processMemoryCountersEx mirrors PROCESS_MEMORY_COUNTERS_EX.
type processMemoryCountersEx struct {
	CB                         uint32
	PageFaultCount             uint32
	PeakWorkingSetSize         uintptr
	WorkingSetSize             uintptr
	QuotaPeakPagedPoolUsage    uintptr
	QuotaPagedPoolUsage        uintptr
	QuotaPeakNonPagedPoolUsage uintptr
	QuotaNonPagedPoolUsage     uintptr
	PagefileUsage              uintptr
	PeakPagefileUsage          uintptr
	PrivateUsage               uintptr
}

type clientID struct {
	UniqueProcess uintptr
	UniqueThread  uintptr
}

// systemThreadInformation mirrors SYSTEM_THREAD_INFORMATION, which follows
// each SYSTEM_PROCESS_INFORMATION entry.
type systemThreadInformation struct {
	KernelTime      int64
	UserTime        int64
	CreateTime      int64
	WaitTime        uint32
	StartAddress    uintptr
	ClientID        clientID
	Priority        int32
	BasePriority    int32
	ContextSwitches uint32
	ThreadState     uint32
	WaitReason      uint32
}

// Offset between the FILETIME epoch (1601) and the Unix epoch, in 100ns units.
const filetimeUnixOffset = 116444736000000000

type windowsPlatform struct {
	opts options
}

// New returns the Win32-backed implementation.
func New(opts ...Option) Platform {
	return &windowsPlatform{opts: buildOptions(opts)}
}

func classifyWin(err error, pid int32, what string) error {
	var errno windows.Errno
	if errors.As(err, &errno) {
		switch errno {
		case windows.ERROR_ACCESS_DENIED:
			return core.ErrAccessDenied(what).WithCause(err)
		case windows.ERROR_INVALID_PARAMETER:
			return core.ErrNotFound(pid).WithCause(err)
		}
		code := uint32(errno)
		return core.ErrNativeCall(what, &code).WithCause(err)
	}
	return core.Classify(err, pid, what)
}

// OpenProcess asks for read access first and falls back to limited query
// rights, which are enough for identity and counters.
func (w *windowsPlatform) OpenProcess(pid int32) (Handle, error) {
	if pid < 0 {
		return 0, core.ErrNotFound(pid)
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, uint32(pid))
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		h, err = windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	}
	if err != nil {
		return 0, classifyWin(err, pid, "process handle")
	}

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err == nil && code != stillActive {
		_ = windows.CloseHandle(h)
		return 0, core.ErrNotFound(pid)
	}
	return Handle(h), nil
}

func (w *windowsPlatform) CloseHandle(h Handle) error {
	if h == 0 {
		return nil
	}
	return windows.CloseHandle(windows.Handle(h))
}

func (w *windowsPlatform) SessionID(_ Handle, pid int32) (uint32, error) {
	var sid uint32
	if err := windows.ProcessIdToSessionId(uint32(pid), &sid); err != nil {
		return 0, classifyWin(err, pid, "session id")
	}
	return sid, nil
}

func (w *windowsPlatform) PriorityClass(h Handle, pid int32) (string, error) {
	r1, _, e := procGetPriorityClass.Call(uintptr(h))
	if r1 == 0 {
		return "", classifyWin(e, pid, "priority class")
	}
	if name, ok := priorityClasses[r1]; ok {
		return name, nil
	}
	return fmt.Sprintf("Unknown(%#x)", r1), nil
}

func (w *windowsPlatform) IsElevated() (bool, error) {
	return windows.GetCurrentProcessToken().IsElevated(), nil
}

func (w *windowsPlatform) Is64BitOS() bool {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		return true
	}
	var wow bool
	if err := windows.IsWow64Process(windows.CurrentProcess(), &wow); err != nil {
		return false
	}
	return wow
}

func (w *windowsPlatform) IsWow64Process(h Handle) (bool, error) {
	var wow bool
	if err := windows.IsWow64Process(windows.Handle(h), &wow); err != nil {
		return false, err
	}
	return wow, nil
}

func (w *windowsPlatform) Modules(pid int32) ([]ModuleRecord, error) {
	var (
		snap windows.Handle
		err  error
	)
	// ERROR_BAD_LENGTH means the loader list changed mid-snapshot.
	for attempt := 0; attempt < 3; attempt++ {
		snap, err = windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
		if !errors.Is(err, windows.ERROR_BAD_LENGTH) {
			break
		}
	}
	if err != nil {
		return nil, classifyWin(err, pid, "module list")
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Module32First(snap, &entry); err != nil {
		return nil, classifyWin(err, pid, "module list")
	}

	var modules []ModuleRecord
	for {
		modules = append(modules, ModuleRecord{
			Name: windows.UTF16ToString(entry.Module[:]),
			Path: windows.UTF16ToString(entry.ExePath[:]),
			Size: uint64(entry.ModBaseSize),
		})
		if err := windows.Module32Next(snap, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return modules, classifyWin(err, pid, "module list")
		}
	}
	return modules, nil
}

func (w *windowsPlatform) Threads(pid int32) ([]ThreadRecord, error) {
	buf, err := querySystemProcesses()
	if err != nil {
		return nil, classifyWin(err, pid, "thread list")
	}

	for off := 0; ; {
		spi := (*windows.SYSTEM_PROCESS_INFORMATION)(unsafe.Pointer(&buf[off]))
		if spi.UniqueProcessID == uintptr(pid) {
			return threadsOf(spi), nil
		}
		if spi.NextEntryOffset == 0 {
			break
		}
		off += int(spi.NextEntryOffset)
	}
	return nil, core.ErrNotFound(pid)
}

func querySystemProcesses() ([]byte, error) {
	buf := make([]byte, 512*1024)
	for {
		var needed uint32
		err := windows.NtQuerySystemInformation(windows.SystemProcessInformation,
			unsafe.Pointer(&buf[0]), uint32(len(buf)), &needed)
		if err == nil {
			return buf, nil
		}
		if !errors.Is(err, windows.STATUS_INFO_LENGTH_MISMATCH) {
			return nil, err
		}
		// The process list can grow between calls; leave headroom.
		size := len(buf) * 2
		if int(needed) > size {
			size = int(needed) + 64*1024
		}
		buf = make([]byte, size)
	}
}

func threadsOf(spi *windows.SYSTEM_PROCESS_INFORMATION) []ThreadRecord {
	base := unsafe.Add(unsafe.Pointer(spi), unsafe.Sizeof(*spi))
	stride := unsafe.Sizeof(systemThreadInformation{})

	records := make([]ThreadRecord, 0, spi.NumberOfThreads)
	for i := uintptr(0); i < uintptr(spi.NumberOfThreads); i++ {
		t := (*systemThreadInformation)(unsafe.Add(base, i*stride))
		rec := ThreadRecord{
			TID:          int32(t.ClientID.UniqueThread),
			StateCode:    strconv.FormatUint(uint64(t.ThreadState), 10),
			BasePriority: t.BasePriority,
			UserTime:     time.Duration(t.UserTime) * 100,
			KernelTime:   time.Duration(t.KernelTime) * 100,
		}
		if t.CreateTime > filetimeUnixOffset {
			rec.StartTime = time.Unix(0, (t.CreateTime-filetimeUnixOffset)*100)
		}
		records = append(records, rec)
	}
	return records
}

func (w *windowsPlatform) MemoryCounters(h Handle, pid int32) (MemoryCounters, error) {
	var c processMemoryCountersEx
	c.CB = uint32(unsafe.Sizeof(c))
	r1, _, e := procGetProcessMemoryInfo.Call(uintptr(h), uintptr(unsafe.Pointer(&c)), uintptr(c.CB))
	if r1 == 0 {
		return MemoryCounters{}, classifyWin(e, pid, "memory counters")
	}
	return MemoryCounters{
		PeakWorkingSet: core.Ok(uint64(c.PeakWorkingSetSize)),
		Private:        core.Ok(uint64(c.PrivateUsage)),
		Paged:          core.Ok(uint64(c.PagefileUsage)),
		PeakPaged:      core.Ok(uint64(c.PeakPagefileUsage)),
	}, nil
}

// WriteDump calls MiniDumpWriteDump with no exception, user stream or
// callback parameters.
func (w *windowsPlatform) WriteDump(h Handle, pid int32, f *os.File, typ DumpType) (bool, error) {
	if err := procMiniDumpWriteDump.Find(); err != nil {
		return false, core.ErrUnsupported("MiniDumpWriteDump").WithCause(err)
	}
	r1, _, e := procMiniDumpWriteDump.Call(
		uintptr(h),
		uintptr(pid),
		f.Fd(),
		uintptr(typ),
		0, 0, 0,
	)
	if r1 == 0 {
		var errno windows.Errno
		if errors.As(e, &errno) && errno != 0 {
			code := uint32(errno)
			return false, core.ErrNativeCall("MiniDumpWriteDump", &code).WithCause(e)
		}
		return false, core.ErrNativeCall("MiniDumpWriteDump", nil)
	}
	return true, nil
}
