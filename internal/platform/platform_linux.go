//go:build linux

package platform

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/Yousha/dotlyzer/internal/core"
)

// userHZ is the clock tick rate /proc reports CPU times in. procfs assumes
// the same value.
const userHZ = 100

// Scheduling policies from sched.h.
const (
	schedFIFO = 1
	schedRR   = 2
)

type linuxPlatform struct {
	fs    procfs.FS
	fsErr error
	opts  options
}

// New returns the /proc-backed implementation.
func New(opts ...Option) Platform {
	fs, err := procfs.NewDefaultFS()
	return &linuxPlatform{fs: fs, fsErr: err, opts: buildOptions(opts)}
}

func (l *linuxPlatform) proc(pid int32) (procfs.Proc, error) {
	if l.fsErr != nil {
		return procfs.Proc{}, fmt.Errorf("mounting procfs: %w", l.fsErr)
	}
	p, err := l.fs.Proc(int(pid))
	if err != nil {
		return procfs.Proc{}, core.Classify(err, pid, "process")
	}
	return p, nil
}

// OpenProcess opens the /proc/<pid> directory. The descriptor stays bound to
// the original process; reads through it fail once that process exits.
func (l *linuxPlatform) OpenProcess(pid int32) (Handle, error) {
	if pid <= 0 {
		return 0, core.ErrNotFound(pid)
	}
	fd, err := unix.Open(fmt.Sprintf("/proc/%d", pid), unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, core.Classify(err, pid, "process handle")
	}
	return Handle(fd + 1), nil
}

// CloseHandle releases a handle from OpenProcess.
func (l *linuxPlatform) CloseHandle(h Handle) error {
	if h == 0 {
		return nil
	}
	return unix.Close(fdOf(h))
}

// Handles carry fd+1 so that descriptor 0 never looks like an empty handle.
func fdOf(h Handle) int {
	return int(h) - 1
}

func (l *linuxPlatform) SessionID(_ Handle, pid int32) (uint32, error) {
	p, err := l.proc(pid)
	if err != nil {
		return 0, err
	}
	st, err := p.Stat()
	if err != nil {
		return 0, core.Classify(err, pid, "session id")
	}
	return uint32(st.Session), nil
}

func (l *linuxPlatform) PriorityClass(_ Handle, pid int32) (string, error) {
	p, err := l.proc(pid)
	if err != nil {
		return "", err
	}
	st, err := p.Stat()
	if err != nil {
		return "", core.Classify(err, pid, "priority class")
	}
	return priorityFromNice(st.Policy, st.Nice), nil
}

// priorityFromNice buckets a nice value into the priority class names.
func priorityFromNice(policy uint, nice int) string {
	if policy == schedFIFO || policy == schedRR {
		return PriorityRealTime
	}
	switch {
	case nice >= 15:
		return PriorityIdle
	case nice > 0:
		return PriorityBelowNormal
	case nice == 0:
		return PriorityNormal
	case nice > -10:
		return PriorityAboveNormal
	default:
		return PriorityHigh
	}
}

func (l *linuxPlatform) IsElevated() (bool, error) {
	return os.Geteuid() == 0, nil
}

func (l *linuxPlatform) Is64BitOS() bool {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return false
	}
	machine := unix.ByteSliceToString(u.Machine[:])
	return strings.Contains(machine, "64") || machine == "s390x"
}

// IsWow64Process reads the ELF class of the target's executable. A 32-bit
// image on a 64-bit kernel runs under the compat syscall layer.
func (l *linuxPlatform) IsWow64Process(h Handle) (bool, error) {
	if h == 0 {
		return false, core.ErrInternal("invalid handle")
	}
	fd, err := unix.Openat(fdOf(h), "exe", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return false, fmt.Errorf("opening executable: %w", err)
	}
	f := os.NewFile(uintptr(fd), "exe")
	defer f.Close()

	return isELF32(f)
}

func isELF32(f *os.File) (bool, error) {
	ef, err := elf.NewFile(f)
	if err != nil {
		return false, fmt.Errorf("parsing executable header: %w", err)
	}
	defer ef.Close()
	return ef.Class == elf.ELFCLASS32, nil
}

// Modules groups file-backed mappings by path, in order of first mapping.
// Size is the sum of all mappings of that file.
func (l *linuxPlatform) Modules(pid int32) ([]ModuleRecord, error) {
	p, err := l.proc(pid)
	if err != nil {
		return nil, err
	}
	maps, err := p.ProcMaps()
	if err != nil {
		return nil, core.Classify(err, pid, "module list")
	}

	index := make(map[string]int)
	var modules []ModuleRecord
	for _, m := range maps {
		path := strings.TrimSuffix(m.Pathname, " (deleted)")
		if !strings.HasPrefix(path, "/") {
			continue
		}
		size := uint64(m.EndAddr - m.StartAddr)
		if i, ok := index[path]; ok {
			modules[i].Size += size
			continue
		}
		index[path] = len(modules)
		modules = append(modules, ModuleRecord{
			Name: filepath.Base(path),
			Path: path,
			Size: size,
		})
	}
	return modules, nil
}

func (l *linuxPlatform) Threads(pid int32) ([]ThreadRecord, error) {
	if l.fsErr != nil {
		return nil, fmt.Errorf("mounting procfs: %w", l.fsErr)
	}
	threads, err := l.fs.AllThreads(int(pid))
	if err != nil {
		return nil, core.Classify(err, pid, "thread list")
	}

	var bootTime time.Time
	if stat, err := l.fs.Stat(); err == nil {
		bootTime = time.Unix(int64(stat.BootTime), 0)
	}

	records := make([]ThreadRecord, 0, len(threads))
	for _, t := range threads {
		st, err := t.Stat()
		if err != nil {
			records = append(records, ThreadRecord{TID: int32(t.PID), Err: err})
			continue
		}
		rec := ThreadRecord{
			TID:          int32(t.PID),
			StateCode:    st.State,
			BasePriority: int32(st.Priority),
			UserTime:     ticks(uint64(st.UTime)),
			KernelTime:   ticks(uint64(st.STime)),
		}
		if !bootTime.IsZero() {
			rec.StartTime = bootTime.Add(ticks(st.Starttime))
		}
		records = append(records, rec)
	}
	return records, nil
}

func ticks(n uint64) time.Duration {
	return time.Duration(n) * time.Second / userHZ
}

func (l *linuxPlatform) MemoryCounters(_ Handle, pid int32) (MemoryCounters, error) {
	p, err := l.proc(pid)
	if err != nil {
		return MemoryCounters{}, err
	}
	status, err := p.NewStatus()
	if err != nil {
		return MemoryCounters{}, core.Classify(err, pid, "memory counters")
	}
	return MemoryCounters{
		PeakWorkingSet: core.Ok(status.VmHWM),
		Private:        core.Ok(status.RssAnon),
		Paged:          core.Ok(status.VmSwap),
		PeakPaged:      core.Fail[uint64](core.ErrUnsupported("peak swap usage")),
	}, nil
}
