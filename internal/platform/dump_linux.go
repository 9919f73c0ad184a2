//go:build linux

package platform

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/Yousha/dotlyzer/internal/core"
)

// DumpMagic opens every Linux dump stream.
const DumpMagic = "DLZDUMP1"

// readChunk bounds the buffer used per process_vm_readv call.
const readChunk = 1 << 20

// DumpHeader is the JSON line at the start of a Linux dump.
type DumpHeader struct {
	Magic      string         `json:"magic"`
	PID        int32          `json:"pid"`
	Name       string         `json:"name"`
	Type       DumpType       `json:"type"`
	CapturedAt time.Time      `json:"captured_at"`
	Threads    []DumpThread   `json:"threads"`
	Regions    []DumpRegion   `json:"regions"`
	Status     map[string]any `json:"status,omitempty"`
}

// DumpThread is the per-thread state recorded in the header.
type DumpThread struct {
	TID        int32  `json:"tid"`
	State      string `json:"state"`
	UserTicks  uint   `json:"utime"`
	KernelTick uint   `json:"stime"`
}

// DumpRegion is one planned memory region.
type DumpRegion struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Perms string `json:"perms"`
	Path  string `json:"path,omitempty"`
}

// DumpTrailer is the JSON line after the last region record.
type DumpTrailer struct {
	Captured     int      `json:"captured"`
	Skipped      []uint64 `json:"skipped,omitempty"`
	BytesWritten uint64   `json:"bytes_written"`
}

// regionRecord precedes the raw bytes of each captured region. A zero
// record terminates the region stream.
type regionRecord struct {
	Start  uint64
	Length uint64
}

// WriteDump writes a zstd stream: header JSON line, region records, a zero
// record, then the trailer JSON line. Regions that cannot be read are listed
// in the trailer. The dump fails only when nothing planned could be read.
func (l *linuxPlatform) WriteDump(_ Handle, pid int32, f *os.File, typ DumpType) (bool, error) {
	p, err := l.proc(pid)
	if err != nil {
		return false, err
	}
	maps, err := p.ProcMaps()
	if err != nil {
		return false, core.Classify(err, pid, "memory map")
	}

	header := DumpHeader{
		Magic:      DumpMagic,
		PID:        pid,
		Type:       typ,
		CapturedAt: time.Now().UTC(),
	}
	if status, err := p.NewStatus(); err == nil {
		header.Name = status.Name
		header.Status = map[string]any{
			"vm_rss":  status.VmRSS,
			"vm_size": status.VmSize,
			"vm_hwm":  status.VmHWM,
		}
	}
	var stackPtrs []uint64
	if threads, err := l.fs.AllThreads(int(pid)); err == nil {
		for _, t := range threads {
			if sp, ok := threadStackPointer(pid, int32(t.PID)); ok {
				stackPtrs = append(stackPtrs, sp)
			}
			st, err := t.Stat()
			if err != nil {
				continue
			}
			header.Threads = append(header.Threads, DumpThread{
				TID:        int32(t.PID),
				State:      st.State,
				UserTicks:  st.UTime,
				KernelTick: st.STime,
			})
		}
	}
	header.Regions = planRegions(maps, typ, l.opts.maxRegionBytes, stackPtrs)

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return false, fmt.Errorf("creating zstd encoder: %w", err)
	}
	trailer, werr := writeDumpBody(enc, pid, header)
	if cerr := enc.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("flushing dump: %w", cerr)
	}
	if werr != nil {
		return false, werr
	}
	if len(header.Regions) > 0 && trailer.Captured == 0 {
		return false, fmt.Errorf("no memory region of process %d was readable", pid)
	}
	return true, nil
}

func writeDumpBody(w io.Writer, pid int32, header DumpHeader) (DumpTrailer, error) {
	var trailer DumpTrailer
	if err := writeJSONLine(w, header); err != nil {
		return trailer, fmt.Errorf("writing dump header: %w", err)
	}

	buf := make([]byte, readChunk)
	var lastErr error
	for _, r := range header.Regions {
		data, err := readRegion(int(pid), r, buf)
		if err != nil {
			trailer.Skipped = append(trailer.Skipped, r.Start)
			lastErr = err
			continue
		}
		rec := regionRecord{Start: r.Start, Length: uint64(len(data))}
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return trailer, fmt.Errorf("writing region record: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return trailer, fmt.Errorf("writing region data: %w", err)
		}
		trailer.Captured++
		trailer.BytesWritten += uint64(len(data))
	}
	if err := binary.Write(w, binary.LittleEndian, regionRecord{}); err != nil {
		return trailer, fmt.Errorf("writing region terminator: %w", err)
	}
	if err := writeJSONLine(w, trailer); err != nil {
		return trailer, fmt.Errorf("writing dump trailer: %w", err)
	}
	if trailer.Captured == 0 && lastErr != nil {
		return trailer, lastErr
	}
	return trailer, nil
}

func writeJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// threadStackPointer reads the user stack pointer of a thread from
// /proc/<pid>/task/<tid>/syscall. The line is "running" for a thread on CPU
// and otherwise ends with "<sp> <pc>".
func threadStackPointer(pid, tid int32) (uint64, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/syscall", pid, tid))
	if err != nil {
		return 0, false
	}
	return parseSyscallSP(string(data))
}

func parseSyscallSP(line string) (uint64, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, false
	}
	sp, err := strconv.ParseUint(strings.TrimPrefix(fields[len(fields)-2], "0x"), 16, 64)
	if err != nil || sp == 0 {
		return 0, false
	}
	return sp, true
}

// planRegions selects the mappings to copy. Normal dumps take the [stack]
// mappings plus any anonymous writable mapping holding one of stackPtrs,
// which is where secondary thread stacks live. Full dumps take every
// readable mapping up to maxRegion bytes.
func planRegions(maps []*procfs.ProcMap, typ DumpType, maxRegion uint64, stackPtrs []uint64) []DumpRegion {
	var regions []DumpRegion
	for _, m := range maps {
		if m.Perms == nil || !m.Perms.Read {
			continue
		}
		size := uint64(m.EndAddr - m.StartAddr)
		if size == 0 || size > maxRegion {
			continue
		}
		// The vsyscall page and vvar area are not readable through process_vm_readv.
		if m.Pathname == "[vvar]" || m.Pathname == "[vsyscall]" || m.Pathname == "[vvar_vclock]" {
			continue
		}
		if typ == DumpNormal && !isStackMapping(m, stackPtrs) {
			continue
		}
		regions = append(regions, DumpRegion{
			Start: uint64(m.StartAddr),
			End:   uint64(m.EndAddr),
			Perms: permString(m.Perms),
			Path:  m.Pathname,
		})
	}
	return regions
}

func isStackMapping(m *procfs.ProcMap, stackPtrs []uint64) bool {
	if strings.HasPrefix(m.Pathname, "[stack") {
		return true
	}
	if m.Pathname != "" || !m.Perms.Write {
		return false
	}
	for _, sp := range stackPtrs {
		if sp >= uint64(m.StartAddr) && sp < uint64(m.EndAddr) {
			return true
		}
	}
	return false
}

func permString(p *procfs.ProcMapPermissions) string {
	b := []byte("----")
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Execute {
		b[2] = 'x'
	}
	if p.Shared {
		b[3] = 's'
	} else if p.Private {
		b[3] = 'p'
	}
	return string(b)
}

// readRegion copies a whole region out of the target in readChunk pieces.
func readRegion(pid int, r DumpRegion, buf []byte) ([]byte, error) {
	out := make([]byte, 0, r.End-r.Start)
	for addr := r.Start; addr < r.End; {
		n := r.End - addr
		if n > uint64(len(buf)) {
			n = uint64(len(buf))
		}
		local := []unix.Iovec{{Base: &buf[0]}}
		local[0].SetLen(int(n))
		remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: int(n)}}
		read, err := unix.ProcessVMReadv(pid, local, remote, 0)
		if err != nil {
			return nil, fmt.Errorf("reading %#x: %w", addr, err)
		}
		if read == 0 {
			return nil, errors.New("short read")
		}
		out = append(out, buf[:read]...)
		addr += uint64(read)
	}
	return out, nil
}
