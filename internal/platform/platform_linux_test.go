//go:build linux

package platform

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
)

// nonexistentPID is above the kernel's pid_max ceiling.
const nonexistentPID = 1 << 30

func TestPriorityFromNice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		policy uint
		nice   int
		want   string
	}{
		{0, 0, PriorityNormal},
		{0, 5, PriorityBelowNormal},
		{0, 19, PriorityIdle},
		{0, -5, PriorityAboveNormal},
		{0, -20, PriorityHigh},
		{schedFIFO, 0, PriorityRealTime},
		{schedRR, 10, PriorityRealTime},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, priorityFromNice(tt.policy, tt.nice), "policy=%d nice=%d", tt.policy, tt.nice)
	}
}

func TestOpenProcess_Missing(t *testing.T) {
	t.Parallel()
	p := New()

	_, err := p.OpenProcess(nonexistentPID)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err), "got %v", err)

	_, err = p.OpenProcess(0)
	assert.True(t, core.IsNotFound(err))
}

func TestOpenProcess_SelfAndWow64(t *testing.T) {
	t.Parallel()
	p := New()
	pid := int32(os.Getpid())

	h, err := p.OpenProcess(pid)
	require.NoError(t, err)
	defer p.CloseHandle(h)

	wow, err := p.IsWow64Process(h)
	require.NoError(t, err)
	if strconv.IntSize == 64 {
		assert.False(t, wow)
	}
}

func TestModules_Self(t *testing.T) {
	t.Parallel()
	mods, err := New().Modules(int32(os.Getpid()))
	require.NoError(t, err)
	require.NotEmpty(t, mods)

	exe, err := os.Executable()
	require.NoError(t, err)
	exe, _ = filepath.EvalSymlinks(exe)

	seen := map[string]bool{}
	for _, m := range mods {
		assert.False(t, seen[m.Path], "module %s listed twice", m.Path)
		seen[m.Path] = true
		assert.NotZero(t, m.Size)
		assert.Equal(t, filepath.Base(m.Path), m.Name)
	}
	assert.True(t, seen[exe], "expected own executable %s among modules", exe)
}

func TestThreads_Self(t *testing.T) {
	t.Parallel()
	pid := int32(os.Getpid())
	threads, err := New().Threads(pid)
	require.NoError(t, err)
	require.NotEmpty(t, threads)

	var main *ThreadRecord
	for i := range threads {
		if threads[i].TID == pid {
			main = &threads[i]
		}
	}
	require.NotNil(t, main, "main thread shares the process id")
	assert.NoError(t, main.Err)
	assert.NotEmpty(t, main.StateCode)
	assert.False(t, main.StartTime.IsZero())
}

func TestThreads_Missing(t *testing.T) {
	t.Parallel()
	_, err := New().Threads(nonexistentPID)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestMemoryCounters_Self(t *testing.T) {
	t.Parallel()
	c, err := New().MemoryCounters(0, int32(os.Getpid()))
	require.NoError(t, err)
	assert.True(t, c.PeakWorkingSet.Available())
	assert.NotZero(t, c.PeakWorkingSet.Value)
	assert.True(t, c.Private.Available())
	assert.False(t, c.PeakPaged.Available())
	assert.Equal(t, "unavailable: not supported on this platform", c.PeakPaged.Reason())
}

func TestPlanRegions(t *testing.T) {
	t.Parallel()
	rw := &procfs.ProcMapPermissions{Read: true, Write: true, Private: true}
	none := &procfs.ProcMapPermissions{Private: true}
	maps := []*procfs.ProcMap{
		{StartAddr: 0x1000, EndAddr: 0x2000, Perms: rw, Pathname: "/usr/lib/libc.so.6"},
		{StartAddr: 0x3000, EndAddr: 0x5000, Perms: rw, Pathname: "[stack]"},
		{StartAddr: 0x6000, EndAddr: 0x7000, Perms: none, Pathname: ""},
		{StartAddr: 0x8000, EndAddr: 0x9000, Perms: rw, Pathname: "[vvar]"},
		{StartAddr: 0x10000, EndAddr: 0x90000, Perms: rw, Pathname: "[heap]"},
		{StartAddr: 0xa0000, EndAddr: 0xb0000, Perms: rw, Pathname: ""},
		{StartAddr: 0xc0000, EndAddr: 0xd0000, Perms: rw, Pathname: ""},
	}

	normal := planRegions(maps, DumpNormal, 1<<20, nil)
	require.Len(t, normal, 1)
	assert.Equal(t, "[stack]", normal[0].Path)
	assert.Equal(t, "rw-p", normal[0].Perms)

	full := planRegions(maps, DumpFullMemory, 1<<20, nil)
	assert.Len(t, full, 5)

	// The heap exceeds a 64 KiB cap.
	capped := planRegions(maps, DumpFullMemory, 64*1024, nil)
	assert.Len(t, capped, 4)
}

func TestPlanRegions_ThreadStacks(t *testing.T) {
	t.Parallel()
	rw := &procfs.ProcMapPermissions{Read: true, Write: true, Private: true}
	ro := &procfs.ProcMapPermissions{Read: true, Private: true}
	maps := []*procfs.ProcMap{
		{StartAddr: 0x3000, EndAddr: 0x5000, Perms: rw, Pathname: "[stack]"},
		{StartAddr: 0xa0000, EndAddr: 0xb0000, Perms: rw, Pathname: ""},
		{StartAddr: 0xc0000, EndAddr: 0xd0000, Perms: rw, Pathname: ""},
		{StartAddr: 0xe0000, EndAddr: 0xf0000, Perms: ro, Pathname: ""},
		{StartAddr: 0x100000, EndAddr: 0x110000, Perms: rw, Pathname: "/tmp/data.bin"},
	}
	sps := []uint64{0x4800, 0xafff0, 0xe0100, 0x100010}

	normal := planRegions(maps, DumpNormal, 1<<20, sps)
	require.Len(t, normal, 2)
	assert.Equal(t, uint64(0x3000), normal[0].Start)
	assert.Equal(t, uint64(0xa0000), normal[1].Start)
}

func TestParseSyscallSP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want uint64
		ok   bool
	}{
		{"202 0xc000080148 0x80 0x0 0x0 0x0 0x0 0x7ffc1a2b3c40 0x46d2a3\n", 0x7ffc1a2b3c40, true},
		{"-1 0x7f00aa001230 0x7f00bb0045d6\n", 0x7f00aa001230, true},
		{"running\n", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		sp, ok := parseSyscallSP(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, sp, tt.line)
	}
}

func TestWriteDump_SelfNormal(t *testing.T) {
	t.Parallel()
	p := New()
	pid := int32(os.Getpid())

	path := filepath.Join(t.TempDir(), "self.zdump")
	f, err := os.Create(path)
	require.NoError(t, err)

	ok, err := p.WriteDump(0, pid, f, DumpNormal)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.True(t, ok)

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()
	dec, err := zstd.NewReader(in)
	require.NoError(t, err)
	defer dec.Close()

	r := bufio.NewReader(dec)
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)

	var header DumpHeader
	require.NoError(t, json.Unmarshal(line, &header))
	assert.Equal(t, DumpMagic, header.Magic)
	assert.Equal(t, pid, header.PID)
	assert.NotEmpty(t, header.Threads)

	var captured int
	for {
		var rec regionRecord
		require.NoError(t, binary.Read(r, binary.LittleEndian, &rec))
		if rec.Length == 0 {
			break
		}
		_, err := r.Discard(int(rec.Length))
		require.NoError(t, err)
		captured++
	}

	line, err = r.ReadBytes('\n')
	require.NoError(t, err)
	var trailer DumpTrailer
	require.NoError(t, json.Unmarshal(line, &trailer))
	assert.Equal(t, captured, trailer.Captured)
}
