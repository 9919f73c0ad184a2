package dump

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
	"github.com/Yousha/dotlyzer/internal/testutil"
)

func TestParseMode(t *testing.T) {
	t.Parallel()
	tests := map[string]Mode{
		"full":    ModeFull,
		"FULL":    ModeFull,
		" Full ":  ModeFull,
		"normal":  ModeNormal,
		"":        ModeNormal,
		"mini":    ModeNormal,
		"2":       ModeNormal,
		"fullest": ModeNormal,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMode(in), "ParseMode(%q)", in)
	}
	assert.Equal(t, platform.DumpType(0), ModeNormal.DumpType())
	assert.Equal(t, platform.DumpType(2), ModeFull.DumpType())
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 15, 9, 4, 5, 0, time.Local)
	got := DefaultPath("dumps", 4321, at)
	assert.Equal(t, filepath.Join("dumps", "dump_4321_20261015_090405."+Ext()), got)
}

func TestWrite_InvalidPIDCreatesNothing(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	dir := filepath.Join(t.TempDir(), "dumps")

	for _, pid := range []int32{testutil.NonexistentPID, -5} {
		res := NewWriter(plat, nil).Write(context.Background(), Request{
			PID:  pid,
			Mode: ModeFull,
			Path: DefaultPath(dir, pid, time.Now()),
		})
		assert.False(t, res.Succeeded)
		assert.True(t, res.IsNotFound(), "pid %d: %v", pid, res.Err)
		assert.Empty(t, res.Path)
	}
	assert.Nil(t, testutil.DirEntries(t, dir), "no directory or file may be created")
	assert.Zero(t, plat.CallCount("WriteDump"))
}

func TestWrite_Success(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	var gotType platform.DumpType
	plat.DumpFunc = func(_ int32, f *os.File, typ platform.DumpType) (bool, error) {
		gotType = typ
		_, err := f.WriteString("MDMP-full")
		return true, err
	}
	dir := filepath.Join(t.TempDir(), "nested", "dumps")
	path := DefaultPath(dir, testutil.SelfPID(), time.Now())

	res := NewWriter(plat, nil).Write(context.Background(), Request{PID: testutil.SelfPID(), Mode: ModeFull, Path: path})
	require.True(t, res.Succeeded, res.Reason())
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "full", res.Mode)
	assert.Equal(t, int64(len("MDMP-full")), res.Size)
	assert.Nil(t, res.NativeErrorCode)
	assert.Equal(t, platform.DumpFullMemory, gotType)
	assert.Equal(t, 0, plat.OpenHandles())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MDMP-full", string(data))
}

func TestWrite_TruncatesExistingFile(t *testing.T) {
	t.Parallel()
	path := testutil.TempFile(t, t.TempDir(), "dump_old.dmp", strings.Repeat("x", 1024))

	res := NewWriter(testutil.NewMockPlatform(), nil).Write(context.Background(), Request{PID: testutil.SelfPID(), Path: path})
	require.True(t, res.Succeeded)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MDMP", string(data))
}

func TestWrite_NativeFailureKeepsFile(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.DumpFunc = func(_ int32, f *os.File, _ platform.DumpType) (bool, error) {
		_, _ = f.WriteString("MD")
		return false, syscall.Errno(1450)
	}
	path := filepath.Join(t.TempDir(), "partial.dmp")

	res := NewWriter(plat, nil).Write(context.Background(), Request{PID: testutil.SelfPID(), Path: path})
	assert.False(t, res.Succeeded)
	assert.Equal(t, path, res.Path)
	require.NotNil(t, res.NativeErrorCode)
	assert.Equal(t, uint32(1450), *res.NativeErrorCode)
	assert.True(t, core.IsCategory(res.Err, core.ErrCatNativeCall))
	assert.NotEmpty(t, res.Reason())

	_, err := os.Stat(path)
	assert.NoError(t, err, "the file stays on disk for inspection")
	assert.Equal(t, 0, plat.OpenHandles())
}

func TestWrite_NativeFailureWithoutCode(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.DumpFunc = func(int32, *os.File, platform.DumpType) (bool, error) {
		return false, nil
	}
	res := NewWriter(plat, nil).Write(context.Background(), Request{
		PID:  testutil.SelfPID(),
		Path: filepath.Join(t.TempDir(), "x.dmp"),
	})
	assert.False(t, res.Succeeded)
	assert.Nil(t, res.NativeErrorCode)
	assert.True(t, core.IsCategory(res.Err, core.ErrCatNativeCall))
}

func TestWrite_OpenDenied(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.OpenErr = core.ErrAccessDenied("process handle")
	dir := filepath.Join(t.TempDir(), "dumps")

	res := NewWriter(plat, nil).Write(context.Background(), Request{
		PID:  testutil.SelfPID(),
		Path: filepath.Join(dir, "d.dmp"),
	})
	assert.False(t, res.Succeeded)
	assert.True(t, core.IsAccessDenied(res.Err))
	assert.Nil(t, testutil.DirEntries(t, dir))
}

func TestWrite_Unsupported(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.DumpFunc = func(int32, *os.File, platform.DumpType) (bool, error) {
		return false, core.ErrUnsupported("process dump")
	}
	res := NewWriter(plat, nil).Write(context.Background(), Request{
		PID:  testutil.SelfPID(),
		Path: filepath.Join(t.TempDir(), "x.zdump"),
	})
	assert.False(t, res.Succeeded)
	assert.True(t, core.IsCategory(res.Err, core.ErrCatUnsupported))
}
