package inspect

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/testutil"
)

func TestDetectArchitecture(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		is64      bool
		wow       bool
		wowErr    error
		handleErr error
		want      Architecture
		wantQuery bool
	}{
		{name: "32-bit os", is64: false, want: Arch32},
		{name: "native 64-bit", is64: true, want: Arch64, wantQuery: true},
		{name: "compat 32-bit", is64: true, wow: true, want: Arch32, wantQuery: true},
		{name: "query fails", is64: true, wowErr: syscall.Errno(5), want: ArchUnknown, wantQuery: true},
		{name: "no handle", is64: true, handleErr: core.ErrAccessDenied("process handle"), want: ArchUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plat := testutil.NewMockPlatform()
			plat.Is64Bit = tt.is64
			plat.Wow64 = tt.wow
			plat.Wow64Err = tt.wowErr

			got, err := DetectArchitecture(plat, plat, 1, tt.handleErr)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == ArchUnknown, err != nil)
			if tt.wantQuery {
				assert.Equal(t, 1, plat.CallCount("IsWow64Process"))
			} else {
				assert.Zero(t, plat.CallCount("IsWow64Process"))
			}
		})
	}
}

func TestDetectArchitecture_NativeFailureCarriesCode(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.Wow64Err = syscall.Errno(6)

	_, err := DetectArchitecture(plat, plat, 1, nil)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNativeCall))
	code, ok := core.NativeErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, uint32(6), code)
}

func TestInspectPermissions(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.Elevated = true
	plat.Session = 2
	plat.PriorityErr = core.ErrAccessDenied("priority class")

	in := New(plat, DefaultSettings(), nil)
	in.callerArgs = []string{"dotlyzer", "permissions", "--token", "abc123"}
	ctx := context.Background()

	err := in.WithProcess(ctx, testutil.SelfPID(), func(p *Process) error {
		report, err := in.InspectPermissions(ctx, p)
		require.NoError(t, err)

		assert.Equal(t, testutil.SelfPID(), report.PID)
		assert.Equal(t, uint32(2), report.SessionID.Value)
		assert.Equal(t, "access denied", report.PriorityClass.Reason())
		assert.True(t, report.CallerIsAdmin.Value)
		assert.Equal(t, Arch64, report.Architecture)
		assert.True(t, report.CallerWorkDir.Available())
		assert.Equal(t, []string{"dotlyzer", "permissions", "--token", "[REDACTED]"}, report.CallerArgs)
		return nil
	})
	require.NoError(t, err)
}
