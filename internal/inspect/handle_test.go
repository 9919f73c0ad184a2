package inspect

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/testutil"
)

func TestOpen_NotFound(t *testing.T) {
	t.Parallel()
	in := New(testutil.NewMockPlatform(), DefaultSettings(), nil)

	for _, pid := range []int32{testutil.NonexistentPID, -1} {
		_, err := in.Open(context.Background(), pid)
		assert.True(t, core.IsNotFound(err), "pid %d: %v", pid, err)
	}
}

func TestOpen_NativeNotFoundAborts(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	plat.OpenErr = core.ErrNotFound(testutil.SelfPID())
	in := New(plat, DefaultSettings(), nil)

	_, err := in.Open(context.Background(), testutil.SelfPID())
	assert.True(t, core.IsNotFound(err))
}

func TestWithProcess_ReleasesOnEveryPath(t *testing.T) {
	t.Parallel()
	plat := testutil.NewMockPlatform()
	in := New(plat, DefaultSettings(), nil)
	ctx := context.Background()

	err := in.WithProcess(ctx, testutil.SelfPID(), func(p *Process) error {
		assert.NotEmpty(t, p.Name)
		assert.Equal(t, 1, plat.OpenHandles())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, plat.OpenHandles())

	err = in.WithProcess(ctx, testutil.SelfPID(), func(*Process) error {
		return testutil.ErrTest
	})
	assert.ErrorIs(t, err, testutil.ErrTest)
	assert.Equal(t, 0, plat.OpenHandles())

	assert.Panics(t, func() {
		_ = in.WithProcess(ctx, testutil.SelfPID(), func(*Process) error {
			panic("boom")
		})
	})
	assert.Equal(t, 0, plat.OpenHandles())
}

func TestProcess_ClosedHandleFails(t *testing.T) {
	t.Parallel()
	in := New(testutil.NewMockPlatform(), DefaultSettings(), nil)
	ctx := context.Background()

	p, err := in.Open(ctx, testutil.SelfPID())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Handle()
	assert.Error(t, err)
	assert.Error(t, p.Alive(ctx))
	_, err = in.CollectMetrics(ctx, p)
	assert.Error(t, err)
}

func TestClassify_ProcessNotRunningIsNotFound(t *testing.T) {
	t.Parallel()
	err := classify(fmt.Errorf("reading name: %w", process.ErrorProcessNotRunning), 42, "name")
	assert.True(t, core.IsNotFound(err), "%v", err)

	err = classify(errors.New("boom"), 42, "name")
	assert.False(t, core.IsNotFound(err))
	assert.NoError(t, classify(nil, 42, "name"))
}
