package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
	"github.com/Yousha/dotlyzer/internal/testutil"
)

func moduleRecords(n int) []platform.ModuleRecord {
	mods := make([]platform.ModuleRecord, n)
	for i := range mods {
		name := fmt.Sprintf("mod%02d.dll", i)
		mods[i] = platform.ModuleRecord{
			Name: name,
			Path: `C:\app\` + name,
			// Sizes repeat so that ranking has ties.
			Size: uint64((i % 7) * 4096),
		}
	}
	return mods
}

func TestBuildModuleReport_CapsAndRanks(t *testing.T) {
	t.Parallel()
	report := BuildModuleReport(moduleRecords(25), 10, 20)

	assert.Equal(t, 25, report.Total)
	require.Len(t, report.Listing, 20)
	assert.Equal(t, 5, report.Omitted)
	assert.Equal(t, "mod00.dll", report.Listing[0].Name)
	assert.Equal(t, "mod19.dll", report.Listing[19].Name)

	require.Len(t, report.Top, 10)
	for i := 1; i < len(report.Top); i++ {
		assert.GreaterOrEqual(t, report.Top[i-1].Size, report.Top[i].Size)
	}
	// Equal sizes keep enumeration order: mod06, mod13 and mod20 share the
	// largest size.
	assert.Equal(t, []string{"mod06.dll", "mod13.dll", "mod20.dll"},
		[]string{report.Top[0].Name, report.Top[1].Name, report.Top[2].Name})
}

func TestBuildModuleReport_Small(t *testing.T) {
	t.Parallel()
	report := BuildModuleReport(moduleRecords(3), 10, 20)
	assert.Len(t, report.Listing, 3)
	assert.Len(t, report.Top, 3)
	assert.Zero(t, report.Omitted)
	assert.True(t, report.Available())
}

func TestModuleReport_DeniedRendersMarker(t *testing.T) {
	t.Parallel()
	report := ModuleReport{Err: core.ErrAccessDenied("module list")}
	assert.False(t, report.Available())

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unavailable":"access denied"}`, string(data))

	ok, err := json.Marshal(BuildModuleReport(moduleRecords(1), 10, 20))
	require.NoError(t, err)
	assert.Contains(t, string(ok), `"listing"`)
}

func TestInspectModules_DeniedDoesNotRaise(t *testing.T) {
	t.Parallel()
	self := testutil.SelfPID()
	plat := testutil.NewMockPlatform().WithModuleError(self, core.ErrAccessDenied("module list"))
	in := New(plat, DefaultSettings(), nil)
	ctx := context.Background()

	err := in.WithProcess(ctx, self, func(p *Process) error {
		report := in.InspectModules(ctx, p)
		assert.True(t, core.IsAccessDenied(report.Err))
		assert.False(t, in.IsManaged(p).Available())
		return nil
	})
	require.NoError(t, err)
}

func TestInspectModules_UsesSettings(t *testing.T) {
	t.Parallel()
	self := testutil.SelfPID()
	plat := testutil.NewMockPlatform().WithModules(self, moduleRecords(12)...)
	in := New(plat, Settings{TopModules: 2, ModuleListingCap: 5}, nil)
	ctx := context.Background()

	err := in.WithProcess(ctx, self, func(p *Process) error {
		report := in.InspectModules(ctx, p)
		assert.Len(t, report.Top, 2)
		assert.Len(t, report.Listing, 5)
		assert.Equal(t, 7, report.Omitted)
		assert.False(t, in.IsManaged(p).Value)
		return nil
	})
	require.NoError(t, err)
}
