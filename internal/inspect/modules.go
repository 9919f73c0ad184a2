package inspect

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// ModuleInfo is one loaded module.
type ModuleInfo struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Size uint64 `json:"size" yaml:"size"`
}

// ModuleReport ranks and lists the modules of one process. When Err is set
// the enumeration failed as a whole and the other fields are empty.
type ModuleReport struct {
	Total   int          `json:"total" yaml:"total"`
	Top     []ModuleInfo `json:"top" yaml:"top"`
	Listing []ModuleInfo `json:"listing" yaml:"listing"`
	Omitted int          `json:"omitted" yaml:"omitted"`
	Err     error        `json:"-" yaml:"-"`
}

// Available reports whether the module list could be read.
func (r ModuleReport) Available() bool {
	return r.Err == nil
}

type moduleReportFields ModuleReport

// MarshalJSON renders a failed enumeration as a single marker.
func (r ModuleReport) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]string{"unavailable": core.UnavailableReason(r.Err)})
	}
	return json.Marshal(moduleReportFields(r))
}

// MarshalYAML mirrors MarshalJSON.
func (r ModuleReport) MarshalYAML() (interface{}, error) {
	if r.Err != nil {
		return map[string]string{"unavailable": core.UnavailableReason(r.Err)}, nil
	}
	return moduleReportFields(r), nil
}

// InspectModules enumerates the modules of p. It never fails; a denied or
// failed enumeration is carried in the report's Err.
func (in *Inspector) InspectModules(ctx context.Context, p *Process) ModuleReport {
	if err := p.Alive(ctx); err != nil {
		return ModuleReport{Err: err}
	}
	records, err := in.plat.Modules(p.PID)
	if err != nil {
		in.logger.WithPID(p.PID).Debug("module enumeration failed", "error", err)
		return ModuleReport{Err: err}
	}
	return BuildModuleReport(records, in.settings.TopModules, in.settings.ModuleListingCap)
}

// IsManaged classifies p by its full module list.
func (in *Inspector) IsManaged(p *Process) core.Result[bool] {
	records, err := in.plat.Modules(p.PID)
	if err != nil {
		return core.Fail[bool](err)
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return core.Ok(IsManagedRuntime(names, in.settings.RuntimeModules))
}

// BuildModuleReport keeps the topN largest modules (stable on ties)
// and lists up to listingCap in enumeration order.
func BuildModuleReport(records []platform.ModuleRecord, topN, listingCap int) ModuleReport {
	mods := make([]ModuleInfo, len(records))
	for i, r := range records {
		mods[i] = ModuleInfo{Name: r.Name, Path: r.Path, Size: r.Size}
	}

	top := append([]ModuleInfo(nil), mods...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Size > top[j].Size })
	if len(top) > topN {
		top = top[:topN]
	}

	listing := mods
	omitted := 0
	if len(mods) > listingCap {
		listing = mods[:listingCap]
		omitted = len(mods) - listingCap
	}
	return ModuleReport{
		Total:   len(mods),
		Top:     top,
		Listing: listing,
		Omitted: omitted,
	}
}
