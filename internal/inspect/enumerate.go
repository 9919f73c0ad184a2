package inspect

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/sahilm/fuzzy"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/logging"
	"github.com/Yousha/dotlyzer/internal/platform"
)

// ProcessEntry is one row of the process listing.
type ProcessEntry struct {
	PID     int32  `json:"pid" yaml:"pid"`
	Name    string `json:"name" yaml:"name"`
	Managed bool   `json:"managed" yaml:"managed"`
}

// EnumStats counts what the listing had to tolerate.
type EnumStats struct {
	Total          int `json:"total" yaml:"total"`
	ModuleFailures int `json:"module_failures" yaml:"module_failures"`
	NameFailures   int `json:"name_failures" yaml:"name_failures"`
	Vanished       int `json:"vanished" yaml:"vanished"`
}

// Listing is the sorted process table.
type Listing struct {
	Entries []ProcessEntry `json:"processes" yaml:"processes"`
	Stats   EnumStats      `json:"stats" yaml:"stats"`
}

// ProcessTable is the source of process ids and names.
type ProcessTable interface {
	PIDs(ctx context.Context) ([]int32, error)
	Name(ctx context.Context, pid int32) (string, error)
}

type gopsutilTable struct{}

func (gopsutilTable) PIDs(ctx context.Context) ([]int32, error) {
	return process.PidsWithContext(ctx)
}

func (gopsutilTable) Name(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	return p.NameWithContext(ctx)
}

// Enumerator lists every visible process.
type Enumerator struct {
	table   ProcessTable
	modules platform.Introspector
	known   []string
	logger  *logging.Logger
}

// NewEnumerator builds an enumerator. A nil table reads the live process
// table through gopsutil.
func NewEnumerator(table ProcessTable, modules platform.Introspector, known []string, logger *logging.Logger) *Enumerator {
	if table == nil {
		table = gopsutilTable{}
	}
	if len(known) == 0 {
		known = DefaultRuntimeModules()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enumerator{table: table, modules: modules, known: known, logger: logger.WithComponent("enumerator")}
}

// Enumerator returns an enumerator over the live process table.
func (in *Inspector) Enumerator() *Enumerator {
	return NewEnumerator(nil, in.plat, in.settings.RuntimeModules, in.logger)
}

// List returns all processes sorted by name (byte-wise, so "Alpha" sorts
// before "beta"), ties by pid. A process whose modules cannot be read is
// listed as not managed. Only a failure of the process table itself is an
// error.
func (e *Enumerator) List(ctx context.Context) (Listing, error) {
	pids, err := e.table.PIDs(ctx)
	if err != nil {
		return Listing{}, core.Classify(err, 0, "process table")
	}

	var listing Listing
	listing.Entries = make([]ProcessEntry, 0, len(pids))
	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return Listing{}, err
		}

		entry := ProcessEntry{PID: pid}
		name, err := e.table.Name(ctx, pid)
		switch {
		case errors.Is(err, process.ErrorProcessNotRunning) || core.IsNotFound(err):
			listing.Stats.Vanished++
			continue
		case err != nil:
			listing.Stats.NameFailures++
		default:
			entry.Name = name
		}

		entry.Managed = e.classify(pid, &listing.Stats)
		listing.Entries = append(listing.Entries, entry)
	}

	SortEntries(listing.Entries)
	listing.Stats.Total = len(listing.Entries)
	e.logger.Debug("process table enumerated",
		"total", listing.Stats.Total,
		"module_failures", listing.Stats.ModuleFailures,
		"vanished", listing.Stats.Vanished)
	return listing, nil
}

func (e *Enumerator) classify(pid int32, stats *EnumStats) bool {
	if e.modules == nil {
		return false
	}
	mods, err := e.modules.Modules(pid)
	if err != nil {
		stats.ModuleFailures++
		return false
	}
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.Name
	}
	return IsManagedRuntime(names, e.known)
}

// SortEntries orders entries by name with ordinal comparison, then pid.
func SortEntries(entries []ProcessEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].PID < entries[j].PID
	})
}

// Filter narrows entries to those whose name fuzzily matches query, best
// match first. A numeric query also matches that exact pid.
func Filter(entries []ProcessEntry, query string) []ProcessEntry {
	if query == "" {
		return entries
	}

	var out []ProcessEntry
	seen := make(map[int]bool)
	if pid, err := strconv.ParseInt(query, 10, 32); err == nil {
		for i, e := range entries {
			if e.PID == int32(pid) {
				out = append(out, e)
				seen[i] = true
			}
		}
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	for _, m := range fuzzy.Find(query, names) {
		if !seen[m.Index] {
			out = append(out, entries[m.Index])
			seen[m.Index] = true
		}
	}
	return out
}
