package diagnostics

import (
	"runtime"
	"time"
)

// SelfRuntimeCaption labels runtime figures that belong to dotlyzer itself.
const SelfRuntimeCaption = "inspector runtime (describes dotlyzer, not the target process)"

// SelfRuntime captures the inspecting process's own Go runtime state.
// The target's garbage collector is not observable from outside, so these
// figures are reported alongside the target's counters with a caption.
type SelfRuntime struct {
	Caption        string        `json:"caption" yaml:"caption"`
	Timestamp      time.Time     `json:"timestamp" yaml:"timestamp"`
	OpenFDs        int           `json:"open_fds" yaml:"open_fds"`
	MaxFDs         int           `json:"max_fds" yaml:"max_fds"`
	FDUsagePercent float64       `json:"fd_usage_percent" yaml:"fd_usage_percent"`
	Goroutines     int           `json:"goroutines" yaml:"goroutines"`
	HeapAlloc      uint64        `json:"heap_alloc" yaml:"heap_alloc"`
	HeapInUse      uint64        `json:"heap_in_use" yaml:"heap_in_use"`
	StackInUse     uint64        `json:"stack_in_use" yaml:"stack_in_use"`
	TotalAlloc     uint64        `json:"total_alloc" yaml:"total_alloc"`
	NumGC          uint32        `json:"num_gc" yaml:"num_gc"`
	NumForcedGC    uint32        `json:"num_forced_gc" yaml:"num_forced_gc"`
	LastGCPause    time.Duration `json:"last_gc_pause" yaml:"last_gc_pause"`
	Uptime         time.Duration `json:"uptime" yaml:"uptime"`
}

// TakeSelfRuntime captures the current runtime state. started is when the
// inspector began.
func TakeSelfRuntime(started time.Time) SelfRuntime {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	openFDs, maxFDs := CountFDs()
	fdPercent := 0.0
	if maxFDs > 0 {
		fdPercent = float64(openFDs) / float64(maxFDs) * 100
	}

	var lastPause time.Duration
	if memStats.NumGC > 0 {
		lastPause = time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256])
	}

	now := time.Now()
	return SelfRuntime{
		Caption:        SelfRuntimeCaption,
		Timestamp:      now,
		OpenFDs:        openFDs,
		MaxFDs:         maxFDs,
		FDUsagePercent: fdPercent,
		Goroutines:     runtime.NumGoroutine(),
		HeapAlloc:      memStats.HeapAlloc,
		HeapInUse:      memStats.HeapInuse,
		StackInUse:     memStats.StackInuse,
		TotalAlloc:     memStats.TotalAlloc,
		NumGC:          memStats.NumGC,
		NumForcedGC:    memStats.NumForcedGC,
		LastGCPause:    lastPause,
		Uptime:         now.Sub(started),
	}
}
