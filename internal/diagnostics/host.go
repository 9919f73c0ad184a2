package diagnostics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Yousha/dotlyzer/internal/core"
)

// OSInfo identifies the host operating system.
type OSInfo struct {
	Hostname        string        `json:"hostname" yaml:"hostname"`
	OS              string        `json:"os" yaml:"os"`
	Platform        string        `json:"platform" yaml:"platform"`
	PlatformVersion string        `json:"platform_version" yaml:"platform_version"`
	KernelVersion   string        `json:"kernel_version" yaml:"kernel_version"`
	KernelArch      string        `json:"kernel_arch" yaml:"kernel_arch"`
	Uptime          time.Duration `json:"uptime" yaml:"uptime"`
}

// CPUInfo describes the host processors.
type CPUInfo struct {
	Model   string `json:"model" yaml:"model"`
	Cores   int    `json:"cores" yaml:"cores"`
	Threads int    `json:"threads" yaml:"threads"`
}

// UsageInfo is a total/used pair in bytes.
type UsageInfo struct {
	Total       uint64  `json:"total" yaml:"total"`
	Used        uint64  `json:"used" yaml:"used"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// LoadInfo holds Unix load averages.
type LoadInfo struct {
	Load1  float64 `json:"load1" yaml:"load1"`
	Load5  float64 `json:"load5" yaml:"load5"`
	Load15 float64 `json:"load15" yaml:"load15"`
}

// GPUInfo names one graphics card.
type GPUInfo struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// HostInfo summarizes the machine the target runs on. Each part is read
// independently.
type HostInfo struct {
	OS     core.Result[OSInfo]    `json:"os" yaml:"os"`
	CPU    core.Result[CPUInfo]   `json:"cpu" yaml:"cpu"`
	Memory core.Result[UsageInfo] `json:"memory" yaml:"memory"`
	// Disk is the filesystem holding the system root.
	Disk core.Result[UsageInfo] `json:"disk" yaml:"disk"`
	Load core.Result[LoadInfo]  `json:"load" yaml:"load"`
	GPUs core.Result[[]GPUInfo] `json:"gpus" yaml:"gpus"`
}

// HostCollector reads host information. Static hardware facts are read
// once per collector.
type HostCollector struct {
	mu sync.Mutex

	infoCollected bool
	cpuInfo       core.Result[CPUInfo]
	gpus          core.Result[[]GPUInfo]
}

// NewHostCollector creates a new host collector.
func NewHostCollector() *HostCollector {
	return &HostCollector{}
}

// Collect gathers the current host summary.
func (c *HostCollector) Collect(ctx context.Context) HostInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collectHardwareInfo(ctx)

	return HostInfo{
		OS:     collectOSInfo(ctx),
		CPU:    c.cpuInfo,
		Memory: collectMemoryInfo(ctx),
		Disk:   collectDiskInfo(ctx),
		Load:   collectLoadAvg(ctx),
		GPUs:   c.gpus,
	}
}

func collectOSInfo(ctx context.Context) core.Result[OSInfo] {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return core.Fail[OSInfo](fmt.Errorf("reading host info: %w", err))
	}
	return core.Ok(OSInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		KernelArch:      info.KernelArch,
		Uptime:          time.Duration(info.Uptime) * time.Second,
	})
}

// collectMemoryInfo reads system memory information.
func collectMemoryInfo(ctx context.Context) core.Result[UsageInfo] {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return core.Fail[UsageInfo](fmt.Errorf("reading memory: %w", err))
	}
	return core.Ok(UsageInfo{Total: vm.Total, Used: vm.Used, UsedPercent: vm.UsedPercent})
}

// collectDiskInfo reads disk usage for the root filesystem.
func collectDiskInfo(ctx context.Context) core.Result[UsageInfo] {
	usage, err := disk.UsageWithContext(ctx, rootDiskPath())
	if err != nil {
		return core.Fail[UsageInfo](fmt.Errorf("reading disk usage: %w", err))
	}
	return core.Ok(UsageInfo{Total: usage.Total, Used: usage.Used, UsedPercent: usage.UsedPercent})
}

// collectLoadAvg reads system load averages.
func collectLoadAvg(ctx context.Context) core.Result[LoadInfo] {
	if runtime.GOOS == "windows" {
		return core.Fail[LoadInfo](core.ErrUnsupported("load average"))
	}
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return core.Fail[LoadInfo](fmt.Errorf("reading load average: %w", err))
	}
	return core.Ok(LoadInfo{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15})
}

func (c *HostCollector) collectHardwareInfo(ctx context.Context) {
	if c.infoCollected {
		return
	}
	c.infoCollected = true

	var info CPUInfo
	var firstErr error
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		info.Model = strings.TrimSpace(infos[0].ModelName)
	} else if err != nil {
		firstErr = err
	}
	if cores, err := cpu.CountsWithContext(ctx, false); err == nil && cores > 0 {
		info.Cores = cores
	}
	if threads, err := cpu.CountsWithContext(ctx, true); err == nil && threads > 0 {
		info.Threads = threads
	}
	if info == (CPUInfo{}) {
		if firstErr == nil {
			firstErr = core.ErrInternal("no cpu information")
		}
		c.cpuInfo = core.Fail[CPUInfo](fmt.Errorf("reading cpu info: %w", firstErr))
	} else {
		c.cpuInfo = core.Ok(info)
	}

	c.gpus = queryGPUs()
}

// queryGPUs lists graphics cards. A machine without any is not a failure.
func queryGPUs() core.Result[[]GPUInfo] {
	info, err := ghw.GPU()
	if err != nil {
		return core.Fail[[]GPUInfo](fmt.Errorf("reading gpu info: %w", err))
	}
	if info == nil {
		return core.Ok([]GPUInfo{})
	}

	gpus := make([]GPUInfo, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			if card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil {
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name)
			} else if card.DeviceInfo.Product != nil {
				name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			} else if card.DeviceInfo.Vendor != nil {
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		gpus = append(gpus, GPUInfo{Index: card.Index, Name: name})
	}
	return core.Ok(gpus)
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + "\\"
	}
	return "/"
}
