package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Yousha/dotlyzer/internal/diagnostics"
)

// profileCollectors are created per registry so that one export never sees
// values left over from another.
type profileCollectors struct {
	cpuSeconds       *prometheus.GaugeVec
	uptimeSeconds    *prometheus.GaugeVec
	cpuPercent       *prometheus.GaugeVec
	threadCPUSeconds *prometheus.GaugeVec
	reportTimestamp  *prometheus.GaugeVec
}

func newProfileCollectors() profileCollectors {
	return profileCollectors{
		cpuSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dotlyzer_process_cpu_seconds",
				Help: "CPU time consumed by the process, by mode",
			},
			[]string{"pid", "mode"},
		),
		uptimeSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dotlyzer_process_uptime_seconds",
				Help: "Time since the process started",
			},
			[]string{"pid"},
		),
		cpuPercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dotlyzer_process_cpu_percent",
				Help: "CPU share over the process lifetime",
			},
			[]string{"pid"},
		),
		threadCPUSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dotlyzer_thread_cpu_seconds",
				Help: "Total CPU time consumed by one thread",
			},
			[]string{"pid", "tid"},
		),
		reportTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dotlyzer_report_timestamp_seconds",
				Help: "When the profile was captured",
			},
			[]string{"pid", "report_id"},
		),
	}
}

// ProfileRegistry returns a registry holding the figures of report.
// Unavailable figures are left out.
func ProfileRegistry(report *diagnostics.ProfileReport) *prometheus.Registry {
	c := newProfileCollectors()
	reg := prometheus.NewRegistry()
	reg.MustRegister(c.cpuSeconds, c.uptimeSeconds, c.cpuPercent, c.threadCPUSeconds, c.reportTimestamp)

	pid := strconv.Itoa(int(report.PID))
	c.reportTimestamp.WithLabelValues(pid, report.ReportID).Set(float64(report.CapturedAt.UnixNano()) / 1e9)

	if cpu, ok := report.CPU.Get(); ok {
		if v, ok := cpu.User.Get(); ok {
			c.cpuSeconds.WithLabelValues(pid, "user").Set(v.Seconds())
		}
		if v, ok := cpu.Kernel.Get(); ok {
			c.cpuSeconds.WithLabelValues(pid, "kernel").Set(v.Seconds())
		}
		if v, ok := cpu.Uptime.Get(); ok {
			c.uptimeSeconds.WithLabelValues(pid).Set(v.Seconds())
		}
		if v, ok := cpu.Percent.Get(); ok {
			c.cpuPercent.WithLabelValues(pid).Set(v)
		}
	}
	if threads, ok := report.Threads.Get(); ok {
		for _, t := range threads {
			c.threadCPUSeconds.WithLabelValues(pid, strconv.Itoa(int(t.ID))).Set(t.Total.Seconds())
		}
	}
	return reg
}

// WriteProfileTextfile writes report in the Prometheus text format for the
// node exporter textfile collector.
func WriteProfileTextfile(path string, report *diagnostics.ProfileReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, ProfileRegistry(report)); err != nil {
		return fmt.Errorf("writing textfile %s: %w", path, err)
	}
	return nil
}
