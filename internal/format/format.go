// Package format renders raw magnitudes as human-readable strings.
package format

import (
	"fmt"
	"time"
)

var byteUnits = []string{"B", "KB", "MB", "GB"}

// Bytes scales n to the largest unit among B, KB, MB and GB that keeps the
// value below 1024 (GB is the cap) and renders it with one decimal digit.
func Bytes(n uint64) string {
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// Duration renders d as [d.]hh:mm:ss.fff. Negative durations render as zero.
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond

	if days > 0 {
		return fmt.Sprintf("%d.%02d:%02d:%02d.%03d", days, h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// Percent renders a percentage with two decimals.
func Percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// Timestamp renders t in local time, second precision.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
