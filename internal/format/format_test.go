package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0.0 B"},
		{1, "1.0 B"},
		{1023, "1023.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{2048 * 1024 * 1024 * 1024, "2048.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(tt.in), "Bytes(%d)", tt.in)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03.000"},
		{26 * time.Hour, "1.02:00:00.000"},
		{-time.Second, "00:00:00.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.in), "Duration(%s)", tt.in)
	}
}

func TestPercentAndTimestamp(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "10.00%", Percent(10))
	assert.Equal(t, "-", Timestamp(time.Time{}))

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)
	assert.Equal(t, "2025-03-04 05:06:07", Timestamp(ts))
}
