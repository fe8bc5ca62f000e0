package ui

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/xcp/internal/stats"
)

func TestSpeed(t *testing.T) {
	tests := []struct {
		name     string
		quantity uint64
		elapsed  time.Duration
		want     uint64
	}{
		{name: "zero quantity", quantity: 0, elapsed: 3 * time.Second, want: 0},
		{name: "zero quantity tiny elapsed", quantity: 0, elapsed: 500 * time.Nanosecond, want: 0},
		{name: "two seconds", quantity: 1000, elapsed: 2 * time.Second, want: 500},
		{name: "whole seconds only", quantity: 1000, elapsed: 2*time.Second + 900*time.Millisecond, want: 500},
		{name: "sub-second micro branch", quantity: 1000, elapsed: 500 * time.Millisecond, want: 2},
		{name: "exactly one second uses micro branch", quantity: 1_000_000, elapsed: time.Second, want: 1000},
		{name: "nanosecond branch", quantity: 10, elapsed: 500 * time.Nanosecond, want: 20_000_000},
		{name: "zero elapsed", quantity: 10, elapsed: 0, want: 0},
		{name: "one nanosecond", quantity: 10, elapsed: time.Nanosecond, want: 0},
		{name: "max quantity one nanosecond", quantity: math.MaxUint64, elapsed: time.Nanosecond, want: 0},
		{name: "max quantity sub-microsecond", quantity: math.MaxUint64, elapsed: 10 * time.Nanosecond, want: 0},
		{name: "max quantity sub-second", quantity: math.MaxUint64, elapsed: 10 * time.Millisecond, want: 0},
		{name: "max quantity long", quantity: math.MaxUint64, elapsed: 2 * time.Second, want: math.MaxUint64 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, Speed(tt.quantity, tt.elapsed))
			})
		})
	}
}

func TestSpeedHalvesOverTwoSeconds(t *testing.T) {
	for _, x := range []uint64{0, 1, 2, 999, 1 << 40, math.MaxUint64} {
		assert.Equal(t, x/2, Speed(x, 2*time.Second))
	}
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "0 B", FormatSpeed(0, time.Minute))
	assert.Equal(t, "30 B", FormatSpeed(60, 2*time.Second))
	assert.Equal(t, "1.0 MiB", FormatSpeed(2<<20, 2*time.Second))
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "--"},
		{-1 * time.Second, "--"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{3661 * time.Second, "1h 01m 01s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatETA(tt.input))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "2s", FormatDuration(1600*time.Millisecond))
	assert.Equal(t, "3m 17s", FormatDuration(197*time.Second))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▪▪▪▪▪□□□□□", ProgressBar(0.5, 10))
	assert.Equal(t, "□□□□□□□□□□", ProgressBar(0, 10))
	assert.Equal(t, "▪▪▪▪▪▪▪▪▪▪", ProgressBar(1.0, 10))
	assert.Equal(t, "", ProgressBar(0.5, 0))
	assert.Equal(t, "▪▪▪▪▪▪▪▪▪▪", ProgressBar(1.5, 10))
	assert.Equal(t, "□□□□□□□□□□", ProgressBar(-0.5, 10))
}

func TestSummaryLine(t *testing.T) {
	line := SummaryLine(stats.Summary{
		FilesDone:  3,
		FilesTotal: 3,
		BytesDone:  60,
		BytesTotal: 60,
		Elapsed:    2 * time.Second,
	})
	assert.Equal(t, "copied 3 files (60 B) in 2s 30 B/s", line)
}
