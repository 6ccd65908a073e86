package progress_test

import (
	"testing"
	"time"

	"taskflow/internal/progress"

	"github.com/stretchr/testify/assert"
)

var day0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func dayN(n float64) time.Time {
	return day0.Add(time.Duration(n * float64(24*time.Hour)))
}

func intPtr(v int) *int { return &v }

// TestAutoProgress тестирует расчёт процента по датам
func TestAutoProgress(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		now      time.Time
		expected int
	}{
		{name: "before start", start: day0, end: dayN(10), now: dayN(-1), expected: 0},
		{name: "exactly at start", start: day0, end: dayN(10), now: day0, expected: 0},
		{name: "middle of range", start: day0, end: dayN(10), now: dayN(5), expected: 50},
		{name: "rounds to nearest", start: day0, end: dayN(3), now: dayN(1), expected: 33},
		{name: "small fraction rounds down", start: day0, end: dayN(8), now: dayN(0.1), expected: 1},
		{name: "exactly at end", start: day0, end: dayN(10), now: dayN(10), expected: 100},
		{name: "after end", start: day0, end: dayN(10), now: dayN(42), expected: 100},
		{name: "degenerate range - before", start: day0, end: day0, now: dayN(-0.5), expected: 0},
		{name: "degenerate range - at end", start: day0, end: day0, now: day0, expected: 100},
		{name: "degenerate range - after", start: day0, end: day0, now: dayN(1), expected: 100},
		{name: "inverted range - after both", start: dayN(5), end: day0, now: dayN(6), expected: 100},
		{name: "inverted range - before both", start: dayN(5), end: day0, now: dayN(-1), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.AutoProgress(tt.start, tt.end, tt.now)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestAutoProgress_Properties проверяет диапазон и монотонность
func TestAutoProgress_Properties(t *testing.T) {
	start, end := day0, dayN(7)

	prev := -1
	for now := dayN(-2); now.Before(dayN(9)); now = now.Add(37 * time.Minute) {
		got := progress.AutoProgress(start, end, now)

		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
		assert.GreaterOrEqual(t, got, prev, "progress must not decrease, now=%s", now)
		prev = got
	}
}

// TestDaysRemainingAndTotal тестирует подсчёт дней
func TestDaysRemainingAndTotal(t *testing.T) {
	tests := []struct {
		name          string
		start         time.Time
		end           time.Time
		now           time.Time
		wantRemaining int
		wantTotal     int
	}{
		{name: "whole days", start: day0, end: dayN(10), now: dayN(4), wantRemaining: 6, wantTotal: 10},
		{name: "partial day rounds up", start: day0, end: dayN(2.2), now: dayN(0.5), wantRemaining: 2, wantTotal: 3},
		{name: "due today", start: day0, end: dayN(1), now: dayN(1), wantRemaining: 0, wantTotal: 1},
		{name: "overdue by a day", start: day0, end: dayN(10), now: dayN(11), wantRemaining: -1, wantTotal: 10},
		{name: "overdue by less than a day", start: day0, end: dayN(10), now: dayN(10.5), wantRemaining: 0, wantTotal: 10},
		{name: "misconfigured range", start: dayN(3), end: day0, now: day0, wantRemaining: 0, wantTotal: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRemaining, progress.DaysRemaining(tt.end, tt.now))
			assert.Equal(t, tt.wantTotal, progress.TotalDays(tt.start, tt.end))
		})
	}
}

// TestProgressColor тестирует цветовые полосы
func TestProgressColor(t *testing.T) {
	start, end := day0, dayN(10)

	tests := []struct {
		name       string
		now        time.Time
		wantStatus progress.Status
		wantBand   progress.Band
	}{
		{name: "upcoming", now: dayN(-1), wantStatus: progress.StatusUpcoming, wantBand: progress.BandUpcoming},
		{name: "just started", now: day0, wantStatus: progress.StatusOnTrack, wantBand: progress.BandGreen},
		{name: "60% remaining", now: dayN(4), wantStatus: progress.StatusOnTrack, wantBand: progress.BandGreen},
		{name: "50% remaining", now: dayN(5), wantStatus: progress.StatusAttention, wantBand: progress.BandYellow},
		{name: "40% remaining", now: dayN(6), wantStatus: progress.StatusAttention, wantBand: progress.BandYellow},
		{name: "30% remaining", now: dayN(7), wantStatus: progress.StatusUrgent, wantBand: progress.BandOrange},
		{name: "20% remaining", now: dayN(8), wantStatus: progress.StatusUrgent, wantBand: progress.BandOrange},
		{name: "10% remaining", now: dayN(9), wantStatus: progress.StatusCritical, wantBand: progress.BandRed},
		{name: "at deadline", now: dayN(10), wantStatus: progress.StatusCritical, wantBand: progress.BandRed},
		{name: "overdue", now: dayN(11), wantStatus: progress.StatusOverdue, wantBand: progress.BandOverdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.ProgressColor(start, end, tt.now)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantBand, got.Band)
			assert.NotEmpty(t, got.Hint)
		})
	}

	t.Run("degenerate range does not panic", func(t *testing.T) {
		got := progress.ProgressColor(day0, day0, day0)
		assert.Equal(t, progress.StatusCritical, got.Status)
	})
}

func TestIsOverdue(t *testing.T) {
	assert.False(t, progress.IsOverdue(dayN(10), dayN(9)))
	assert.False(t, progress.IsOverdue(dayN(10), dayN(10)))
	assert.True(t, progress.IsOverdue(dayN(10), dayN(10).Add(time.Millisecond)))
}

// TestDisplayProgress тестирует приоритет ручного прогресса
func TestDisplayProgress(t *testing.T) {
	assert.Equal(t, 70, progress.DisplayProgress(40, intPtr(70)))
	assert.Equal(t, 0, progress.DisplayProgress(40, intPtr(0)))
	assert.Equal(t, 40, progress.DisplayProgress(40, nil))
}
