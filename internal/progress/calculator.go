// Package progress derives time-based completion numbers for a task.
//
// Every function takes "now" explicitly, nothing here reads the wall clock.
package progress

import (
	"math"
	"time"
)

const day = 24 * time.Hour

type Band string
type Status string

const (
	BandOverdue  Band = "critical-red"
	BandUpcoming Band = "info-blue"
	BandGreen    Band = "green"
	BandYellow   Band = "yellow"
	BandOrange   Band = "orange"
	BandRed      Band = "red"
)

const (
	StatusOverdue   Status = "overdue"
	StatusUpcoming  Status = "upcoming"
	StatusOnTrack   Status = "on-track"
	StatusAttention Status = "attention"
	StatusUrgent    Status = "urgent"
	StatusCritical  Status = "critical"
)

// Color - полоса "здоровья" задачи. Hint и Gradient только подсказки для клиента.
type Color struct {
	Band     Band   `json:"band"`
	Status   Status `json:"status"`
	Hint     string `json:"color"`
	Gradient string `json:"gradient"`
}

var (
	colorOverdue   = Color{Band: BandOverdue, Status: StatusOverdue, Hint: "error", Gradient: "linear-gradient(90deg, #f44336, #c62828)"}
	colorUpcoming  = Color{Band: BandUpcoming, Status: StatusUpcoming, Hint: "info", Gradient: "linear-gradient(90deg, #6DD5FA, #2980B9)"}
	colorOnTrack   = Color{Band: BandGreen, Status: StatusOnTrack, Hint: "success", Gradient: "linear-gradient(90deg, #4CAF50, #2E7D32)"}
	colorAttention = Color{Band: BandYellow, Status: StatusAttention, Hint: "warning", Gradient: "linear-gradient(90deg, #FFC107, #F57C00)"}
	colorUrgent    = Color{Band: BandOrange, Status: StatusUrgent, Hint: "warning", Gradient: "linear-gradient(90deg, #FF9800, #E65100)"}
	colorCritical  = Color{Band: BandRed, Status: StatusCritical, Hint: "error", Gradient: "linear-gradient(90deg, #FF5722, #BF360C)"}
)

// AutoProgress returns the share of the [start, end] window that has elapsed at now,
// as an integer percent. A zero-length window counts as done once now reaches it.
func AutoProgress(start, end, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	if now.After(end) {
		return 100
	}

	total := end.Sub(start)
	if total <= 0 {
		return 100
	}

	elapsed := now.Sub(start)
	return clamp(int(math.Round(float64(elapsed) / float64(total) * 100)))
}

// DaysRemaining is negative for overdue tasks.
func DaysRemaining(end, now time.Time) int {
	return ceilDays(end.Sub(now))
}

func TotalDays(start, end time.Time) int {
	return ceilDays(end.Sub(start))
}

// ProgressColor picks a band by the share of time still remaining.
// Thresholds are inclusive at the lower edge: 60% left is on-track, 40% is attention,
// 20% is urgent.
func ProgressColor(start, end, now time.Time) Color {
	if now.After(end) {
		return colorOverdue
	}
	if now.Before(start) {
		return colorUpcoming
	}

	total := end.Sub(start).Milliseconds()
	if total <= 0 {
		return colorCritical
	}
	remaining := end.Sub(now).Milliseconds()

	// сравнение в целых миллисекундах, без деления
	switch {
	case remaining*100 >= total*60:
		return colorOnTrack
	case remaining*100 >= total*40:
		return colorAttention
	case remaining*100 >= total*20:
		return colorUrgent
	default:
		return colorCritical
	}
}

func IsOverdue(end, now time.Time) bool {
	return now.After(end)
}

// DisplayProgress is the value every response shows: the manual override when present.
func DisplayProgress(autoProgress int, manualProgress *int) int {
	if manualProgress != nil {
		return *manualProgress
	}
	return autoProgress
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
