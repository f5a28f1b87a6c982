// Package assessment holds the value objects shared by the risk and threat
// scoring engines: a clamped 0–100 score, its severity level, and the signals
// that explain how the score was reached.
package assessment

import "math"

// Level is the severity band a score falls into.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Thresholds maps scores to levels. A score >= Critical is critical,
// >= High is high, >= Medium is medium, anything below is low.
type Thresholds struct {
	Critical int
	High     int
	Medium   int
}

// LevelFor returns the level for the given score.
func (t Thresholds) LevelFor(score int) Level {
	switch {
	case score >= t.Critical:
		return LevelCritical
	case score >= t.High:
		return LevelHigh
	case score >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assessment is the immutable result of one scoring pass. Produced per
// evaluation; never persisted beyond the audit trail.
type Assessment struct {
	Score     int
	Level     Level
	Signals   []string
	Breakdown map[string]int
	// Delta is Score minus the caller-supplied baseline, for drift alerts.
	// Zero when no baseline was supplied.
	Delta int
	// Fallback marks an assessment substituted after an internal scoring
	// failure. The pipeline continues with it rather than failing the request.
	Fallback bool
}

// HasSignal reports whether the assessment carries the given signal.
func (a Assessment) HasSignal(name string) bool {
	for _, s := range a.Signals {
		if s == name {
			return true
		}
	}
	return false
}

// Clamp bounds v to [0,100] and rounds away fractional scores.
func Clamp(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
