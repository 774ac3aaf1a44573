// Package scoring computes points for answers. It is pure: deterministic,
// no side effects, so recorded answers can be re-scored for audit.
package scoring

import "math"

// Fraction of the time limit inside which a correct answer still earns
// full points, and the floor a slow correct answer decays to.
const (
	graceFraction = 0.25
	floorFraction = 0.5
)

// ComputePoints returns the points earned for one answer. Wrong answers
// earn zero. Correct answers earn full basePoints within the first quarter
// of the limit, then decay linearly to half basePoints at the limit. Time
// past the limit clamps to the floor, so late auto-submitted answers never
// error or go negative.
func ComputePoints(basePoints, timeLimitSeconds int, timeTakenSeconds float64, correct bool) int {
	if !correct || basePoints <= 0 {
		return 0
	}
	if timeLimitSeconds <= 0 {
		return basePoints
	}
	if timeTakenSeconds < 0 {
		timeTakenSeconds = 0
	}

	limit := float64(timeLimitSeconds)
	grace := limit * graceFraction
	if timeTakenSeconds <= grace {
		return basePoints
	}
	if timeTakenSeconds >= limit {
		return roundPoints(float64(basePoints) * floorFraction)
	}

	// Linear decay from full at the grace boundary to the floor at the limit.
	progress := (timeTakenSeconds - grace) / (limit - grace)
	factor := 1 - (1-floorFraction)*progress
	return roundPoints(float64(basePoints) * factor)
}

func roundPoints(v float64) int {
	p := int(math.Round(v))
	if p < 1 {
		// Correct answers always earn something.
		p = 1
	}
	return p
}
