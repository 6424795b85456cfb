package detection

import "math"

// PercentDetected expresses detected as a percentage of expected, rounded to
// two decimal places. A non-positive expected count yields 0.
func PercentDetected(detected, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	pct := float64(detected) / float64(expected) * 100
	return math.Round(pct*100) / 100
}
