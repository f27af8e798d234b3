package aggregate

import "github.com/spoolkit/spool/unit"

// scoreBand maps one ratio interval linearly onto a score interval.
type scoreBand struct {
	loRatio, hiRatio float64
	loScore, hiScore float64
}

// Bands reward texts whose extractable high-value content is a larger
// fraction of their raw length, with diminishing reward past 40%.
var scoreBands = []scoreBand{
	{0.00, 0.01, 0, 5},
	{0.01, 0.05, 5, 25},
	{0.05, 0.10, 25, 50},
	{0.10, 0.20, 50, 75},
	{0.20, 0.40, 75, 95},
	{0.40, 1.00, 95, 100},
}

// Score maps a signal ratio (retained extracted length / total input
// length) to a 0-100 quality score, piecewise linear and monotone.
func Score(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return 100
	}

	for _, b := range scoreBands {
		if ratio <= b.hiRatio {
			frac := (ratio - b.loRatio) / (b.hiRatio - b.loRatio)
			return b.loScore + frac*(b.hiScore-b.loScore)
		}
	}
	return 100
}

// SignalRatio computes retained content length over total input length.
func SignalRatio(items []unit.ExtractedItem, totalInputLength int) float64 {
	if totalInputLength <= 0 {
		return 0
	}
	return float64(TotalLength(items)) / float64(totalInputLength)
}
