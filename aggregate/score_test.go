package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spoolkit/spool/unit"
)

func TestScoreEndpoints(t *testing.T) {
	assert.Equal(t, 0.0, Score(0.0))
	assert.Equal(t, 100.0, Score(1.0))
	assert.Equal(t, 0.0, Score(-0.5))
	assert.Equal(t, 100.0, Score(3.0))
}

func TestScoreBandBoundaries(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.01, 5},
		{0.05, 25},
		{0.10, 50},
		{0.20, 75},
		{0.40, 95},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Score(tt.ratio), 1e-9, "ratio %v", tt.ratio)
	}
}

func TestScoreLinearWithinBand(t *testing.T) {
	// Midpoint of the (0.05, 0.10] band maps to the midpoint of [25, 50].
	assert.InDelta(t, 37.5, Score(0.075), 1e-9)
	// Midpoint of the (0.20, 0.40] band.
	assert.InDelta(t, 85.0, Score(0.30), 1e-9)
}

func TestScoreMonotone(t *testing.T) {
	prev := Score(0)
	for ratio := 0.001; ratio <= 1.2; ratio += 0.001 {
		got := Score(ratio)
		assert.GreaterOrEqual(t, got, prev, "score must not decrease at ratio %v", ratio)
		prev = got
	}
}

func TestScoreBounded(t *testing.T) {
	for ratio := -1.0; ratio <= 2.0; ratio += 0.01 {
		got := Score(ratio)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestSignalRatio(t *testing.T) {
	items := []unit.ExtractedItem{{Text: "abcd", Length: 4}, {Text: "ef", Length: 2}}
	assert.InDelta(t, 0.06, SignalRatio(items, 100), 1e-9)
	assert.Equal(t, 0.0, SignalRatio(items, 0))
}
