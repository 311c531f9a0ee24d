package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrierScorePerfectPredictionsIsZero(t *testing.T) {
	samples := []EvalSample{{Confidence: 1, Outcome: 1}, {Confidence: 0, Outcome: 0}}
	assert.Equal(t, 0.0, BrierScore(samples))
}

func TestBrierScoreWorstCaseIsOne(t *testing.T) {
	samples := []EvalSample{{Confidence: 1, Outcome: 0}, {Confidence: 0, Outcome: 1}}
	assert.Equal(t, 1.0, BrierScore(samples))
}

func TestExpectedCalibrationErrorZeroWhenPerfectlyCalibrated(t *testing.T) {
	samples := make([]EvalSample, 0, 100)
	for i := 0; i < 100; i++ {
		outcome := 0.0
		if i < 90 {
			outcome = 1.0
		}
		samples = append(samples, EvalSample{Confidence: 0.9, Outcome: outcome})
	}
	assert.InDelta(t, 0.0, ExpectedCalibrationError(samples), 1e-9)
}

func TestDegradationDetectedRequiresMinSampleSize(t *testing.T) {
	assert.False(t, DegradationDetected(0.1, 0.2, 50, 200, 0.05))
}

func TestDegradationDetectedTripsAtThreshold(t *testing.T) {
	// 10% worse than baseline, threshold 5%.
	assert.True(t, DegradationDetected(0.10, 0.11, 500, 200, 0.05))
}

func TestDegradationNotDetectedBelowThreshold(t *testing.T) {
	assert.False(t, DegradationDetected(0.10, 0.102, 500, 200, 0.05))
}
