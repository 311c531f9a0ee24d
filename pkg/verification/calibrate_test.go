package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openveritas/veritas/pkg/store"
)

func TestCalibratePassesThroughWithNoParams(t *testing.T) {
	assert.InDelta(t, 0.73, Calibrate(0.73, nil), 1e-9)
}

func TestCalibrateTemperatureScalingIdentityAtT1(t *testing.T) {
	temp := 1.0
	params := &store.CalibrationParams{Method: "temperature", Temperature: &temp}
	assert.InDelta(t, 0.8, Calibrate(0.8, params), 1e-6)
}

func TestCalibrateTemperatureScalingSoftensExtremes(t *testing.T) {
	temp := 2.0
	params := &store.CalibrationParams{Method: "temperature", Temperature: &temp}
	calibrated := Calibrate(0.95, params)
	assert.Less(t, calibrated, 0.95)
	assert.Greater(t, calibrated, 0.5)
}

func TestCalibratePlattScalingIdentityAtDefaults(t *testing.T) {
	params := &store.CalibrationParams{Method: "platt"}
	assert.InDelta(t, 0.6, Calibrate(0.6, params), 1e-6)
}
