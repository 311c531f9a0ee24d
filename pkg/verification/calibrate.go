package verification

import (
	"math"

	"github.com/openveritas/veritas/pkg/store"
)

// Calibrate maps a raw NLI entailment probability to a calibrated
// confidence using the active calibration parameters. Temperature scaling
// rescales the logit by 1/T; Platt scaling fits a logistic function
// a*logit(p) + b. With no active parameters, the raw probability passes
// through unchanged (cold-start: no learned calibration yet).
func Calibrate(raw float64, params *store.CalibrationParams) float64 {
	if params == nil {
		return raw
	}
	logit := logit(raw)
	switch params.Method {
	case "temperature":
		t := 1.0
		if params.Temperature != nil && *params.Temperature > 0 {
			t = *params.Temperature
		}
		return sigmoid(logit / t)
	case "platt":
		a, b := 1.0, 0.0
		if params.PlattA != nil {
			a = *params.PlattA
		}
		if params.PlattB != nil {
			b = *params.PlattB
		}
		return sigmoid(a*logit + b)
	default:
		return raw
	}
}

func logit(p float64) float64 {
	p = clamp(p, 1e-6, 1-1e-6)
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
