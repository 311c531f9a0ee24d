package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBayesianTruthConfidenceWithNoEvidenceIsHalf(t *testing.T) {
	assert.InDelta(t, 0.5, BayesianTruthConfidence(nil), 0.0001)
}

func TestControversyWithNoEvidenceIsZero(t *testing.T) {
	assert.InDelta(t, 0, Controversy(nil), 0.0001)
}

func TestHappyPathScenario(t *testing.T) {
	// S1: 3 supporting edges at confidence 0.9, no refutes.
	edges := []EdgeContribution{
		{Relation: "supports", Confidence: 0.9},
		{Relation: "supports", Confidence: 0.9},
		{Relation: "supports", Confidence: 0.9},
	}
	got := BayesianTruthConfidence(edges)
	want := (1 + 2.7) / (2 + 2.7)
	assert.InDelta(t, want, got, 0.0001)
}

func TestContradictionScenario(t *testing.T) {
	// S2: 3 supports at 0.9 plus 1 refute at 0.8 -> 3.7/5.5 ~= 0.673.
	edges := []EdgeContribution{
		{Relation: "supports", Confidence: 0.9},
		{Relation: "supports", Confidence: 0.9},
		{Relation: "supports", Confidence: 0.9},
		{Relation: "refutes", Confidence: 0.8},
	}
	got := BayesianTruthConfidence(edges)
	assert.InDelta(t, 3.7/5.5, got, 0.0001)

	controversy := Controversy(edges)
	assert.InDelta(t, 0.25, controversy, 0.0001)
}

func TestNeutralEdgesDoNotMoveThePosterior(t *testing.T) {
	withNeutral := BayesianTruthConfidence([]EdgeContribution{
		{Relation: "supports", Confidence: 0.9},
		{Relation: "neutral", Confidence: 0.5},
	})
	withoutNeutral := BayesianTruthConfidence([]EdgeContribution{
		{Relation: "supports", Confidence: 0.9},
	})
	assert.InDelta(t, withoutNeutral, withNeutral, 0.0001)
}

func TestTruthConfidenceAlwaysInUnitInterval(t *testing.T) {
	edges := []EdgeContribution{
		{Relation: "supports", Confidence: 1.0},
		{Relation: "refutes", Confidence: 1.0},
	}
	got := BayesianTruthConfidence(edges)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}
