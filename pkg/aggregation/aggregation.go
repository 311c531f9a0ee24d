// Package aggregation holds the pure evidence-graph aggregation functions
// that the v_claim_truth_confidence and related SQL views apply read-time.
// Kept in Go as well so the formula has a single tested source of truth
// that the views are checked against, and so callers that already have an
// edge set in memory (the orchestrator's novelty check) don't need a round
// trip to the database to recompute it.
package aggregation

// EdgeContribution is the minimal shape aggregation needs from an edge: its
// relation and calibrated confidence.
type EdgeContribution struct {
	Relation   string // "supports" | "refutes" | "neutral"
	Confidence float64
}

// BayesianTruthConfidence computes the posterior mean of a Beta(1,1) prior
// where each supporting edge contributes its calibrated confidence as a
// positive pseudo-count and each refuting edge as a negative pseudo-count.
// Neutral edges do not move the posterior.
func BayesianTruthConfidence(edges []EdgeContribution) float64 {
	var supports, refutes float64
	for _, e := range edges {
		switch e.Relation {
		case "supports":
			supports += e.Confidence
		case "refutes":
			refutes += e.Confidence
		}
	}
	return (1 + supports) / (2 + supports + refutes)
}

// Controversy is min(support_count, refute_count) / max(1, evidence_count).
func Controversy(edges []EdgeContribution) float64 {
	var supportCount, refuteCount, evidenceCount int
	for _, e := range edges {
		switch e.Relation {
		case "supports":
			supportCount++
			evidenceCount++
		case "refutes":
			refuteCount++
			evidenceCount++
		case "neutral":
			evidenceCount++
		}
	}
	minCount := supportCount
	if refuteCount < minCount {
		minCount = refuteCount
	}
	denom := evidenceCount
	if denom < 1 {
		denom = 1
	}
	return float64(minCount) / float64(denom)
}
