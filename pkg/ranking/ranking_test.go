package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openveritas/veritas/pkg/config"
)

func TestBlendCitationScoreUsesDefaultWeights(t *testing.T) {
	got := BlendCitationScore(nil, 1.0, 1.0, 1.0)
	assert.InDelta(t, 1.0, got, 0.0001)

	got = BlendCitationScore(nil, 1.0, 0.0, 0.0)
	assert.InDelta(t, 0.5, got, 0.0001)
}

func TestBlendCitationScoreUsesConfiguredWeights(t *testing.T) {
	cfg := &config.RankingConfig{CitationWeights: [3]float64{0.2, 0.2, 0.6}}
	got := BlendCitationScore(cfg, 0, 0, 1.0)
	assert.InDelta(t, 0.6, got, 0.0001)
}

func TestWeightForExcludesBlockedViaRerankStageNotWeightFor(t *testing.T) {
	e := &Engine{cfg: &config.RankingConfig{}}
	assert.InDelta(t, 1.0, e.weightFor(CategoryPrimary), 0.0001)
	assert.InDelta(t, 0.2, e.weightFor(CategoryUnverified), 0.0001)
	// BLOCKED has no weight of its own: weightFor falls back to UNVERIFIED,
	// and RerankStage is what drops blocked domains.
	assert.InDelta(t, 0.2, e.weightFor(CategoryBlocked), 0.0001)
}

func TestWeightForPrefersConfiguredOverride(t *testing.T) {
	e := &Engine{cfg: &config.RankingConfig{DomainWeights: map[string]float64{"PRIMARY": 2.0}}}
	assert.InDelta(t, 2.0, e.weightFor(CategoryPrimary), 0.0001)
}
