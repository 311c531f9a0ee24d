// Package ranking selects which fragments matter for a query or claim
// through three monotonically narrowing stages: BM25 full text, embedding
// rescore, and remote cross-encoder rerank.
package ranking

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/embedding"
	"github.com/openveritas/veritas/pkg/rpc"
	"github.com/openveritas/veritas/pkg/store"
)

// DomainCategory is the source-authority bucket used as a ranking
// multiplier. It is never mixed into truth confidence.
type DomainCategory string

const (
	CategoryPrimary    DomainCategory = "PRIMARY"
	CategoryGovernment DomainCategory = "GOVERNMENT"
	CategoryAcademic   DomainCategory = "ACADEMIC"
	CategoryTrusted    DomainCategory = "TRUSTED"
	CategoryLow        DomainCategory = "LOW"
	CategoryUnverified DomainCategory = "UNVERIFIED"
	CategoryBlocked    DomainCategory = "BLOCKED"
)

// defaultCategoryWeight is the built-in ranking multiplier per category,
// overridable via config.RankingConfig.DomainWeights keyed by category
// string. BLOCKED sources are excluded entirely, never weighted.
var defaultCategoryWeight = map[DomainCategory]float64{
	CategoryPrimary:    1.0,
	CategoryGovernment: 0.9,
	CategoryAcademic:   0.85,
	CategoryTrusted:    0.7,
	CategoryLow:        0.4,
	CategoryUnverified: 0.2,
}

// Engine runs the three-stage ranking pipeline over a store's fragment
// corpus for a task.
type Engine struct {
	store *store.Store
	model *rpc.ModelClient
	cfg   *config.RankingConfig
}

// New builds a ranking Engine.
func New(s *store.Store, model *rpc.ModelClient, cfg *config.RankingConfig) *Engine {
	return &Engine{store: s, model: model, cfg: cfg}
}

// Scored is a fragment candidate carrying its score at the current stage.
type Scored struct {
	FragmentID uuid.UUID
	PageID     uuid.UUID
	Text       string
	Domain     string
	Score      float64
}

// BM25Stage queries the store's GIN/tsvector index for the top K1 fragments
// matching queryText within a task, using ts_rank_cd as the concrete scoring
// function behind the spec's "BM25 stage".
func (e *Engine) BM25Stage(ctx context.Context, taskID uuid.UUID, queryText string) ([]Scored, error) {
	k1 := e.cfg.BM25Candidates
	if k1 <= 0 {
		k1 = 200
	}
	rows, err := e.store.Pool().Query(ctx, `
		SELECT f.id, f.page_id, f.text, p.domain,
			ts_rank_cd(to_tsvector('english', f.text), plainto_tsquery('english', $2)) AS rank
		FROM fragments f
		JOIN pages p ON p.id = f.page_id
		WHERE p.task_id = $1
			AND to_tsvector('english', f.text) @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC, f.page_id
		LIMIT $3`, taskID, queryText, k1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Scored
	for rows.Next() {
		var s Scored
		if err := rows.Scan(&s.FragmentID, &s.PageID, &s.Text, &s.Domain, &s.Score); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// EmbeddingStage rescores a BM25 shortlist by cosine similarity against the
// query embedding, keeping the top K2. Ties break on page_id lexicographic
// order.
func (e *Engine) EmbeddingStage(ctx context.Context, queryVector []float32, shortlist []Scored) ([]Scored, error) {
	k2 := e.cfg.EmbeddingCandidates
	if k2 <= 0 {
		k2 = 50
	}

	candidates := make(map[uuid.UUID][]byte, len(shortlist))
	byID := make(map[uuid.UUID]Scored, len(shortlist))
	for _, s := range shortlist {
		frag, err := e.store.GetFragment(ctx, s.FragmentID)
		if err != nil {
			return nil, err
		}
		candidates[s.FragmentID] = frag.Embedding
		byID[s.FragmentID] = s
	}

	near, err := embedding.Nearest(queryVector, candidates, 0)
	if err != nil {
		return nil, err
	}

	out := make([]Scored, len(near))
	for i, n := range near {
		s := byID[n.ID]
		s.Score = n.Cosine
		out[i] = s
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PageID.String() < out[j].PageID.String()
	})
	if len(out) > k2 {
		out = out[:k2]
	}
	return out, nil
}

// RerankStage passes (query, fragment) pairs through the remote
// cross-encoder, keeping the top K3 and blending with domain-category
// weight for the final score. Ties break on page_id lexicographic order.
func (e *Engine) RerankStage(ctx context.Context, queryText string, shortlist []Scored, categoryOf func(domain string) DomainCategory) ([]Scored, error) {
	k3 := e.cfg.RerankCandidates
	if k3 <= 0 {
		k3 = 20
	}

	pairs := make([]rpc.RerankPair, len(shortlist))
	for i, s := range shortlist {
		pairs[i] = rpc.RerankPair{FragmentID: s.FragmentID.String(), Query: queryText, Text: s.Text}
	}
	scores, err := e.model.Rerank(ctx, pairs)
	if err != nil {
		return nil, err
	}

	out := make([]Scored, 0, len(shortlist))
	for i, s := range shortlist {
		category := CategoryUnverified
		if categoryOf != nil {
			category = categoryOf(s.Domain)
		}
		if category == CategoryBlocked {
			continue
		}
		weight := e.weightFor(category)
		rerankScore := 0.0
		if i < len(scores) {
			rerankScore = scores[i]
		}
		s.Score = rerankScore * weight
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PageID.String() < out[j].PageID.String()
	})
	if len(out) > k3 {
		out = out[:k3]
	}
	return out, nil
}

func (e *Engine) weightFor(category DomainCategory) float64 {
	if e.cfg != nil && e.cfg.DomainWeights != nil {
		if w, ok := e.cfg.DomainWeights[string(category)]; ok {
			return w
		}
	}
	if w, ok := defaultCategoryWeight[category]; ok {
		return w
	}
	return defaultCategoryWeight[CategoryUnverified]
}

// BlendCitationScore blends embedding similarity, citation-impact, and LLM
// usefulness scores for citation-expansion filtering, using the configured
// (or default 0.5/0.3/0.2) weights.
func BlendCitationScore(cfg *config.RankingConfig, embeddingScore, impactScore, llmUsefulness float64) float64 {
	w := [3]float64{0.5, 0.3, 0.2}
	if cfg != nil && cfg.CitationWeights != [3]float64{} {
		w = cfg.CitationWeights
	}
	return w[0]*embeddingScore + w[1]*impactScore + w[2]*llmUsefulness
}
