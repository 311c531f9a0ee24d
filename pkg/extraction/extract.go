// Package extraction turns a fetched page into fragments and, via the
// remote LLM, claims with provenance edges back to the passages they were
// lifted from.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/embedding"
	"github.com/openveritas/veritas/pkg/ranking"
	"github.com/openveritas/veritas/pkg/rpc"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verrors"
)

// extractedClaimJSON mirrors the JSON object the extraction LLM returns
// per claim: {claim_text, llm_claim_confidence, polarity, granularity,
// origin_passage_indices}.
type extractedClaimJSON struct {
	ClaimText             string   `json:"claim_text"`
	LLMClaimConfidence    float64  `json:"llm_claim_confidence"`
	Polarity              string   `json:"polarity"`
	Granularity           string   `json:"granularity"`
	OriginPassageIndices  []int    `json:"origin_passage_indices"`
}

// extractionResponse is the top-level shape the LLM is asked to emit.
type extractionResponse struct {
	Claims []extractedClaimJSON `json:"claims"`
}

var extractionSchema = mustResolveSchema()

func mustResolveSchema() *jsonschema.Resolved {
	schema, err := jsonschema.For[extractionResponse](nil)
	if err != nil {
		panic(fmt.Sprintf("extraction: failed to build extraction response schema: %v", err))
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("extraction: failed to resolve extraction response schema: %v", err))
	}
	return resolved
}

// Engine runs the page-to-claims pipeline: segment, persist, rank,
// extract, embed, enqueue verification.
type Engine struct {
	store     *store.Store
	ranking   *ranking.Engine
	embedding *embedding.Index
	model     *rpc.ModelClient
	sanitizer *Sanitizer
	cfg       *config.ExtractionConfig
}

// New builds an extraction Engine.
func New(s *store.Store, rankEngine *ranking.Engine, embedIndex *embedding.Index, model *rpc.ModelClient, sanitizer *Sanitizer, cfg *config.ExtractionConfig) *Engine {
	return &Engine{store: s, ranking: rankEngine, embedding: embedIndex, model: model, sanitizer: sanitizer, cfg: cfg}
}

// categoryOf resolves a domain's source-authority bucket for ranking's
// rerank-stage weighting. RerankStage's callback signature carries no
// context or error return, so a lookup failure degrades to UNVERIFIED
// rather than aborting extraction over a ranking-multiplier lookup.
func (e *Engine) categoryOf(domain string) ranking.DomainCategory {
	category, err := e.store.DomainCategory(context.Background(), domain)
	if err != nil {
		return ranking.CategoryUnverified
	}
	return ranking.DomainCategory(category)
}

// ExtractPage runs the full pipeline for one fetched page against a task's
// hypothesis query text, returning the ids of newly accepted claims.
func (e *Engine) ExtractPage(ctx context.Context, taskID uuid.UUID, page *store.Page, pageText, hypothesis string) ([]uuid.UUID, error) {
	fragments := Segment(pageText)
	if len(fragments) == 0 {
		return nil, nil
	}

	fragmentIDs, err := e.store.InsertFragments(ctx, page.ID, fragments)
	if err != nil {
		return nil, verrors.Wrap(verrors.Fatal, "extraction: persist fragments", err)
	}

	shortlist, err := e.ranking.BM25Stage(ctx, taskID, hypothesis)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "extraction: bm25 stage", err)
	}
	if len(shortlist) == 0 {
		return nil, nil
	}

	queryVec, err := e.model.Embed(ctx, "default", hypothesis)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "extraction: embed hypothesis", err)
	}
	narrowed, err := e.ranking.EmbeddingStage(ctx, queryVec, shortlist)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "extraction: embedding stage", err)
	}

	selected, err := e.ranking.RerankStage(ctx, hypothesis, narrowed, e.categoryOf)
	if err != nil {
		return nil, verrors.Wrap(verrors.Transient, "extraction: rerank stage", err)
	}

	maxPassages := e.cfg.MaxPassages
	if maxPassages <= 0 {
		maxPassages = 20
	}
	if len(selected) > maxPassages {
		selected = selected[:maxPassages]
	}

	resp, err := e.extractWithRetry(ctx, page.ID, hypothesis, selected)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	var claimIDs []uuid.UUID
	for _, c := range resp.Claims {
		originIDs := resolveOriginFragments(c.OriginPassageIndices, selected)
		if len(originIDs) == 0 {
			slog.Warn("extraction: dropping claim with no resolvable origin passage", "claim_text", c.ClaimText)
			continue
		}
		claim := store.ExtractedClaim{
			Text:          c.ClaimText,
			Polarity:      store.ClaimPolarity(c.Polarity),
			Granularity:   store.ClaimGranularity(c.Granularity),
			RawConfidence: c.LLMClaimConfidence,
		}
		claimID, err := e.store.InsertClaimWithOrigin(ctx, taskID, claim, originIDs)
		if err != nil {
			return claimIDs, verrors.Wrap(verrors.Fatal, "extraction: insert claim", err)
		}
		if err := e.embedding.EmbedAndStoreClaim(ctx, claimID, c.ClaimText); err != nil {
			return claimIDs, verrors.Wrap(verrors.Transient, "extraction: embed claim", err)
		}
		claimIDs = append(claimIDs, claimID)
	}

	for _, fragID := range fragmentIDs {
		frag, err := e.store.GetFragment(ctx, fragID)
		if err != nil {
			continue
		}
		if err := e.embedding.EmbedAndStoreFragment(ctx, fragID, frag.Text); err != nil {
			return claimIDs, verrors.Wrap(verrors.Transient, "extraction: embed fragment", err)
		}
	}

	if err := e.enqueueVerificationJobs(ctx, taskID, claimIDs, selected); err != nil {
		return claimIDs, err
	}

	return claimIDs, nil
}

// resolveOriginFragments maps the LLM's 1-based passage indices (as
// presented in the prompt) back to the fragment ids of the selected
// passage set.
func resolveOriginFragments(indices []int, selected []ranking.Scored) []uuid.UUID {
	var ids []uuid.UUID
	for _, i := range indices {
		if i < 1 || i > len(selected) {
			continue
		}
		ids = append(ids, selected[i-1].FragmentID)
	}
	return ids
}

// extractWithRetry calls the extraction LLM, validating its output against
// the extraction schema and the sanitizer's leak/URL checks, retrying with
// exponential backoff (RetryBackoff, doubled after each failed attempt) for
// up to MaxRetries attempts. Every failed attempt records an
// extraction_errors row; after the last one the page is given up on.
func (e *Engine) extractWithRetry(ctx context.Context, pageID uuid.UUID, hypothesis string, passages []ranking.Scored) (*extractionResponse, error) {
	maxRetries := e.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := e.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	maxTokens := e.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	prompt := buildExtractionPrompt(e.sanitizer, pageID.String(), hypothesis, passages)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		raw, err := e.model.LLMGenerate(ctx, prompt, maxTokens)
		if err != nil {
			lastErr = err
			e.recordExtractionError(ctx, pageID, "llm_generate", err, attempt)
			sleepBackoff(ctx, backoff<<(attempt-1))
			continue
		}

		if err := e.sanitizer.ValidateOutput(raw); err != nil {
			lastErr = err
			e.recordExtractionError(ctx, pageID, "output_validation", err, attempt)
			sleepBackoff(ctx, backoff<<(attempt-1))
			continue
		}

		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			lastErr = err
			e.recordExtractionError(ctx, pageID, "json_decode", err, attempt)
			sleepBackoff(ctx, backoff<<(attempt-1))
			continue
		}
		if err := extractionSchema.Validate(decoded); err != nil {
			lastErr = err
			e.recordExtractionError(ctx, pageID, "schema_validation", err, attempt)
			sleepBackoff(ctx, backoff<<(attempt-1))
			continue
		}

		var resp extractionResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			lastErr = err
			e.recordExtractionError(ctx, pageID, "json_decode", err, attempt)
			sleepBackoff(ctx, backoff<<(attempt-1))
			continue
		}
		return &resp, nil
	}

	return nil, verrors.Wrapf(verrors.ExtractionError, lastErr, "extraction: page %s exhausted %d attempts", pageID, maxRetries)
}

func sleepBackoff(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (e *Engine) recordExtractionError(ctx context.Context, pageID uuid.UUID, stage string, err error, attempt int) {
	_, _ = e.store.InsertExtractionError(ctx, pageID, stage, string(verrors.KindOf(err)), err.Error(), attempt)
}

// enqueueVerificationJobs enqueues one NLI verification job per
// claim x candidate-fragment pair, covering every claim against every
// retrieved passage per the extraction engine's contract.
func (e *Engine) enqueueVerificationJobs(ctx context.Context, taskID uuid.UUID, claimIDs []uuid.UUID, passages []ranking.Scored) error {
	if len(claimIDs) == 0 || len(passages) == 0 {
		return nil
	}
	for _, claimID := range claimIDs {
		for _, p := range passages {
			payload, err := json.Marshal(map[string]string{
				"claim_id":    claimID.String(),
				"fragment_id": p.FragmentID.String(),
			})
			if err != nil {
				return verrors.Wrap(verrors.Fatal, "extraction: marshal nli job payload", err)
			}
			if _, err := e.store.EnqueueJob(ctx, taskID, store.JobLLMFast, store.SlotCPUNLP, nil, payload); err != nil {
				return verrors.Wrap(verrors.Fatal, "extraction: enqueue nli job", err)
			}
		}
	}
	return nil
}
