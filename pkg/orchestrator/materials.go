package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/store"
)

// Material is one claim in a get_materials response: its text, the
// read-time Bayesian truth confidence computed from its supporting/refuting
// edges, and the full evidence chain backing that confidence.
type Material struct {
	Claim      store.Claim               `json:"claim"`
	Summary    *store.ClaimEvidenceSummary `json:"summary,omitempty"`
	Origins    []store.ClaimOrigin       `json:"origins"`
	Evidence   []store.EvidenceChainLink `json:"evidence"`
}

// GetMaterials assembles the evidence graph for every surviving claim in a
// task: truth confidence, provenance, and the supporting/refuting chain
// behind it. llm_claim_confidence_raw travels inside Claim but is never
// folded into Summary.TruthConfidence — that value comes only from the
// read-time view over calibrated edges.
func (o *Orchestrator) GetMaterials(ctx context.Context, taskID uuid.UUID) ([]Material, error) {
	claims, err := o.store.ListClaimsForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	materials := make([]Material, 0, len(claims))
	for _, claim := range claims {
		summary, err := o.store.ClaimEvidenceSummary(ctx, claim.ID)
		if err != nil {
			summary = nil
		}
		origins, err := o.store.ClaimOrigins(ctx, claim.ID)
		if err != nil {
			return nil, err
		}
		evidence, err := o.store.EvidenceChain(ctx, claim.ID)
		if err != nil {
			return nil, err
		}
		materials = append(materials, Material{
			Claim: claim, Summary: summary, Origins: origins, Evidence: evidence,
		})
	}
	return materials, nil
}

// GetContradictions surfaces claims with both supporting and refuting
// evidence for a task, per the evidence graph's contradiction view.
func (o *Orchestrator) GetContradictions(ctx context.Context, taskID uuid.UUID) ([]store.ClaimEvidenceSummary, error) {
	return o.store.Contradictions(ctx, taskID)
}

// GetHubPages lists a task's pages ranked by how many distinct claims they
// touched, surfacing the most evidentially productive sources.
func (o *Orchestrator) GetHubPages(ctx context.Context, taskID uuid.UUID, limit int) ([]store.HubPage, error) {
	return o.store.HubPages(ctx, taskID, limit)
}

// GetOrphanSources lists fetched pages that contributed no edges to the
// evidence graph, useful for spotting wasted fetch budget.
func (o *Orchestrator) GetOrphanSources(ctx context.Context, taskID uuid.UUID) ([]store.OrphanSource, error) {
	return o.store.OrphanSources(ctx, taskID)
}
