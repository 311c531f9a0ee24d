package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ClaimEvidenceSummary is a row of the claim_evidence_summary view: the
// read-time Bayesian truth confidence for a claim plus domain diversity.
type ClaimEvidenceSummary struct {
	ClaimID           uuid.UUID
	TaskID            uuid.UUID
	TruthConfidence   float64
	SupportsMass      float64
	RefutesMass       float64
	SupportingDomains int
	RefutingDomains   int
}

// ClaimEvidenceSummary fetches the aggregated evidence summary for a claim.
func (s *Store) ClaimEvidenceSummary(ctx context.Context, claimID uuid.UUID) (*ClaimEvidenceSummary, error) {
	var r ClaimEvidenceSummary
	err := s.pool.QueryRow(ctx, `
		SELECT claim_id, task_id, truth_confidence, supports_mass, refutes_mass,
			supporting_domains, refuting_domains
		FROM claim_evidence_summary WHERE claim_id = $1`, claimID).Scan(
		&r.ClaimID, &r.TaskID, &r.TruthConfidence, &r.SupportsMass, &r.RefutesMass,
		&r.SupportingDomains, &r.RefutingDomains)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Contradictions lists claims with both supporting and refuting evidence for
// a task.
func (s *Store) Contradictions(ctx context.Context, taskID uuid.UUID) ([]ClaimEvidenceSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT claim_id, task_id, truth_confidence, supports_mass, refutes_mass, 0, 0
		FROM contradictions WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClaimEvidenceSummary
	for rows.Next() {
		var r ClaimEvidenceSummary
		if err := rows.Scan(&r.ClaimID, &r.TaskID, &r.TruthConfidence, &r.SupportsMass, &r.RefutesMass,
			&r.SupportingDomains, &r.RefutingDomains); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClaimOrigin is a row of the claim_origins view: the provenance fragment
// and page a claim was extracted from.
type ClaimOrigin struct {
	ClaimID    uuid.UUID
	FragmentID uuid.UUID
	PageID     uuid.UUID
	URL        string
	Domain     string
}

// ClaimOrigins lists the origin provenance for a claim: one row per origin
// edge, so a claim extracted from N fragments has N rows (at least one when
// it was written through InsertClaimWithOrigin).
func (s *Store) ClaimOrigins(ctx context.Context, claimID uuid.UUID) ([]ClaimOrigin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT claim_id, fragment_id, page_id, url, domain
		FROM claim_origins WHERE claim_id = $1`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClaimOrigin
	for rows.Next() {
		var o ClaimOrigin
		if err := rows.Scan(&o.ClaimID, &o.FragmentID, &o.PageID, &o.URL, &o.Domain); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// EvidenceChainLink is a row of the evidence_chain view: every edge
// touching a claim, with fragment text and page attribution inlined.
type EvidenceChainLink struct {
	ClaimID      uuid.UUID
	Relation     EdgeRelation
	Confidence   *float64
	FragmentID   uuid.UUID
	FragmentText string
	PageID       uuid.UUID
	URL          string
	Domain       string
}

// EvidenceChain lists the full evidence chain for a claim.
func (s *Store) EvidenceChain(ctx context.Context, claimID uuid.UUID) ([]EvidenceChainLink, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT claim_id, relation, confidence, fragment_id, fragment_text, page_id, url, domain
		FROM evidence_chain WHERE claim_id = $1`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvidenceChainLink
	for rows.Next() {
		var l EvidenceChainLink
		if err := rows.Scan(&l.ClaimID, &l.Relation, &l.Confidence, &l.FragmentID, &l.FragmentText,
			&l.PageID, &l.URL, &l.Domain); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// HubPage is a row of the hub_pages view: a page ranked by how many
// distinct claims it has touched.
type HubPage struct {
	PageID                 uuid.UUID
	URL                    string
	Domain                 string
	DistinctClaimsTouched  int
}

// HubPages lists pages ordered by evidence reach, for a task's pages.
func (s *Store) HubPages(ctx context.Context, taskID uuid.UUID, limit int) ([]HubPage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT h.page_id, h.url, h.domain, h.distinct_claims_touched
		FROM hub_pages h
		JOIN pages p ON p.id = h.page_id
		WHERE p.task_id = $1
		ORDER BY h.distinct_claims_touched DESC
		LIMIT $2`, taskID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HubPage
	for rows.Next() {
		var h HubPage
		if err := rows.Scan(&h.PageID, &h.URL, &h.Domain, &h.DistinctClaimsTouched); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// OrphanSource is a row of the orphan_sources view: a fetched page with no
// fragments that ever entered the evidence graph.
type OrphanSource struct {
	PageID uuid.UUID
	URL    string
	Domain string
	TaskID uuid.UUID
}

// OrphanSources lists fetched pages for a task that contributed no edges.
func (s *Store) OrphanSources(ctx context.Context, taskID uuid.UUID) ([]OrphanSource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT page_id, url, domain, task_id FROM orphan_sources WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrphanSource
	for rows.Next() {
		var o OrphanSource
		if err := rows.Scan(&o.PageID, &o.URL, &o.Domain, &o.TaskID); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// EvidenceFreshness is a row of the evidence_freshness view: the earliest
// and latest evidence timestamps backing a claim.
type EvidenceFreshness struct {
	ClaimID         uuid.UUID
	TaskID          uuid.UUID
	EarliestEvidence time.Time
	LatestEvidence   time.Time
}

// EvidenceFreshness fetches the evidence age span for a claim.
func (s *Store) EvidenceFreshness(ctx context.Context, claimID uuid.UUID) (*EvidenceFreshness, error) {
	var f EvidenceFreshness
	err := s.pool.QueryRow(ctx, `
		SELECT claim_id, task_id, earliest_evidence, latest_evidence
		FROM evidence_freshness WHERE claim_id = $1`, claimID).Scan(
		&f.ClaimID, &f.TaskID, &f.EarliestEvidence, &f.LatestEvidence)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// EmergingConsensus lists claims crossing the high-confidence,
// low-evidence-volume threshold for a task (the emerging_consensus view).
func (s *Store) EmergingConsensus(ctx context.Context, taskID uuid.UUID) ([]ClaimEvidenceSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT claim_id, task_id, truth_confidence, supports_mass, refutes_mass, 0, 0
		FROM emerging_consensus WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClaimEvidenceSummary
	for rows.Next() {
		var r ClaimEvidenceSummary
		if err := rows.Scan(&r.ClaimID, &r.TaskID, &r.TruthConfidence, &r.SupportsMass, &r.RefutesMass,
			&r.SupportingDomains, &r.RefutingDomains); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
