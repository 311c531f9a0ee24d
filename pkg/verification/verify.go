// Package verification batches (fragment, claim) pairs to the remote NLI
// endpoint, calibrates the raw entailment probability, and writes the
// resulting supports/refutes/neutral edges. It also tracks calibration
// quality (Brier score, Expected Calibration Error) and gates a rollback
// when quality degrades.
package verification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/aggregation"
	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/rpc"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verrors"
)

// controversyLogThreshold is the in-memory Controversy() score above which
// a just-verified claim is logged as contested. The read-time SQL view
// remains the source of truth callers query; this is an early operator
// signal computed on the edge set already in hand, without a round trip.
const controversyLogThreshold = 0.5

// Pair is one (premise fragment, hypothesis claim) unit of NLI work.
type Pair struct {
	FragmentID uuid.UUID
	Premise    string
	ClaimID    uuid.UUID
	Hypothesis string
}

// Verifier runs NLI batches and writes calibrated edges.
type Verifier struct {
	store *store.Store
	model *rpc.ModelClient
	cfg   *config.CalibrationConfig
}

// New builds a Verifier.
func New(s *store.Store, model *rpc.ModelClient, cfg *config.CalibrationConfig) *Verifier {
	return &Verifier{store: s, model: model, cfg: cfg}
}

// VerifyBatch calls the remote NLI endpoint for pairs, calibrates each raw
// probability against the currently active calibration version, and
// writes the resulting edge. The store's uniqueness index on
// (fragment, claim, relation) makes re-submission of an already-verified
// pair a no-op rather than a duplicate.
func (v *Verifier) VerifyBatch(ctx context.Context, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	active, err := v.store.ActiveCalibration(ctx)
	if err != nil {
		return verrors.Wrap(verrors.Fatal, "verification: load active calibration", err)
	}

	rpcPairs := make([]rpc.NLIPair, len(pairs))
	for i, p := range pairs {
		rpcPairs[i] = rpc.NLIPair{
			FragmentID: p.FragmentID.String(), Premise: p.Premise,
			ClaimID: p.ClaimID.String(), Hypothesis: p.Hypothesis,
		}
	}

	results, err := v.model.NLIBatch(ctx, rpcPairs)
	if err != nil {
		return verrors.Wrap(verrors.Transient, "verification: nli batch call", err)
	}
	if len(results) != len(pairs) {
		return verrors.Newf(verrors.ExtractionError, "verification: nli batch returned %d results for %d pairs", len(results), len(pairs))
	}

	var version *int
	if active != nil {
		version = &active.Version
	}

	for i, p := range pairs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relation := relationFor(results[i].Label)
		if relation == "" {
			continue
		}
		calibrated := Calibrate(results[i].Probability, active)
		if _, _, err := v.store.InsertEdge(ctx, p.FragmentID, p.ClaimID, relation, &calibrated, version); err != nil {
			return verrors.Wrap(verrors.Fatal, "verification: insert edge", err)
		}
		v.logIfContested(ctx, p.ClaimID)
	}
	return nil
}

// logIfContested recomputes Controversy over a claim's full edge set in
// memory and logs when the new edge pushed it above the threshold. Errors
// reading the edge set are swallowed — this is a best-effort signal, not a
// correctness path.
func (v *Verifier) logIfContested(ctx context.Context, claimID uuid.UUID) {
	edges, err := v.store.EdgesForClaim(ctx, claimID)
	if err != nil {
		return
	}
	contributions := make([]aggregation.EdgeContribution, 0, len(edges))
	for _, e := range edges {
		if e.Confidence == nil {
			continue
		}
		contributions = append(contributions, aggregation.EdgeContribution{
			Relation: string(e.Relation), Confidence: *e.Confidence,
		})
	}
	if c := aggregation.Controversy(contributions); c >= controversyLogThreshold {
		slog.Info("verification: claim is contested",
			"claim_id", claimID, "controversy", c,
			"truth_confidence", aggregation.BayesianTruthConfidence(contributions))
	}
}

func relationFor(label rpc.NLILabel) store.EdgeRelation {
	switch label {
	case rpc.NLIEntailment:
		return store.RelationSupports
	case rpc.NLIContradiction:
		return store.RelationRefutes
	case rpc.NLINeutral:
		return store.RelationNeutral
	default:
		return ""
	}
}

// CheckDegradationAndMaybeRollback evaluates the current window against
// the previous calibration version's recorded Brier score and, if
// RollbackOnDegradation is set and degradation crosses the configured
// threshold, reactivates the previous version atomically.
func (v *Verifier) CheckDegradationAndMaybeRollback(ctx context.Context, previousVersion int, samples []EvalSample) (degraded bool, err error) {
	previous, err := v.previousParams(ctx, previousVersion)
	if err != nil {
		return false, err
	}
	if previous == nil || previous.BrierScore == nil {
		return false, nil
	}

	current := BrierScore(samples)
	threshold := v.cfg.DegradationThreshold
	if threshold <= 0 {
		threshold = 0.05
	}
	minSamples := v.cfg.MinSampleSize
	if minSamples <= 0 {
		minSamples = 200
	}

	degraded = DegradationDetected(*previous.BrierScore, current, len(samples), minSamples, threshold)
	if degraded && v.cfg.RollbackOnDegradation {
		if err := v.store.ActivateCalibrationVersion(ctx, previousVersion); err != nil {
			return degraded, verrors.Wrap(verrors.Fatal, "verification: rollback calibration version", err)
		}
	}
	return degraded, nil
}

func (v *Verifier) previousParams(ctx context.Context, version int) (*store.CalibrationParams, error) {
	return v.store.GetCalibrationVersion(ctx, version)
}
