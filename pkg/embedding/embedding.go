// Package embedding maps fragments and claims to dense vectors, stored
// alongside the owning row for atomic (target, vector) updates, and
// provides cosine-similarity nearest-neighbour search over them.
package embedding

import (
	"context"
	"encoding/binary"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/rpc"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verrors"
)

// TargetType distinguishes which table an embedding belongs to.
type TargetType string

const (
	TargetFragment TargetType = "fragment"
	TargetClaim    TargetType = "claim"
)

// Index embeds fragment/claim text and stores the result, and scans stored
// vectors for nearest neighbours. A single process's corpus size is assumed
// small enough for a linear scan per §4.2; the interface below is narrow
// enough that an approximate index could replace the scan without touching
// callers.
type Index struct {
	store   *store.Store
	model   *rpc.ModelClient
	modelID string
}

// New builds an Index over the given store and model-runtime client.
func New(s *store.Store, model *rpc.ModelClient, modelID string) *Index {
	return &Index{store: s, model: model, modelID: modelID}
}

// EncodeVector serializes a float32 slice as little-endian bytes for the
// bytea embedding columns.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector parses a little-endian float32 slice from bytea bytes.
func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// EmbedAndStoreFragment is idempotent on (fragment, model): it always
// recomputes and overwrites, since the store keeps only the latest vector
// per target per §5's last-writer-wins rule.
func (idx *Index) EmbedAndStoreFragment(ctx context.Context, fragmentID uuid.UUID, text string) error {
	vec, err := idx.model.Embed(ctx, idx.modelID, text)
	if err != nil {
		return err
	}
	return idx.store.StoreFragmentEmbedding(ctx, fragmentID, EncodeVector(vec))
}

// EmbedAndStoreClaim is the claim-row analogue of EmbedAndStoreFragment.
func (idx *Index) EmbedAndStoreClaim(ctx context.Context, claimID uuid.UUID, text string) error {
	vec, err := idx.model.Embed(ctx, idx.modelID, text)
	if err != nil {
		return err
	}
	return idx.store.StoreClaimEmbedding(ctx, claimID, EncodeVector(vec))
}

// Candidate is one scored row in a nearest-neighbour result.
type Candidate struct {
	ID     uuid.UUID
	Cosine float64
}

// Nearest computes cosine similarity between queryVector and every provided
// candidate's stored embedding, returning the top k descending by score.
// Callers (the ranking engine) supply the candidate pool already narrowed by
// an earlier stage — this never scans the whole corpus itself.
func Nearest(queryVector []float32, candidates map[uuid.UUID][]byte, k int) ([]Candidate, error) {
	if len(queryVector) == 0 {
		return nil, verrors.New(verrors.InvalidInput, "embedding: empty query vector")
	}
	scored := make([]Candidate, 0, len(candidates))
	for id, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		vec := DecodeVector(raw)
		scored = append(scored, Candidate{ID: id, Cosine: cosine(queryVector, vec)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Cosine != scored[j].Cosine {
			return scored[i].Cosine > scored[j].Cosine
		}
		return scored[i].ID.String() < scored[j].ID.String()
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func cosine(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
