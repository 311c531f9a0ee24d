package embedding

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVectorRoundTrips(t *testing.T) {
	original := []float32{0.1, -0.2, 3.5, 0}
	decoded := DecodeVector(EncodeVector(original))
	require.Len(t, decoded, len(original))
	for i := range original {
		assert.InDelta(t, original[i], decoded[i], 0.0001)
	}
}

func TestNearestOrdersByCosineDescending(t *testing.T) {
	idA := uuid.New()
	idB := uuid.New()
	idC := uuid.New()

	query := []float32{1, 0}
	candidates := map[uuid.UUID][]byte{
		idA: EncodeVector([]float32{1, 0}),    // identical: cosine 1
		idB: EncodeVector([]float32{0, 1}),    // orthogonal: cosine 0
		idC: EncodeVector([]float32{0.7, 0.7}), // cosine ~0.707
	}

	results, err := Nearest(query, candidates, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, idA, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Cosine, 0.0001)
	assert.Equal(t, idC, results[1].ID)
}

func TestNearestRejectsEmptyQuery(t *testing.T) {
	_, err := Nearest(nil, map[uuid.UUID][]byte{}, 5)
	assert.Error(t, err)
}
