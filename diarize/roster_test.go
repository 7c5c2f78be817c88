package diarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingManagerOpensNewSpeakersBelowCapacity(t *testing.T) {
	m := NewEmbeddingManager(0)

	a := m.Assign([]float32{1, 0, 0}, 0.2)
	b := m.Assign([]float32{0, 1, 0}, 0.2)
	aAgain := m.Assign([]float32{0.99, 0.01, 0}, 0.2)

	assert.Equal(t, "0", a)
	assert.Equal(t, "1", b)
	assert.Equal(t, a, aAgain, "a near-identical embedding should match the existing speaker")
}

func TestEmbeddingManagerCapacityForcesBestMatch(t *testing.T) {
	m := NewEmbeddingManager(1)

	first := m.Assign([]float32{1, 0, 0}, 0.01)
	second := m.Assign([]float32{0, 1, 0}, 0.01)

	assert.Equal(t, "0", first)
	assert.Equal(t, first, second, "roster at capacity must force best_match, never open a new speaker")
}

func TestEmbeddingManagerEmptyEmbeddingIsUnknown(t *testing.T) {
	m := NewEmbeddingManager(0)
	assert.Equal(t, unknownSpeaker, m.Assign(nil, 0.5))
}

func TestCosineDistanceIdenticalVectorsIsZero(t *testing.T) {
	d := cosineDistance([]float32{1, 2, 3}, []float32{1, 2, 3})
	assert.InDelta(t, 0.0, d, 1e-9)
}
