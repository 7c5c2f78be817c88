package diarize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// unknownSpeaker is assigned when a region's embedding could not be
// computed; the run continues past the failed region.
const unknownSpeaker = "?"

type rosterEntry struct {
	id        string
	embedding []float32
}

// EmbeddingManager holds the speaker roster for one transcription run
// and implements its capacity-based labeling policy: below capacity,
// new speakers may be opened; at capacity, every region is forced onto
// its nearest existing speaker. Speaker IDs are assigned in first-seen
// order, numbered from 0 within each run.
type EmbeddingManager struct {
	capacity int // 0 means unlimited
	roster   []rosterEntry
	next     int
}

// NewEmbeddingManager constructs a roster with the given capacity.
// capacity <= 0 means unlimited.
func NewEmbeddingManager(capacity int) *EmbeddingManager {
	return &EmbeddingManager{capacity: capacity}
}

// Assign labels one region's embedding, applying the search/best-match
// policy and opening a new speaker ID when the roster has spare capacity.
func (m *EmbeddingManager) Assign(embedding []float32, threshold float32) string {
	if len(embedding) == 0 {
		return unknownSpeaker
	}

	if m.capacity <= 0 || len(m.roster) < m.capacity {
		if id, ok := m.searchSpeaker(embedding, threshold); ok {
			return id
		}
		return m.openSpeaker(embedding)
	}
	return m.bestMatch(embedding)
}

// searchSpeaker returns the nearest roster entry within threshold, or
// ok=false when no existing speaker is close enough.
func (m *EmbeddingManager) searchSpeaker(embedding []float32, threshold float32) (string, bool) {
	bestID := ""
	bestDist := math.MaxFloat64
	for _, e := range m.roster {
		d := cosineDistance(embedding, e.embedding)
		if d < bestDist {
			bestDist = d
			bestID = e.id
		}
	}
	if bestID != "" && bestDist <= float64(threshold) {
		return bestID, true
	}
	return "", false
}

// bestMatch always assigns to the nearest existing speaker, used once
// the roster is at capacity (no new IDs open past that point).
func (m *EmbeddingManager) bestMatch(embedding []float32) string {
	if len(m.roster) == 0 {
		return unknownSpeaker
	}
	bestID := m.roster[0].id
	bestDist := cosineDistance(embedding, m.roster[0].embedding)
	for _, e := range m.roster[1:] {
		d := cosineDistance(embedding, e.embedding)
		if d < bestDist {
			bestDist = d
			bestID = e.id
		}
	}
	return bestID
}

func (m *EmbeddingManager) openSpeaker(embedding []float32) string {
	id := fmt.Sprintf("%d", m.next)
	m.next++
	m.roster = append(m.roster, rosterEntry{id: id, embedding: embedding})
	return id
}

// cosineDistance returns 1 - cosine_similarity, in [0, 2]; 0 means
// identical direction.
func cosineDistance(a, b []float32) float64 {
	af := make([]float64, len(a))
	bf := make([]float64, len(b))
	for i := range a {
		af[i] = float64(a[i])
	}
	for i := range b {
		bf[i] = float64(b[i])
	}

	normA := floats.Norm(af, 2)
	normB := floats.Norm(bf, 2)
	if normA == 0 || normB == 0 {
		return 1.0
	}

	n := len(af)
	if len(bf) < n {
		n = len(bf)
	}
	similarity := floats.Dot(af[:n], bf[:n]) / (normA * normB)
	if similarity > 1.0 {
		similarity = 1.0
	} else if similarity < -1.0 {
		similarity = -1.0
	}
	return 1.0 - similarity
}
