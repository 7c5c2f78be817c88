// Package diarize runs speaker diarization: a segmentation model proposes
// initial speech regions across the full buffer, and per-region speaker
// embeddings are matched against a capacity-bounded roster.
package diarize

// Region is a diarized speech span with the speaker label assigned by the
// EmbeddingManager's roster policy.
type Region struct {
	StartSec  float64
	EndSec    float64
	SpeakerID string
}

// Segmenter is the narrow capability interface around a segmentation
// model: it partitions a full buffer into raw speech spans, unlabeled.
type Segmenter interface {
	Segment(samples []float32) ([]RawSpan, error)
}

// RawSpan is a segmentation model's unlabeled output span, in seconds.
type RawSpan struct {
	StartSec float64
	EndSec   float64
}

// Embedder is the narrow capability interface around a speaker-embedding
// model: it reduces a region's audio to a fixed-size embedding vector.
type Embedder interface {
	Embed(samples []float32) ([]float32, error)
}
