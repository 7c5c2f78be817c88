// Package asr dispatches a speech region to the backend selected by model
// name and defines the shared word/segment data model every backend
// produces.
package asr

// WordToken is one word or sub-word piece with absolute source-timeline
// bounds. A leading ASCII space in Text marks a word-boundary; its
// absence marks a sub-word (BPE) continuation.
type WordToken struct {
	Text        string
	StartSec    float64
	EndSec      float64
	Probability *float32
}

// Segment is one backend-emitted unit of transcription, chronologically
// ordered and non-overlapping with its neighbors after overlap
// resolution.
type Segment struct {
	StartSec  float64
	EndSec    float64
	Text      string
	Words     []WordToken
	SpeakerID string // empty when the region carries no speaker label
}

// Region is the shared input shape every backend consumes: a speech span
// plus its PCM samples and optional speaker label from an earlier stage.
type Region struct {
	StartSec  float64
	EndSec    float64
	Samples   []int16
	SpeakerID string
}

// Float32 normalizes the region's samples to [-1, 1) for model input.
func (r Region) Float32() []float32 {
	out := make([]float32, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
