package asr

import "strings"

// Backend is the narrow capability every ASR implementation (Whisper,
// Moonshine, Parakeet) exposes to the dispatcher.
type Backend interface {
	// Transcribe runs inference over ordered regions and returns the
	// emitted segments plus the detected language, if any (empty when
	// the backend never reports one, e.g. Parakeet).
	Transcribe(regions []Region, totalSamples int) ([]Segment, string, error)
}

// BackendKind names the three supported ASR backends.
type BackendKind string

const (
	BackendWhisper   BackendKind = "whisper"
	BackendMoonshine BackendKind = "moonshine"
	BackendParakeet  BackendKind = "parakeet"
)

// Dispatch selects a backend kind from modelName by case-insensitive
// prefix: "moonshine-*" routes to Moonshine, "parakeet*" to Parakeet,
// everything else to Whisper.
func Dispatch(modelName string) BackendKind {
	lower := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(lower, "moonshine-"):
		return BackendMoonshine
	case strings.HasPrefix(lower, "parakeet"):
		return BackendParakeet
	default:
		return BackendWhisper
	}
}

// Run computes the total sample count across all regions and invokes
// backend with it. The Whisper DTW working set is sized at model load by
// the engine from its own count, not from this argument.
func Run(backend Backend, regions []Region) ([]Segment, string, error) {
	total := 0
	for _, r := range regions {
		total += len(r.Samples)
	}
	return backend.Transcribe(regions, total)
}
