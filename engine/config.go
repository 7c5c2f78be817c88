// Package engine implements the Engine Facade: it orchestrates the
// Audio Reader, VAD/Diarization stage, ASR dispatcher, Translator, and
// Subtitle Post-Processor behind one asynchronous operation, plus the
// Model Manager's cache-admin surface.
package engine

import "localstt/subtitle"

// Config bundles every knob the façade's single Transcribe operation
// needs.
type Config struct {
	// CacheDir is the Model Manager's on-disk cache root.
	CacheDir string

	// ModelName selects the ASR backend by prefix: "moonshine-*" ->
	// Moonshine, "parakeet*" -> Parakeet, else Whisper.
	ModelName        string
	Language         string // user-supplied code, or "auto" (Whisper only)
	WhisperToEnglish bool
	EnableDTW        bool
	GPUEnabled       bool
	Threads          uint
	UserOffsetSec    float64

	// EnableVAD and EnableDiarization select the speech-segmentation
	// stage. When both are false, a single region spans
	// the whole buffer.
	EnableVAD            bool
	EnableDiarization    bool
	VADThreshold         float32
	SegmentationModelURL string
	EmbeddingModelURL    string
	MaxSpeakers          int // 0 or negative means unlimited
	DiarizationThreshold float32
	NumThreads           int
	Provider             string // cpu, cuda, coreml, or "auto"

	// TargetLang, when non-empty, runs the post-ASR Translator.
	// Suppressed automatically when WhisperToEnglish already ran
	// Whisper's own built-in translation.
	TargetLang string

	// MaxLines and Density tune the Subtitle Post-Processor's profile
	//. MaxLines <= 0 resolves to the profile's default of 1.
	MaxLines int
	Density  subtitle.Density
}

// DefaultConfig returns a sane starting point the caller overrides
// field-by-field.
func DefaultConfig(cacheDir, modelName string) Config {
	return Config{
		CacheDir:             cacheDir,
		ModelName:            modelName,
		Language:             "auto",
		EnableVAD:            true,
		DiarizationThreshold: 0.5,
		NumThreads:           4,
		Provider:             "auto",
		MaxLines:             1,
		Density:              subtitle.DensityNormal,
	}
}

// effectiveMaxSpeakers coerces a literal 0 (or negative) to "no limit"
// before the EmbeddingManager is constructed, rather than reading it as
// "label everything as '?'".
func (c Config) effectiveMaxSpeakers() int {
	if c.MaxSpeakers <= 0 {
		return 0
	}
	return c.MaxSpeakers
}
