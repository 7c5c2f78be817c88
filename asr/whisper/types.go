// Package whisper implements the Whisper ASR backend, including
// DTW token-timestamp alignment and whisper.cpp's built-in
// translate-to-English mode.
package whisper

import (
	binding "localstt/asr/whisper/binding"
)

// Config carries the per-run decode parameters. Load-time knobs
// (DTW alignment, flash-attention, GPU) are fixed on the model via
// binding.InitParams instead.
type Config struct {
	Language         string // user-supplied code, or "auto"
	WhisperToEnglish bool
	Threads          uint
	UserOffsetSec    float64
}

// Model is the narrow capability this backend needs from a loaded
// whisper.cpp model: spawning decode contexts. Satisfied by
// binding.Model.
type Model interface {
	NewContext() (binding.Context, error)
}
