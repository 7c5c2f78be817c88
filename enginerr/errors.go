// Package enginerr defines the typed error kinds surfaced by the
// transcription pipeline to its caller.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind distinguishes the caller-visible failure modes of a transcription
// run or a model-manager operation.
type Kind string

const (
	// InvalidAudio is returned when the input file is missing or not
	// mono/16kHz/16-bit PCM WAV.
	InvalidAudio Kind = "invalid_audio"
	// ModelCorrupt is returned when a cached model file fails validation
	// twice in a row.
	ModelCorrupt Kind = "model_corrupt"
	// Network is returned for unrecoverable HTTP/network failures.
	Network Kind = "network"
	// Cancelled is returned when a user or supersession cancellation wins
	// the race against an in-flight operation.
	Cancelled Kind = "cancelled"
	// InferenceFailed is returned when an ASR/VAD/diarization backend
	// reports a failure on a region.
	InferenceFailed Kind = "inference_failed"
	// TranslationFailed is returned only when zero segments in a batch
	// translated successfully.
	TranslationFailed Kind = "translation_failed"
	// IO is returned for cache-directory or filesystem errors.
	IO Kind = "io"
	// NotFound is returned when a requested model name/variant is not in
	// the known vocabulary.
	NotFound Kind = "not_found"
)

// Error is the concrete error type returned across package boundaries. It
// wraps an underlying cause (if any) while tagging it with a stable Kind
// so callers can branch with errors.Is/errors.As without string matching.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "ensure_whisper", "vad.Run"
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, enginerr.New(enginerr.Cancelled, "", nil)) style checks
// work, in addition to the usual errors.Is(err, enginerr.ErrCancelled).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an *Error for op with the given kind, optionally wrapping
// cause.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Sentinel values usable with errors.Is for quick Kind checks.
var (
	ErrInvalidAudio      = &Error{Kind: InvalidAudio}
	ErrModelCorrupt      = &Error{Kind: ModelCorrupt}
	ErrNetwork           = &Error{Kind: Network}
	ErrCancelled         = &Error{Kind: Cancelled}
	ErrInferenceFailed   = &Error{Kind: InferenceFailed}
	ErrTranslationFailed = &Error{Kind: TranslationFailed}
	ErrIO                = &Error{Kind: IO}
)

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsCancelled reports whether err represents (or wraps) a Cancelled error.
// Cancellation supersedes all other errors observed during unwind,
// so callers should check this first.
func IsCancelled(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Cancelled
}
