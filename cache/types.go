// Package cache implements the Model Manager: it resolves, downloads,
// validates, and caches model artifacts from a remote hub using a
// hub-style on-disk layout, with single-flight download discipline and
// cooperative cancellation.
package cache

// Stage identifies the kind of long-running operation a ProgressEvent
// belongs to.
type Stage string

const (
	StageDownload   Stage = "Download"
	StageDiarize    Stage = "Diarize"
	StageTranscribe Stage = "Transcribe"
	StageTranslate  Stage = "Translate"
)

// ProgressEvent is delivered on the engine's single progress callback
// stream. Percent is monotonically non-decreasing within one stage
// invocation; a stage transition resets to 0 and re-advances to 100.
type ProgressEvent struct {
	Percent float64
	Stage   Stage
	Label   string
}

// ProgressFunc receives progress events. It may be called from a
// goroutine other than the caller of Ensure*; implementations must not
// block for long.
type ProgressFunc func(ProgressEvent)

// CancelPredicate is polled at cooperative cancellation points. It must
// be cheap and non-blocking.
type CancelPredicate func() bool

// Options bundles the optional progress reporter and cancel predicate
// every Ensure* operation accepts.
type Options struct {
	Progress ProgressFunc
	Cancel   CancelPredicate
	Label    string // stage label, e.g. the model name
}

func (o Options) report(percent float64) {
	if o.Progress == nil {
		return
	}
	o.Progress(ProgressEvent{Percent: percent, Stage: StageDownload, Label: o.Label})
}

func (o Options) cancelled() bool {
	return o.Cancel != nil && o.Cancel()
}

// StageOptions is the progress/cancel bundle non-download stages (VAD,
// diarization, ASR, translation) accept, sharing the same callback
// vocabulary as Options but reporting under a caller-supplied Stage
// rather than the hardcoded StageDownload.
type StageOptions struct {
	Progress ProgressFunc
	Cancel   CancelPredicate
	Stage    Stage
	Label    string
}

// Report delivers a progress event under o.Stage, if a callback is set.
func (o StageOptions) Report(percent float64) {
	if o.Progress == nil {
		return
	}
	o.Progress(ProgressEvent{Percent: percent, Stage: o.Stage, Label: o.Label})
}

// Cancelled polls the cancel predicate, if set.
func (o StageOptions) Cancelled() bool {
	return o.Cancel != nil && o.Cancel()
}
