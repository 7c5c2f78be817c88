package engine

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"localstt/asr"
	"localstt/audio"
	"localstt/cache"
	"localstt/enginerr"
	"localstt/subtitle"
	"localstt/translate"
)

// Facade orchestrates components A-J behind one asynchronous
// Transcribe operation plus the Model Manager's cache-admin surface
//. It owns the process-wide cancellation toggle; the
// single-flight download slot and generation counter live inside the
// embedded *cache.Manager.
type Facade struct {
	cache *cache.Manager
	cfg   Config

	// cancelled is the one process-wide cancel boolean: toggled by
	// Cancel and cleared at the start of every new Transcribe call.
	cancelled atomic.Bool
}

// New constructs a Facade rooted at cfg.CacheDir.
func New(cfg Config) (*Facade, error) {
	mgr, err := cache.NewManager(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return &Facade{cache: mgr, cfg: cfg}, nil
}

// Cancel requests cooperative cancellation of the in-flight Transcribe
// call (and, transitively, any in-flight Ensure* download) from a
// separate command path.
func (f *Facade) Cancel() {
	f.cancelled.Store(true)
}

// ListCached, Delete, CleanupOrphanedBlobs, and CleanupStaleLocks expose
// the Model Manager's cache-admin surface directly.
func (f *Facade) ListCached() []string              { return f.cache.ListCached() }
func (f *Facade) ListCachedInfo() []cache.ModelInfo { return f.cache.ListCachedInfo() }
func (f *Facade) Delete(name string) bool           { return f.cache.Delete(name) }
func (f *Facade) CleanupOrphanedBlobs() error       { return f.cache.CleanupOrphanedBlobs() }
func (f *Facade) CleanupStaleLocks() error          { return f.cache.CleanupStaleLocks() }

// WhisperLanguages and TranslateLanguages expose the language
// vocabularies a caller can offer a user when populating a language
// picker, without constructing a Facade.
func WhisperLanguages() []string   { return cache.WhisperLanguages() }
func TranslateLanguages() []string { return cache.TranslateLanguages() }

// NewSegmentFunc is called exactly once per Segment the ASR dispatcher
// emits, with its final pre-post-processing content.
type NewSegmentFunc func(asr.Segment)

// Transcribe runs the end-to-end pipeline over the WAV file at
// audioPath: read, segment, recognize, optionally translate, then
// post-process into cues. progress and onSegment may be nil.
func (f *Facade) Transcribe(ctx context.Context, audioPath string, progress cache.ProgressFunc, onSegment NewSegmentFunc) (*Result, error) {
	// Cleared at the start of each new transcription: a prior cancel
	// must not poison the next run.
	f.cancelled.Store(false)
	started := time.Now()

	buf, err := audio.Read(audioPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Transcribe: %s (%.1fs audio, model %s)", audioPath, buf.Duration(), f.cfg.ModelName)

	cancelPred := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
		}
		return f.cancelled.Load()
	}
	if cancelPred() {
		return nil, enginerr.New(enginerr.Cancelled, "engine.Transcribe", nil)
	}

	downloadOpts := cache.Options{Progress: progress, Cancel: cancelPred}

	segmentStage := cache.StageOptions{Progress: progress, Cancel: cancelPred, Stage: cache.StageDiarize, Label: "segmentation"}
	regions, err := f.buildRegions(ctx, buf, downloadOpts, segmentStage)
	if err != nil {
		return nil, err
	}

	totalSamples := 0
	for _, r := range regions {
		totalSamples += len(r.Samples)
	}

	asrStage := cache.StageOptions{Progress: progress, Cancel: cancelPred, Stage: cache.StageTranscribe, Label: f.cfg.ModelName}
	prepared, err := f.buildBackend(ctx, downloadOpts, asrStage, totalSamples)
	if err != nil {
		return nil, err
	}
	defer prepared.close()

	segments, detectedLang, err := asr.Run(prepared.backend, regions)
	if err != nil {
		return nil, err
	}
	if detectedLang == "" {
		detectedLang = prepared.lang
	}

	for _, seg := range segments {
		if onSegment != nil {
			onSegment(seg)
		}
	}

	// Whisper's own built-in translation already ran when
	// WhisperToEnglish is set; the post-translator is suppressed in
	// that case regardless of TargetLang.
	builtinTranslated := asr.Dispatch(f.cfg.ModelName) == asr.BackendWhisper && f.cfg.WhisperToEnglish
	if f.cfg.TargetLang != "" && !builtinTranslated {
		if cancelPred() {
			return nil, enginerr.New(enginerr.Cancelled, "engine.Transcribe", nil)
		}
		sourceLang := detectedLang
		if sourceLang == "" {
			sourceLang = f.cfg.Language
		}
		if sourceLang == "" {
			sourceLang = "auto"
		}

		translateStage := cache.StageOptions{Progress: progress, Cancel: cancelPred, Stage: cache.StageTranslate, Label: f.cfg.TargetLang}
		client := translate.NewClient()
		translated, err := client.Translate(ctx, segments, sourceLang, f.cfg.TargetLang, translateStage)
		if err != nil {
			return nil, err
		}
		segments = translated
		detectedLang = f.cfg.TargetLang
	}

	profileLang := detectedLang
	if profileLang == "" {
		profileLang = f.cfg.Language
	}
	if profileLang == "" || profileLang == "auto" {
		profileLang = "en"
	}
	profile := subtitle.ProfileFor(profileLang, f.cfg.Density, f.cfg.MaxLines)
	cues := subtitle.Process(segments, profile)
	log.Printf("Transcribe done: %d segments, %d cues in %.2fs", len(segments), len(cues), time.Since(started).Seconds())

	return &Result{
		ProcessingTimeSec: time.Since(started).Seconds(),
		Segments:          cues,
		Speakers:          aggregateSpeakers(segments),
	}, nil
}
