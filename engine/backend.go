package engine

import (
	"context"
	"strings"

	"localstt/asr"
	"localstt/asr/moonshine"
	"localstt/asr/parakeet"
	whisperasr "localstt/asr/whisper"
	whisperbinding "localstt/asr/whisper/binding"
	"localstt/cache"
	"localstt/enginerr"
)

// preparedBackend bundles the dispatched asr.Backend with the fixed
// language hint backends without autodetection report (Moonshine's
// per-variant language, or empty for Parakeet/Whisper), plus a cleanup
// func releasing the underlying model/kernel handle.
type preparedBackend struct {
	backend asr.Backend
	lang    string // fixed language hint; empty when the backend may autodetect or never reports one
	close   func()
}

// buildBackend ensures the model files for cfg.ModelName's dispatched
// backend kind and constructs the capability adapter over them.
// totalSamples sizes the DTW working set on the Whisper path; the other
// backends ignore it.
func (f *Facade) buildBackend(ctx context.Context, downloadOpts cache.Options, stageOpts cache.StageOptions, totalSamples int) (*preparedBackend, error) {
	switch asr.Dispatch(f.cfg.ModelName) {
	case asr.BackendMoonshine:
		return f.buildMoonshineBackend(ctx, downloadOpts, stageOpts)
	case asr.BackendParakeet:
		return f.buildParakeetBackend(ctx, downloadOpts, stageOpts)
	default:
		return f.buildWhisperBackend(ctx, downloadOpts, stageOpts, totalSamples)
	}
}

func (f *Facade) buildWhisperBackend(ctx context.Context, downloadOpts cache.Options, stageOpts cache.StageOptions, totalSamples int) (*preparedBackend, error) {
	path, err := f.cache.EnsureWhisper(ctx, f.cfg.ModelName, downloadOpts)
	if err != nil {
		return nil, err
	}

	// EnableDTW disables flash-attention and sizes a DTW working set
	// from the run's total sample count; otherwise flash-attention
	// follows the GPU toggle.
	initParams := whisperbinding.InitParams{UseGPU: f.cfg.GPUEnabled}
	if f.cfg.EnableDTW {
		initParams.DTWTokenTimestamps = true
		initParams.DTWPreset = whisperbinding.PresetForModel(f.cfg.ModelName)
		initParams.DTWMemSize = whisperasr.DTWWorkingSetBytes(totalSamples)
	} else {
		initParams.FlashAttn = f.cfg.GPUEnabled
	}
	model, err := whisperbinding.New(path, initParams)
	if err != nil {
		return nil, enginerr.New(enginerr.InferenceFailed, "engine.buildWhisperBackend", err)
	}

	cfg := whisperasr.Config{
		Language:         f.cfg.Language,
		WhisperToEnglish: f.cfg.WhisperToEnglish,
		Threads:          f.cfg.Threads,
		UserOffsetSec:    f.cfg.UserOffsetSec,
	}
	backend := whisperasr.New(model, cfg, stageOpts)

	return &preparedBackend{backend: backend, close: func() { model.Close() }}, nil
}

func moonshineVariant(modelName string) string {
	return strings.TrimPrefix(strings.ToLower(modelName), "moonshine-")
}

func (f *Facade) buildMoonshineBackend(ctx context.Context, downloadOpts cache.Options, stageOpts cache.StageOptions) (*preparedBackend, error) {
	variant := moonshineVariant(f.cfg.ModelName)
	dir, err := f.cache.EnsureMoonshine(ctx, variant, downloadOpts)
	if err != nil {
		return nil, err
	}
	kernel, err := moonshine.NewOnnxKernel(dir)
	if err != nil {
		return nil, err
	}
	backend := moonshine.New(kernel, stageOpts)

	lang, _ := moonshine.LanguageFor(variant)
	return &preparedBackend{backend: backend, lang: lang, close: func() { kernel.Close() }}, nil
}

func (f *Facade) buildParakeetBackend(ctx context.Context, downloadOpts cache.Options, stageOpts cache.StageOptions) (*preparedBackend, error) {
	dir, err := f.cache.EnsureParakeet(ctx, downloadOpts)
	if err != nil {
		return nil, err
	}
	kernel, err := parakeet.NewSherpaKernel(dir, f.cfg.NumThreads, f.cfg.Provider)
	if err != nil {
		return nil, err
	}
	backend := parakeet.New(kernel, stageOpts)

	// Language is always unreported for Parakeet.
	return &preparedBackend{backend: backend, close: func() { kernel.Close() }}, nil
}
