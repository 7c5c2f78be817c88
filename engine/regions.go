package engine

import (
	"context"

	"localstt/asr"
	"localstt/audio"
	"localstt/cache"
	"localstt/diarize"
	"localstt/enginerr"
	"localstt/vad"
)

// sampleSlice extracts the samples covering [startSec, endSec) from buf,
// clamped to the buffer's bounds, so a region holds
// round((end-start)*16000) samples within one sample of exact.
func sampleSlice(buf audio.Buffer, startSec, endSec float64) []int16 {
	start := int(startSec * float64(audio.SampleRate))
	end := int(endSec * float64(audio.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(buf.Samples) {
		end = len(buf.Samples)
	}
	if end <= start {
		return nil
	}
	return buf.Samples[start:end]
}

// buildRegions runs the speech-segmentation stage the config selects
// (diarization takes priority over plain VAD) and converts its output
// spans into asr.Region, slicing PCM samples out of buf for each one.
// Regions carrying no significant signal are dropped before they reach
// the ASR dispatcher.
func (f *Facade) buildRegions(ctx context.Context, buf audio.Buffer, downloadOpts cache.Options, stageOpts cache.StageOptions) ([]asr.Region, error) {
	var regions []asr.Region
	var err error
	switch {
	case f.cfg.EnableDiarization:
		regions, err = f.buildDiarizedRegions(ctx, buf, downloadOpts, stageOpts)
	case f.cfg.EnableVAD:
		regions, err = f.buildVADRegions(ctx, buf, downloadOpts, stageOpts)
	default:
		regions = vadRegionsToASR(buf, vad.SingleRegion(buf.Duration()))
	}
	if err != nil {
		return nil, err
	}
	return dropSilentRegions(regions), nil
}

// dropSilentRegions filters out regions that are pure digital silence,
// saving an inference call per dropped region.
func dropSilentRegions(regions []asr.Region) []asr.Region {
	out := regions[:0]
	for _, r := range regions {
		if audio.HasSignificantAudio(r.Float32()) {
			out = append(out, r)
		}
	}
	return out
}

func (f *Facade) buildVADRegions(ctx context.Context, buf audio.Buffer, downloadOpts cache.Options, stageOpts cache.StageOptions) ([]asr.Region, error) {
	modelPath, err := f.cache.EnsureVAD(ctx, downloadOpts)
	if err != nil {
		return nil, err
	}
	detector, err := vad.NewSilero(vad.DefaultSileroConfig(modelPath))
	if err != nil {
		return nil, enginerr.New(enginerr.InferenceFailed, "engine.buildVADRegions", err)
	}
	defer detector.Close()

	spans, err := vad.Run(detector, buf.Float32(), buf.Duration(), stageOpts)
	if err != nil {
		return nil, err
	}
	return vadRegionsToASR(buf, spans), nil
}

func vadRegionsToASR(buf audio.Buffer, spans []vad.Region) []asr.Region {
	out := make([]asr.Region, 0, len(spans))
	for _, s := range spans {
		out = append(out, asr.Region{
			StartSec: s.StartSec,
			EndSec:   s.EndSec,
			Samples:  sampleSlice(buf, s.StartSec, s.EndSec),
		})
	}
	return out
}

func (f *Facade) buildDiarizedRegions(ctx context.Context, buf audio.Buffer, downloadOpts cache.Options, stageOpts cache.StageOptions) ([]asr.Region, error) {
	segPath, embPath, err := f.cache.EnsureDiarize(ctx, f.cfg.SegmentationModelURL, f.cfg.EmbeddingModelURL, downloadOpts)
	if err != nil {
		return nil, err
	}

	segmenter, err := diarize.NewSherpaSegmenter(diarize.DefaultSherpaConfig(segPath, embPath))
	if err != nil {
		return nil, err
	}
	defer segmenter.Close()

	embedder, err := diarize.NewSherpaEmbedder(embPath, f.cfg.NumThreads, f.cfg.Provider)
	if err != nil {
		return nil, err
	}
	defer embedder.Close()

	threshold := f.cfg.DiarizationThreshold
	if threshold <= 0 {
		threshold = 0.5
	}

	spans, err := diarize.Run(segmenter, embedder, buf.Float32(), f.cfg.effectiveMaxSpeakers(), threshold, stageOpts)
	if err != nil {
		return nil, err
	}

	out := make([]asr.Region, 0, len(spans))
	for _, s := range spans {
		out = append(out, asr.Region{
			StartSec:  s.StartSec,
			EndSec:    s.EndSec,
			Samples:   sampleSlice(buf, s.StartSec, s.EndSec),
			SpeakerID: s.SpeakerID,
		})
	}
	return out, nil
}
