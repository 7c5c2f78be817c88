package diarize

import (
	"runtime"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"localstt/enginerr"
)

// SherpaConfig configures the sherpa-onnx segmentation pipeline: one
// segmentation model and one embedding model, both ONNX.
type SherpaConfig struct {
	SegmentationModelPath string
	EmbeddingModelPath    string
	NumThreads            int
	Provider              string // cpu, coreml, cuda, auto
}

// DefaultSherpaConfig returns the standard segmentation defaults.
// There are no clustering knobs here: speaker assignment is the
// EmbeddingManager roster policy, not sherpa's clustering.
func DefaultSherpaConfig(segmentationPath, embeddingPath string) SherpaConfig {
	return SherpaConfig{
		SegmentationModelPath: segmentationPath,
		EmbeddingModelPath:    embeddingPath,
		NumThreads:            4,
		Provider:              "auto",
	}
}

func detectBestProvider() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "coreml"
	}
	return "cpu"
}

// SherpaSegmenter wraps sherpa-onnx's offline speaker diarization
// pipeline purely as a region-segmentation source; it discards sherpa's
// own clustering output and keeps only segment boundaries, since
// speaker assignment is this package's EmbeddingManager's job.
type SherpaSegmenter struct {
	diarizer *sherpa.OfflineSpeakerDiarization
}

// NewSherpaSegmenter constructs the segmentation side of the pipeline.
func NewSherpaSegmenter(cfg SherpaConfig) (*SherpaSegmenter, error) {
	provider := cfg.Provider
	if provider == "auto" || provider == "" {
		provider = detectBestProvider()
	}

	build := func(p string) *sherpa.OfflineSpeakerDiarization {
		sherpaCfg := &sherpa.OfflineSpeakerDiarizationConfig{
			Segmentation: sherpa.OfflineSpeakerSegmentationModelConfig{
				Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
					Model: cfg.SegmentationModelPath,
				},
				NumThreads: cfg.NumThreads,
				Provider:   p,
			},
			Embedding: sherpa.SpeakerEmbeddingExtractorConfig{
				Model:      cfg.EmbeddingModelPath,
				NumThreads: cfg.NumThreads,
				Provider:   p,
			},
			Clustering: sherpa.FastClusteringConfig{
				NumClusters: -1,
				Threshold:   0.5,
			},
		}
		return sherpa.NewOfflineSpeakerDiarization(sherpaCfg)
	}

	diarizer := build(provider)
	if diarizer == nil && provider != "cpu" {
		diarizer = build("cpu")
	}
	if diarizer == nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "diarize.NewSherpaSegmenter", nil)
	}

	return &SherpaSegmenter{diarizer: diarizer}, nil
}

// Segment implements Segmenter.
func (s *SherpaSegmenter) Segment(samples []float32) ([]RawSpan, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	segments := s.diarizer.Process(samples)
	spans := make([]RawSpan, 0, len(segments))
	for _, seg := range segments {
		spans = append(spans, RawSpan{StartSec: float64(seg.Start), EndSec: float64(seg.End)})
	}
	return spans, nil
}

// Close releases the underlying sherpa-onnx session.
func (s *SherpaSegmenter) Close() {
	if s.diarizer != nil {
		sherpa.DeleteOfflineSpeakerDiarization(s.diarizer)
		s.diarizer = nil
	}
}
