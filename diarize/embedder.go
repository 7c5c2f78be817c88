package diarize

import (
	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"localstt/enginerr"
)

// SherpaEmbedder wraps sherpa-onnx's standalone speaker-embedding
// extractor. Kept as a separate capability from SherpaSegmenter (which
// also carries an embedding model internally for its own clustering) so
// the region-level embedding computation driving this package's
// EmbeddingManager is explicit and testable on its own.
type SherpaEmbedder struct {
	extractor *sherpa.SpeakerEmbeddingExtractor
}

// NewSherpaEmbedder constructs the embedding side of the pipeline.
func NewSherpaEmbedder(modelPath string, numThreads int, provider string) (*SherpaEmbedder, error) {
	if provider == "" || provider == "auto" {
		provider = detectBestProvider()
	}
	cfg := &sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      modelPath,
		NumThreads: numThreads,
		Provider:   provider,
	}
	extractor := sherpa.NewSpeakerEmbeddingExtractor(cfg)
	if extractor == nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "diarize.NewSherpaEmbedder", nil)
	}
	return &SherpaEmbedder{extractor: extractor}, nil
}

// Embed implements Embedder.
func (e *SherpaEmbedder) Embed(samples []float32) ([]float32, error) {
	if len(samples) < 1600 {
		return nil, enginerr.New(enginerr.InferenceFailed, "diarize.Embed", nil)
	}
	stream := e.extractor.CreateStream()
	defer sherpa.DeleteOnlineStream(stream)

	stream.AcceptWaveform(16000, samples)
	stream.InputFinished()
	embedding := e.extractor.Compute(stream)
	if len(embedding) == 0 {
		return nil, enginerr.New(enginerr.InferenceFailed, "diarize.Embed", nil)
	}
	return embedding, nil
}

// Close releases the extractor.
func (e *SherpaEmbedder) Close() {
	if e.extractor != nil {
		sherpa.DeleteSpeakerEmbeddingExtractor(e.extractor)
		e.extractor = nil
	}
}
