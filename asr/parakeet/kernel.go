package parakeet

import (
	"path/filepath"
	"runtime"
	"strings"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"localstt/enginerr"
)

// SherpaKernel wraps sherpa-onnx's offline transducer recognizer loaded
// from the Parakeet snapshot manifest (encoder/decoder/joiner int8 ONNX
// plus tokens.txt), configured for word-level timestamps.
type SherpaKernel struct {
	recognizer *sherpa.OfflineRecognizer
}

// NewSherpaKernel loads the manifest from snapshotDir.
func NewSherpaKernel(snapshotDir string, numThreads int, provider string) (*SherpaKernel, error) {
	if provider == "" || provider == "auto" {
		provider = detectBestProvider()
	}

	build := func(p string) *sherpa.OfflineRecognizer {
		cfg := &sherpa.OfflineRecognizerConfig{}
		cfg.ModelConfig.Transducer.Encoder = filepath.Join(snapshotDir, "encoder.int8.onnx")
		cfg.ModelConfig.Transducer.Decoder = filepath.Join(snapshotDir, "decoder.int8.onnx")
		cfg.ModelConfig.Transducer.Joiner = filepath.Join(snapshotDir, "joiner.int8.onnx")
		cfg.ModelConfig.Tokens = filepath.Join(snapshotDir, "tokens.txt")
		cfg.ModelConfig.NumThreads = numThreads
		cfg.ModelConfig.Provider = p
		cfg.ModelConfig.ModelType = "nemo_transducer"
		return sherpa.NewOfflineRecognizer(cfg)
	}

	recognizer := build(provider)
	if recognizer == nil && provider != "cpu" {
		recognizer = build("cpu")
	}
	if recognizer == nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "parakeet.NewSherpaKernel", nil)
	}
	return &SherpaKernel{recognizer: recognizer}, nil
}

func detectBestProvider() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "coreml"
	}
	return "cpu"
}

// Transcribe implements Kernel, reading sherpa's word-level Timestamps
// output alongside its Tokens to build per-word sub-segments.
func (k *SherpaKernel) Transcribe(samples []float32) (Result, error) {
	if len(samples) == 0 {
		return Result{}, nil
	}

	stream := sherpa.NewOfflineStream(k.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(16000, samples)
	k.recognizer.Decode(stream)
	result := stream.GetResult()

	text := strings.TrimSpace(result.Text)
	words := make([]WordSegment, 0, len(result.Tokens))
	for i, tok := range result.Tokens {
		if i >= len(result.Timestamps) {
			break
		}
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		start := float64(result.Timestamps[i])
		end := start + 0.08
		if i+1 < len(result.Timestamps) {
			end = float64(result.Timestamps[i+1])
		}
		words = append(words, WordSegment{Text: tok, StartSec: start, EndSec: end})
	}

	return Result{Words: words, Text: text}, nil
}

// Close releases the underlying sherpa-onnx session.
func (k *SherpaKernel) Close() {
	if k.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(k.recognizer)
		k.recognizer = nil
	}
}
