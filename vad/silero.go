package vad

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"localstt/enginerr"
	"localstt/internal/onnxrt"
)

// SileroConfig carries the Silero VAD tuning knobs.
type SileroConfig struct {
	ModelPath            string
	SampleRate           int
	Threshold            float32
	MinSilenceDurationMs int
	SpeechPadMs          int
	MinSpeechDurationMs  int
}

// DefaultSileroConfig returns the stage's standard tuning, with a
// 200ms minimum-silence window.
func DefaultSileroConfig(modelPath string) SileroConfig {
	return SileroConfig{
		ModelPath:            modelPath,
		SampleRate:           16000,
		Threshold:            0.5,
		MinSilenceDurationMs: 200,
		SpeechPadMs:          30,
		MinSpeechDurationMs:  0,
	}
}

// Silero is an ONNX-backed Detector implementation for the Silero VAD
// model (input/state/sr input tensors, output/stateN outputs, LSTM
// state threaded across windows).
type Silero struct {
	session *ort.DynamicAdvancedSession
	cfg     SileroConfig

	state   []float32
	context []float32

	mu          sync.Mutex
	initialized bool
}

// NewSilero loads the ONNX model at cfg.ModelPath and constructs the
// streaming session.
func NewSilero(cfg SileroConfig) (*Silero, error) {
	if cfg.SampleRate != 8000 && cfg.SampleRate != 16000 {
		return nil, enginerr.New(enginerr.InferenceFailed, "vad.NewSilero", fmt.Errorf("sample rate must be 8000 or 16000, got %d", cfg.SampleRate))
	}

	if err := onnxrt.Ensure(); err != nil {
		return nil, enginerr.New(enginerr.InferenceFailed, "vad.NewSilero", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, enginerr.New(enginerr.InferenceFailed, "vad.NewSilero", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options,
	)
	if err != nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "vad.NewSilero", err)
	}

	contextSize := 64
	if cfg.SampleRate == 8000 {
		contextSize = 32
	}

	return &Silero{
		session:     session,
		cfg:         cfg,
		state:       make([]float32, 2*1*128),
		context:     make([]float32, contextSize),
		initialized: true,
	}, nil
}

func (v *Silero) resetState() {
	for i := range v.state {
		v.state[i] = 0
	}
	for i := range v.context {
		v.context[i] = 0
	}
}

// processChunk runs one inference window and returns the speech
// probability, updating the LSTM state and context in place.
func (v *Silero) processChunk(samples []float32) (float32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return 0, enginerr.New(enginerr.InferenceFailed, "vad.processChunk", fmt.Errorf("detector closed"))
	}

	contextSize := len(v.context)
	inputData := make([]float32, contextSize+len(samples))
	copy(inputData[:contextSize], v.context)
	copy(inputData[contextSize:], samples)

	if len(samples) >= contextSize {
		copy(v.context, samples[len(samples)-contextSize:])
	} else {
		copy(v.context, v.context[len(samples):])
		copy(v.context[contextSize-len(samples):], samples)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(inputData))), inputData)
	if err != nil {
		return 0, enginerr.New(enginerr.InferenceFailed, "vad.processChunk", err)
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), v.state)
	if err != nil {
		return 0, enginerr.New(enginerr.InferenceFailed, "vad.processChunk", err)
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(v.cfg.SampleRate)})
	if err != nil {
		return 0, enginerr.New(enginerr.InferenceFailed, "vad.processChunk", err)
	}
	defer srTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := v.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs); err != nil {
		return 0, enginerr.New(enginerr.InferenceFailed, "vad.processChunk", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor := outputs[0].(*ort.Tensor[float32])
	stateNTensor := outputs[1].(*ort.Tensor[float32])
	copy(v.state, stateNTensor.GetData())

	data := outputTensor.GetData()
	if len(data) == 0 {
		return 0, nil
	}
	return data[0], nil
}

// DetectSpeech implements Detector by sliding a fixed window across
// samples and thresholding the per-window probability, returning
// millisecond spans.
func (v *Silero) DetectSpeech(samples []float32) ([]SpeechSpanMs, error) {
	v.mu.Lock()
	v.resetState()
	v.mu.Unlock()

	windowSize := 512
	if v.cfg.SampleRate == 8000 {
		windowSize = 256
	}
	windowMs := float64(windowSize) * 1000 / float64(v.cfg.SampleRate)
	minSilenceWindows := int(float64(v.cfg.MinSilenceDurationMs) / windowMs)
	speechPadWindows := int(float64(v.cfg.SpeechPadMs) / windowMs)

	var spans []SpeechSpanMs
	var current *SpeechSpanMs
	silenceCount, speechCount := 0, 0

	for i := 0; i < len(samples); i += windowSize {
		end := i + windowSize
		var chunk []float32
		if end <= len(samples) {
			chunk = samples[i:end]
		} else {
			chunk = make([]float32, windowSize)
			copy(chunk, samples[i:])
		}

		prob, err := v.processChunk(chunk)
		if err != nil {
			return nil, err
		}

		currentMs := int64(float64(i) * 1000 / float64(v.cfg.SampleRate))
		isSpeech := prob >= v.cfg.Threshold

		if isSpeech {
			silenceCount = 0
			speechCount++
			if current == nil && speechCount >= 1 {
				startMs := currentMs - int64(speechPadWindows)*int64(windowMs)
				if startMs < 0 {
					startMs = 0
				}
				current = &SpeechSpanMs{StartMs: startMs}
			}
		} else {
			speechCount = 0
			if current != nil {
				silenceCount++
				if silenceCount >= minSilenceWindows {
					endMs := currentMs - int64(silenceCount-speechPadWindows)*int64(windowMs)
					if endMs < current.StartMs {
						endMs = current.StartMs + int64(windowMs)
					}
					current.EndMs = endMs
					if current.EndMs-current.StartMs >= int64(v.cfg.MinSpeechDurationMs) {
						spans = append(spans, *current)
					}
					current = nil
					silenceCount = 0
				}
			}
		}
	}

	if current != nil {
		totalMs := int64(len(samples)) * 1000 / int64(v.cfg.SampleRate)
		current.EndMs = totalMs
		if current.EndMs-current.StartMs >= int64(v.cfg.MinSpeechDurationMs) {
			spans = append(spans, *current)
		}
	}

	return spans, nil
}

// Close releases the underlying ONNX session.
func (v *Silero) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.Destroy()
		v.session = nil
	}
	v.initialized = false
}
