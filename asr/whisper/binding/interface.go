package whisper

import "time"

// Segment is one whisper_full output segment: a span of text with
// token-level detail.
type Segment struct {
	Num    int
	Text   string
	Start  time.Duration
	End    time.Duration
	Tokens []Token
}

// Token is one decoded token, with its raw (t0,t1) timing and, when DTW
// alignment is enabled, its t_dtw anchor.
type Token struct {
	Id      int
	Text    string
	P       float32
	Start   time.Duration
	End     time.Duration
	HasDTW  bool
	DTWTime time.Duration
}

// EncoderBeginCallback is invoked before the encoder runs; returning
// false aborts the decode (used to wire cooperative mid-decode
// cancellation).
type EncoderBeginCallback func() bool

// SegmentCallback is invoked once per newly produced segment during
// Process.
type SegmentCallback func(Segment)

// ProgressCallback reports whisper.cpp's internal percent-complete.
type ProgressCallback func(percent int)

// InitParams carries the context-level knobs fixed at model load time:
// GPU use, flash-attention, and DTW token-timestamp alignment.
// whisper.cpp rejects flash-attention combined with DTW, so callers
// enable at most one.
type InitParams struct {
	UseGPU             bool
	FlashAttn          bool
	DTWTokenTimestamps bool
	DTWPreset          AlignmentHeadsPreset
	DTWMemSize         uint64
}

// Model owns a loaded whisper.cpp context and can spawn decode
// contexts over it.
type Model interface {
	Close() error
	NewContext() (Context, error)
	IsMultilingual() bool
	Languages() []string
}

// Context drives one whisper_full decode run and reads back its
// results.
type Context interface {
	SetLanguage(lang string) error
	Language() string
	DetectedLanguage() string
	IsMultilingual() bool

	SetOffset(d time.Duration)
	SetDuration(d time.Duration)
	SetThreads(n uint)
	SetTranslate(v bool)
	SetSplitOnWord(v bool)
	SetTokenTimestamps(v bool)
	SetTokenThreshold(t float32)
	SetTokenSumThreshold(t float32)
	SetMaxSegmentLength(n uint)
	SetMaxTokensPerSegment(n uint)
	SetBeamSize(n int)
	SetEntropyThold(t float32)
	SetTemperature(t float32)
	SetInitialPrompt(prompt string)
	SetSingleSegment(v bool)

	Process(samples []float32, encoderBeginCallback EncoderBeginCallback, newSegmentCallback SegmentCallback, progressCallback ProgressCallback) error
	Text() string
	Segments() []Segment
	Tokens() []Token
	NextSegment() (Segment, error)

	WhisperLangAutoDetect(offsetMs, nThreads int) ([]float32, error)
}
