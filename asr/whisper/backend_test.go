package whisper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localstt/asr"
	binding "localstt/asr/whisper/binding"
	"localstt/cache"
)

func TestDTWWorkingSetSizingBands(t *testing.T) {
	// 15000 frames * 160 samples/frame = 2,400,000 samples (10ms @ 16kHz).
	small := DTWWorkingSetBytes(2_400_000)
	large := DTWWorkingSetBytes(60_000_000)
	assert.Greater(t, large, small)
	assert.Zero(t, small%(8*1024*1024), "result must be 8 MiB aligned")
	assert.GreaterOrEqual(t, small, uint64(24*1024*1024))
	assert.LessOrEqual(t, large, uint64(768*1024*1024))
}

func TestStripControlMarkers(t *testing.T) {
	assert.Equal(t, "", stripControlMarkers("[_BEG_]"))
	assert.Equal(t, " hello", stripControlMarkers(" hello[_TT_320]"))
	assert.Equal(t, " world", stripControlMarkers(" world"))
}

type fakeModel struct {
	ctx *fakeContext
}

func (m *fakeModel) NewContext() (binding.Context, error) { return m.ctx, nil }

type fakeContext struct {
	language  string
	translate bool
	segments  []binding.Segment
	detected  string
}

func (f *fakeContext) SetLanguage(lang string) error { f.language = lang; return nil }
func (f *fakeContext) Language() string              { return f.language }
func (f *fakeContext) DetectedLanguage() string       { return f.detected }
func (f *fakeContext) IsMultilingual() bool           { return true }
func (f *fakeContext) SetOffset(time.Duration)        {}
func (f *fakeContext) SetDuration(time.Duration)       {}
func (f *fakeContext) SetThreads(uint)                {}
func (f *fakeContext) SetTranslate(v bool)            { f.translate = v }
func (f *fakeContext) SetSplitOnWord(bool)            {}
func (f *fakeContext) SetTokenTimestamps(bool)        {}
func (f *fakeContext) SetTokenThreshold(float32)      {}
func (f *fakeContext) SetTokenSumThreshold(float32)   {}
func (f *fakeContext) SetMaxSegmentLength(uint)       {}
func (f *fakeContext) SetMaxTokensPerSegment(uint)    {}
func (f *fakeContext) SetBeamSize(int)                {}
func (f *fakeContext) SetEntropyThold(float32)        {}
func (f *fakeContext) SetTemperature(float32)         {}
func (f *fakeContext) SetInitialPrompt(string)        {}
func (f *fakeContext) SetSingleSegment(bool)          {}

func (f *fakeContext) Process(samples []float32, encoderBegin binding.EncoderBeginCallback, newSeg binding.SegmentCallback, progress binding.ProgressCallback) error {
	for _, s := range f.segments {
		newSeg(s)
	}
	return nil
}
func (f *fakeContext) Text() string                  { return "" }
func (f *fakeContext) Segments() []binding.Segment    { return f.segments }
func (f *fakeContext) Tokens() []binding.Token        { return nil }
func (f *fakeContext) NextSegment() (binding.Segment, error) {
	return binding.Segment{}, nil
}
func (f *fakeContext) WhisperLangAutoDetect(int, int) ([]float32, error) { return nil, nil }

func TestBackendBuildsDTWWordBoundsFromAnchors(t *testing.T) {
	ctx := &fakeContext{
		segments: []binding.Segment{{
			Text:  " hello world",
			Start: 0,
			End:   900 * time.Millisecond,
			Tokens: []binding.Token{
				{Text: " hello", Start: 0, End: 400 * time.Millisecond, HasDTW: true, DTWTime: 100 * time.Millisecond},
				{Text: " world", Start: 400 * time.Millisecond, End: 900 * time.Millisecond, HasDTW: true, DTWTime: 500 * time.Millisecond},
			},
		}},
	}
	m := &fakeModel{ctx: ctx}
	b := New(m, Config{Language: "en"}, cache.StageOptions{})

	region := asr.Region{StartSec: 10, EndSec: 11, Samples: make([]int16, 16000)}
	segs, lang, err := b.Transcribe([]asr.Region{region}, 16000)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	require.Len(t, segs, 1)
	require.Len(t, segs[0].Words, 2)
	// The outer edges have no neighboring anchor, so raw token bounds are
	// used; the shared inner edge is the midpoint of the two DTW anchors
	// (100ms and 500ms). All bounds are shifted by the region's base offset.
	assert.InDelta(t, 10.0, segs[0].Words[0].StartSec, 1e-9)
	assert.InDelta(t, 10.3, segs[0].Words[0].EndSec, 1e-9)
	assert.InDelta(t, 10.3, segs[0].Words[1].StartSec, 1e-9)
	assert.InDelta(t, 10.9, segs[0].Words[1].EndSec, 1e-9)
}

func TestBackendInterpolatesWordsWhenTranslatingToEnglish(t *testing.T) {
	ctx := &fakeContext{
		segments: []binding.Segment{{
			Text:  " bonjour le monde",
			Start: 0,
			End:   1 * time.Second,
			Tokens: []binding.Token{
				{Text: " bonjour"},
				{Text: " le"},
				{Text: " monde"},
			},
		}},
	}
	m := &fakeModel{ctx: ctx}
	b := New(m, Config{Language: "fr", WhisperToEnglish: true}, cache.StageOptions{})

	region := asr.Region{StartSec: 0, EndSec: 1, Samples: make([]int16, 16000)}
	segs, _, err := b.Transcribe([]asr.Region{region}, 16000)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Len(t, segs[0].Words, 3)
	assert.InDelta(t, 0.0, segs[0].Words[0].StartSec, 1e-9)
	assert.InDelta(t, 1.0, segs[0].Words[2].EndSec, 1e-9)
}

func TestBackendResolvesOverlapAcrossRegions(t *testing.T) {
	ctx := &fakeContext{
		segments: []binding.Segment{{Text: " word", Start: 0, End: 2 * time.Second}},
	}
	m := &fakeModel{ctx: ctx}
	b := New(m, Config{Language: "en"}, cache.StageOptions{})

	regions := []asr.Region{
		{StartSec: 0, EndSec: 2, Samples: make([]int16, 32000)},
		{StartSec: 1.5, EndSec: 3.5, Samples: make([]int16, 32000)},
	}
	segs, _, err := b.Transcribe(regions, 64000)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.InDelta(t, 1.5, segs[0].EndSec, 1e-9, "first segment truncated to the overlap boundary")
	assert.InDelta(t, 3.5, segs[1].EndSec, 1e-9)
}
