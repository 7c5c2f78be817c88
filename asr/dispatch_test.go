package asr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesByModelNamePrefix(t *testing.T) {
	assert.Equal(t, BackendMoonshine, Dispatch("moonshine-tiny"))
	assert.Equal(t, BackendMoonshine, Dispatch("Moonshine-Base-Es"))
	assert.Equal(t, BackendParakeet, Dispatch("parakeet"))
	assert.Equal(t, BackendParakeet, Dispatch("Parakeet-TDT"))
	assert.Equal(t, BackendWhisper, Dispatch("tiny.en"))
	assert.Equal(t, BackendWhisper, Dispatch("large-v3-turbo"))
	assert.Equal(t, BackendWhisper, Dispatch("moonshine"), "bare 'moonshine' lacks the dash and falls through to Whisper")
}

func TestInterpolateWordsWeightsByAlphanumericCount(t *testing.T) {
	words := InterpolateWords([]string{"a", " bbb"}, 0, 1)
	require.Len(t, words, 2)
	// weights 1 and 3: the first token gets a quarter of the window.
	assert.InDelta(t, 0.25, words[0].EndSec, 1e-9)
	assert.InDelta(t, 0.25, words[1].StartSec, 1e-9)
	assert.InDelta(t, 1.0, words[1].EndSec, 1e-9)
}

func TestInterpolateWordsPunctuationOnlyTokenGetsMinimumWeight(t *testing.T) {
	words := InterpolateWords([]string{"word", " —"}, 0, 1)
	require.Len(t, words, 2)
	assert.Greater(t, words[1].EndSec-words[1].StartSec, 0.0)
}

func TestSplitWhitespaceWithLeadingSpaceMarksWordBoundaries(t *testing.T) {
	tokens := SplitWhitespaceWithLeadingSpace("  hello   there friend ")
	assert.Equal(t, []string{"hello", " there", " friend"}, tokens)
}

func TestResolveOverlapTruncatesPreviousSegmentAndLastWord(t *testing.T) {
	prev := &Segment{
		StartSec: 0, EndSec: 2,
		Words: []WordToken{{Text: "a", StartSec: 0, EndSec: 1}, {Text: " b", StartSec: 1, EndSec: 2}},
	}
	ResolveOverlap(prev, 1.5)
	assert.Equal(t, 1.5, prev.EndSec)
	assert.Equal(t, 1.5, prev.Words[1].EndSec)

	untouched := &Segment{StartSec: 0, EndSec: 1}
	ResolveOverlap(untouched, 1.5)
	assert.Equal(t, 1.0, untouched.EndSec)
}

func TestRegionFloat32NormalizesSamples(t *testing.T) {
	r := Region{Samples: []int16{0, 16384, -32768}}
	f := r.Float32()
	require.Len(t, f, 3)
	assert.InDelta(t, 0.0, f[0], 1e-9)
	assert.InDelta(t, 0.5, f[1], 1e-9)
	assert.InDelta(t, -1.0, f[2], 1e-9)
}
