package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"localstt/asr"
	"localstt/audio"
)

func TestAggregateSpeakersFirstSeenOrderSkipsUnknown(t *testing.T) {
	segments := []asr.Segment{
		{StartSec: 0, EndSec: 1, SpeakerID: "?"},
		{StartSec: 1, EndSec: 2, SpeakerID: "1"},
		{StartSec: 2, EndSec: 3, SpeakerID: "2"},
		{StartSec: 3, EndSec: 4, SpeakerID: "1"},
		{StartSec: 4, EndSec: 5, SpeakerID: ""},
	}

	speakers := aggregateSpeakers(segments)

	assert.Len(t, speakers, 2)
	assert.Equal(t, "1", speakers[0].Name)
	assert.InDelta(t, 1.0, speakers[0].SampleStartSec, 1e-9)
	assert.InDelta(t, 2.0, speakers[0].SampleEndSec, 1e-9)
	assert.Equal(t, "2", speakers[1].Name)
	assert.InDelta(t, 2.0, speakers[1].SampleStartSec, 1e-9)
}

func TestEffectiveMaxSpeakersCoercesZeroToUnlimited(t *testing.T) {
	assert.Equal(t, 0, Config{MaxSpeakers: 0}.effectiveMaxSpeakers())
	assert.Equal(t, 0, Config{MaxSpeakers: -1}.effectiveMaxSpeakers())
	assert.Equal(t, 3, Config{MaxSpeakers: 3}.effectiveMaxSpeakers())
}

func TestMoonshineVariantStripsPrefixCaseInsensitive(t *testing.T) {
	assert.Equal(t, "tiny", moonshineVariant("moonshine-tiny"))
	assert.Equal(t, "base-es", moonshineVariant("Moonshine-Base-Es"))
}

func TestSampleSliceClampsToBufferBounds(t *testing.T) {
	buf := audio.Buffer{Samples: make([]int16, 16000)} // 1s at 16kHz

	got := sampleSlice(buf, 0.5, 2.0)
	assert.Len(t, got, 8000) // clamped to the buffer's end

	assert.Nil(t, sampleSlice(buf, 1.5, 2.0))
	assert.Nil(t, sampleSlice(buf, 0.5, 0.5))
}

func TestWhisperAndTranslateLanguagesExposeCacheVocabulary(t *testing.T) {
	assert.Contains(t, WhisperLanguages(), "auto")
	assert.Contains(t, TranslateLanguages(), "zh-TW")
}

func TestDefaultConfigSeedsSingleLineLatinProfile(t *testing.T) {
	cfg := DefaultConfig("/tmp/cache", "tiny.en")
	assert.Equal(t, "auto", cfg.Language)
	assert.True(t, cfg.EnableVAD)
	assert.Equal(t, 1, cfg.MaxLines)
}
