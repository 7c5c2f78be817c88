package moonshine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localstt/asr"
	"localstt/cache"
)

type fakeKernel struct {
	calls []int
	texts []string
}

func (f *fakeKernel) Transcribe(samples []float32) (string, error) {
	f.calls = append(f.calls, len(samples))
	if len(f.texts) == 0 {
		return "hello world", nil
	}
	t := f.texts[0]
	f.texts = f.texts[1:]
	return t, nil
}

func TestBackendInterpolatesWordsAcrossRegion(t *testing.T) {
	k := &fakeKernel{}
	var reported []float64
	opts := cache.StageOptions{Stage: cache.StageTranscribe, Progress: func(ev cache.ProgressEvent) { reported = append(reported, ev.Percent) }}
	b := New(k, opts)

	region := asr.Region{StartSec: 1.0, EndSec: 2.0, Samples: make([]int16, 16000)}
	segs, lang, err := b.Transcribe([]asr.Region{region}, 16000)
	require.NoError(t, err)
	assert.Empty(t, lang)
	require.Len(t, segs, 1)
	assert.Equal(t, "hello world", segs[0].Text)
	require.Len(t, segs[0].Words, 2)
	assert.Equal(t, "hello", segs[0].Words[0].Text)
	assert.Equal(t, " world", segs[0].Words[1].Text)
	assert.InDelta(t, 1.0, segs[0].Words[0].StartSec, 1e-9)
	assert.InDelta(t, 2.0, segs[0].Words[1].EndSec, 1e-9)
	assert.Equal(t, []float64{100}, reported)
}

func TestBackendSplitsLongRegionsAt64Seconds(t *testing.T) {
	k := &fakeKernel{}
	b := New(k, cache.StageOptions{})

	region := asr.Region{StartSec: 0, EndSec: 70, Samples: make([]int16, 70*16000)}
	_, _, err := b.Transcribe([]asr.Region{region}, len(region.Samples))
	require.NoError(t, err)
	require.Len(t, k.calls, 2)
	assert.Equal(t, 64*16000, k.calls[0])
	assert.Equal(t, 6*16000, k.calls[1])
}

func TestBackendDropsEmptyChunksButStillReportsProgress(t *testing.T) {
	k := &fakeKernel{texts: []string{"", "   "}}
	var reported []float64
	opts := cache.StageOptions{Progress: func(ev cache.ProgressEvent) { reported = append(reported, ev.Percent) }}
	b := New(k, opts)

	regions := []asr.Region{
		{StartSec: 0, EndSec: 1, Samples: make([]int16, 16000)},
		{StartSec: 1, EndSec: 2, Samples: make([]int16, 16000)},
	}
	segs, _, err := b.Transcribe(regions, 32000)
	require.NoError(t, err)
	assert.Empty(t, segs)
	assert.Equal(t, []float64{50, 100}, reported)
}

func TestBackendResolvesOverlapBetweenChunks(t *testing.T) {
	k := &fakeKernel{texts: []string{"first segment text", "second"}}
	b := New(k, cache.StageOptions{})

	regions := []asr.Region{
		{StartSec: 0, EndSec: 2, Samples: make([]int16, 32000)},
		{StartSec: 1.5, EndSec: 3, Samples: make([]int16, 24000)},
	}
	segs, _, err := b.Transcribe(regions, 56000)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, 1.5, segs[0].EndSec)
	assert.LessOrEqual(t, segs[0].Words[len(segs[0].Words)-1].EndSec, 1.5)
}
