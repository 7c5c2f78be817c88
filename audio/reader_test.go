package audio

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localstt/enginerr"
)

func writeWAV(t *testing.T, sampleRate, bitDepth, channels int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           samples,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReadAcceptsMono16k16bitPCM(t *testing.T) {
	samples := []int{0, 1000, -1000, 32767}
	path := writeWAV(t, SampleRate, BitDepth, Channels, samples)

	buf, err := Read(path)
	require.NoError(t, err)
	require.Len(t, buf.Samples, len(samples))
	assert.Equal(t, int16(1000), buf.Samples[1])
	assert.Equal(t, int16(-1000), buf.Samples[2])
}

func TestReadRejectsWrongSampleRate(t *testing.T) {
	path := writeWAV(t, 44100, BitDepth, Channels, []int{0, 0, 0})

	_, err := Read(path)
	require.Error(t, err)
	kind, ok := enginerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, enginerr.InvalidAudio, kind)
}

func TestReadRejectsStereo(t *testing.T) {
	path := writeWAV(t, SampleRate, BitDepth, 2, []int{0, 0, 0, 0})

	_, err := Read(path)
	require.Error(t, err)
	kind, _ := enginerr.KindOf(err)
	assert.Equal(t, enginerr.InvalidAudio, kind)
}

func TestReadMissingFileIsInvalidAudio(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)
	kind, _ := enginerr.KindOf(err)
	assert.Equal(t, enginerr.InvalidAudio, kind)
}

func TestBufferDurationAndNormalization(t *testing.T) {
	buf := Buffer{Samples: make([]int16, SampleRate)} // 1s
	assert.InDelta(t, 1.0, buf.Duration(), 1e-9)

	buf.Samples[0] = -32768
	f := buf.Float32()
	assert.InDelta(t, -1.0, f[0], 1e-9)
}

func TestHasSignificantAudio(t *testing.T) {
	silent := make([]float32, SampleRate)
	assert.False(t, HasSignificantAudio(silent))

	loud := make([]float32, SampleRate)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 0.25
		} else {
			loud[i] = -0.25
		}
	}
	assert.True(t, HasSignificantAudio(loud))

	assert.False(t, HasSignificantAudio(loud[:100]), "sub-100ms buffers are treated as insignificant")
}
