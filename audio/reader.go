// Package audio loads mono 16kHz 16-bit PCM WAV files into an in-memory
// sample buffer. It holds the full decoded buffer in memory: the upstream
// transcoder is expected to guarantee the file is small relative to the
// model, so no streaming decode is implemented here.
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"localstt/enginerr"
)

const (
	// SampleRate is the only sample rate this reader accepts.
	SampleRate = 16000
	// BitDepth is the only bit depth this reader accepts.
	BitDepth = 16
	// Channels is the only channel count this reader accepts (mono).
	Channels = 1
)

// Buffer is a contiguous sequence of signed 16-bit samples, mono, 16kHz.
type Buffer struct {
	Samples []int16
}

// Duration returns the buffer's length in seconds.
func (b Buffer) Duration() float64 {
	return float64(len(b.Samples)) / float64(SampleRate)
}

// Float32 returns the buffer normalized to the [-1, 1] range expected by
// ASR/VAD backends.
func (b Buffer) Float32() []float32 {
	out := make([]float32, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Read opens path and decodes it as mono/16kHz/16-bit PCM WAV, failing with
// an enginerr.InvalidAudio error for any other channel count, sample rate,
// bit depth, or non-integer sample format.
func Read(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read", err)
		}
		return Buffer{}, enginerr.New(enginerr.IO, "audio.Read", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read", fmt.Errorf("not a valid WAV file"))
	}
	if dec.WavAudioFormat != 1 {
		return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read",
			fmt.Errorf("unsupported sample format %d, want PCM integer", dec.WavAudioFormat))
	}
	if dec.NumChans != Channels {
		return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read",
			fmt.Errorf("unsupported channel count %d, want mono", dec.NumChans))
	}
	if dec.SampleRate != SampleRate {
		return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read",
			fmt.Errorf("unsupported sample rate %d, want %d", dec.SampleRate, SampleRate))
	}
	if dec.BitDepth != BitDepth {
		return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read",
			fmt.Errorf("unsupported bit depth %d, want %d", dec.BitDepth, BitDepth))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, enginerr.New(enginerr.InvalidAudio, "audio.Read", err)
	}

	samples := pcmToInt16(buf)
	return Buffer{Samples: samples}, nil
}

func pcmToInt16(buf *audio.IntBuffer) []int16 {
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = int16(v)
	}
	return out
}

// HasSignificantAudio reports whether samples contain a plausible speech
// signal rather than pure digital silence or DC noise — a cheap guard
// applied to segmented regions ahead of ASR so near-silent regions don't
// burn inference time.
func HasSignificantAudio(samples []float32) bool {
	if len(samples) < SampleRate/10 { // < 0.1s
		return false
	}
	var sum float64
	var maxAbs float32
	for _, s := range samples {
		sum += float64(s) * float64(s)
		a := s
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}
	rms := sum / float64(len(samples))
	const minRMS2 = 0.005 * 0.005
	if rms < minRMS2 {
		return false
	}
	return maxAbs >= 0.01
}
