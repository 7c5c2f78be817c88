package whisper

import (
	"errors"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// CGO

/*
#include "whisper.h"
*/
import "C"

///////////////////////////////////////////////////////////////////////////////
// ERRORS

var (
	ErrUnableToLoadModel    = errors.New("unable to load model")
	ErrInternalAppError     = errors.New("internal application error")
	ErrProcessingFailed     = errors.New("processing failed")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrModelNotMultilingual = errors.New("model is not multilingual")
	ErrInvalidLanguage      = errors.New("invalid language")
	ErrAutoDetectFailed     = errors.New("language auto-detection failed")
	ErrConversionFailed     = errors.New("whisper_full failed")
)

///////////////////////////////////////////////////////////////////////////////
// CONSTANTS

// SampleRate is the sample rate of the audio data.
const SampleRate = C.WHISPER_SAMPLE_RATE

// SampleBits is the number of bits per sample.
const SampleBits = uint16(unsafe.Sizeof(C.float(0))) * 8

// NumFFT is the number of FFT bins.
const NumFFT = C.WHISPER_N_FFT

// HopLength is the hop length.
const HopLength = C.WHISPER_HOP_LENGTH

// ChunkSize is the chunk size.
const ChunkSize = C.WHISPER_CHUNK_SIZE

// AlignmentHeadsPreset selects the attention-head set whisper.cpp uses
// for DTW token-timestamp alignment. Values mirror whisper.cpp's
// whisper_alignment_heads_preset enum.
type AlignmentHeadsPreset int

const (
	AheadsNone AlignmentHeadsPreset = iota
	AheadsNTopMost
	AheadsCustom
	AheadsTinyEn
	AheadsTiny
	AheadsBaseEn
	AheadsBase
	AheadsSmallEn
	AheadsSmall
	AheadsMediumEn
	AheadsMedium
	AheadsLargeV1
	AheadsLargeV2
	AheadsLargeV3
	AheadsLargeV3Turbo
)

// PresetForModel maps a model name (as used in the hub manifest, e.g.
// "large-v3-turbo" or "tiny.en") to its DTW alignment-heads preset.
func PresetForModel(name string) AlignmentHeadsPreset {
	switch name {
	case "tiny.en":
		return AheadsTinyEn
	case "tiny":
		return AheadsTiny
	case "base.en":
		return AheadsBaseEn
	case "base":
		return AheadsBase
	case "small.en":
		return AheadsSmallEn
	case "small":
		return AheadsSmall
	case "medium.en":
		return AheadsMediumEn
	case "medium":
		return AheadsMedium
	case "large-v1":
		return AheadsLargeV1
	case "large-v2":
		return AheadsLargeV2
	case "large-v3":
		return AheadsLargeV3
	case "large-v3-turbo":
		return AheadsLargeV3Turbo
	default:
		return AheadsNTopMost
	}
}
