package cache

import (
	"fmt"
	"strings"
)

// whisperRepo is the HuggingFace repository GGML Whisper binaries and the
// macOS CoreML encoder archives are published under.
var whisperRepo = repoID{Owner: "ggerganov", Repo: "whisper.cpp"}

// whisperVariants maps each supported Whisper model name to its GGML
// filename within whisperRepo.
var whisperVariants = map[string]string{
	"tiny": "ggml-tiny.bin", "tiny.en": "ggml-tiny.en.bin",
	"base": "ggml-base.bin", "base.en": "ggml-base.en.bin",
	"small": "ggml-small.bin", "small.en": "ggml-small.en.bin",
	"medium": "ggml-medium.bin", "medium.en": "ggml-medium.en.bin",
	"large-v3":       "ggml-large-v3.bin",
	"large-v3-turbo": "ggml-large-v3-turbo.bin",
}

func whisperDownloadURL(filename string) string {
	return fmt.Sprintf("https://huggingface.co/%s/%s/resolve/main/%s", whisperRepo.Owner, whisperRepo.Repo, filename)
}

func whisperCoreMLArchiveName(variant string) string {
	return fmt.Sprintf("ggml-%s-encoder.mlmodelc.zip", variant)
}

// parakeetRepo and parakeetManifest describe the fixed set of files the
// Parakeet backend's snapshot directory must contain.
var parakeetRepo = repoID{Owner: "csukuangfj", Repo: "sherpa-onnx-nemo-parakeet-tdt-0.6b-v2-int8"}

var parakeetManifest = []string{
	"encoder.int8.onnx",
	"decoder.int8.onnx",
	"joiner.int8.onnx",
	"tokens.txt",
	"config.json",
}

// moonshineVariants maps a Moonshine variant name to its language code
// and quantization subpath.
var moonshineVariants = map[string]struct {
	Lang         string
	Quantization string
}{
	"tiny":      {Lang: "en", Quantization: "quantized"},
	"tiny-ar":   {Lang: "ar", Quantization: "quantized"},
	"tiny-zh":   {Lang: "zh", Quantization: "quantized"},
	"tiny-ja":   {Lang: "ja", Quantization: "quantized"},
	"tiny-ko":   {Lang: "ko", Quantization: "quantized"},
	"tiny-uk":   {Lang: "uk", Quantization: "quantized"},
	"tiny-vi":   {Lang: "vi", Quantization: "quantized"},
	"base":      {Lang: "en", Quantization: "quantized"},
	"base-es":   {Lang: "es", Quantization: "quantized"},
}

var moonshineFiles = []string{"encoder_model.onnx", "decoder_model_merged.onnx", "tokenizer.json"}

func moonshineDownloadURL(variant, filename string) string {
	v := moonshineVariants[variant]
	return fmt.Sprintf("https://huggingface.co/usefulsensors/moonshine/resolve/main/%s/%s/%s", variant, v.Quantization, filename)
}

// vadRepo hosts the Silero VAD ONNX export.
var vadRepo = repoID{Owner: "csukuangfj", Repo: "sherpa-onnx-silero-vad"}

const vadFilename = "silero_vad.onnx"

func vadDownloadURL() string {
	return fmt.Sprintf("https://huggingface.co/%s/%s/resolve/main/%s", vadRepo.Owner, vadRepo.Repo, vadFilename)
}

// WhisperVariant reports whether name is a known Whisper model name and,
// if so, its GGML filename.
func WhisperVariant(name string) (filename string, ok bool) {
	filename, ok = whisperVariants[name]
	return
}

// MoonshineLanguage returns the fixed language code for a Moonshine
// variant.
func MoonshineLanguage(variant string) (string, bool) {
	v, ok := moonshineVariants[variant]
	if !ok {
		return "", false
	}
	return v.Lang, true
}

// ModelInfo is descriptive metadata about a cacheable model, separate
// from the hub layout: display name, approximate download size, and a
// recommended flag for callers building a model picker.
type ModelInfo struct {
	Name        string // the cache vocabulary name, e.g. "large-v3-turbo"
	DisplayName string
	SizeLabel   string
	SizeBytes   int64
	Recommended bool
}

// whisperInfo carries per-variant display metadata for the Whisper
// model picker.
var whisperInfo = map[string]ModelInfo{
	"tiny":           {DisplayName: "Tiny", SizeLabel: "74 MB", SizeBytes: 77_691_713},
	"tiny.en":        {DisplayName: "Tiny (English)", SizeLabel: "74 MB", SizeBytes: 77_691_713},
	"base":           {DisplayName: "Base", SizeLabel: "141 MB", SizeBytes: 147_951_465},
	"base.en":        {DisplayName: "Base (English)", SizeLabel: "141 MB", SizeBytes: 147_951_465},
	"small":          {DisplayName: "Small", SizeLabel: "465 MB", SizeBytes: 487_601_967},
	"small.en":       {DisplayName: "Small (English)", SizeLabel: "465 MB", SizeBytes: 487_601_967},
	"medium":         {DisplayName: "Medium", SizeLabel: "1.4 GB", SizeBytes: 1_533_774_781},
	"medium.en":      {DisplayName: "Medium (English)", SizeLabel: "1.4 GB", SizeBytes: 1_533_774_781},
	"large-v3":       {DisplayName: "Large V3", SizeLabel: "2.9 GB", SizeBytes: 3_094_623_691},
	"large-v3-turbo": {DisplayName: "Large V3 Turbo", SizeLabel: "1.5 GB", SizeBytes: 1_624_417_792, Recommended: true},
}

// InfoFor returns descriptive metadata for a cached model name as
// reported by ListCached (a Whisper variant, "parakeet", "vad", or a
// "moonshine-<variant>" name). ok is false for an unrecognized name.
func InfoFor(name string) (ModelInfo, bool) {
	if info, ok := whisperInfo[name]; ok {
		info.Name = name
		return info, true
	}
	if name == "parakeet" {
		return ModelInfo{Name: name, DisplayName: "Parakeet TDT 0.6B", SizeLabel: "~650 MB", SizeBytes: 681_574_400}, true
	}
	if name == "vad" {
		return ModelInfo{Name: name, DisplayName: "Silero VAD", SizeLabel: "~2 MB", SizeBytes: 2_269_992}, true
	}
	if variant, ok := strings.CutPrefix(name, "moonshine-"); ok {
		if _, known := moonshineVariants[variant]; known {
			return ModelInfo{Name: name, DisplayName: "Moonshine " + variant, SizeLabel: "~190 MB", SizeBytes: 199_229_440}, true
		}
	}
	return ModelInfo{}, false
}
