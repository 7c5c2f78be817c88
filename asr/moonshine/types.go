// Package moonshine implements the Moonshine ASR backend: a
// sub-chunked, fixed-language transcriber whose word timestamps are
// reconstructed by interpolation rather than reported natively.
package moonshine

// Kernel is the narrow capability interface around the Moonshine ONNX
// encoder/decoder pair. Kernel only says "given normalized samples,
// return text"; the inference sessions live behind it.
type Kernel interface {
	// Transcribe runs inference once over samples and returns the decoded
	// text with surrounding whitespace trimmed.
	Transcribe(samples []float32) (string, error)
}

// Variant describes one of the fixed Moonshine model variants
// (no autodetection: language is fixed per variant).
type Variant struct {
	Name     string
	Language string
}

// knownVariants mirrors cache.MoonshineLanguage's vocabulary as a
// separate table in this package.
var knownVariants = map[string]string{
	"tiny": "en", "tiny-ar": "ar", "tiny-zh": "zh", "tiny-ja": "ja",
	"tiny-ko": "ko", "tiny-uk": "uk", "tiny-vi": "vi",
	"base": "en", "base-es": "es",
}

// LanguageFor returns the fixed language code for a known variant name.
func LanguageFor(variant string) (string, bool) {
	lang, ok := knownVariants[variant]
	return lang, ok
}
