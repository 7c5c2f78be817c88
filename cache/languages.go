package cache

// whisperLanguages is Whisper's fixed language vocabulary, including
// "auto" for autodetection (mirrors the upstream engine's language
// tables).
var whisperLanguages = []string{
	"auto",
	"en", "zh", "de", "es", "ru", "ko", "fr", "ja", "pt", "tr", "pl", "ca", "nl", "ar", "sv", "it", "id",
	"hi", "fi", "vi", "he", "uk", "el", "ms", "cs", "ro", "da", "hu", "ta", "no", "th", "ur", "hr", "bg",
	"lt", "la", "mi", "ml", "cy", "sk", "te", "fa", "lv", "bn", "sr", "az", "sl", "kn", "et", "mk", "br",
	"eu", "is", "hy", "ne", "mn", "bs", "kk", "sq", "sw", "gl", "mr", "pa", "si", "km", "sn", "yo", "so",
	"af", "oc", "ka", "be", "tg", "sd", "gu", "am", "yi", "lo", "uz", "fo", "ht", "ps", "tk", "nn", "mt",
	"sa", "lb", "my", "bo", "tl", "mg", "as", "tt", "haw", "ln", "ha", "ba", "jw", "su", "yue",
}

// translateLanguages is the unofficial translate endpoint's supported
// target-language vocabulary.
var translateLanguages = []string{
	"af", "sq", "am", "ar", "hy", "az", "eu", "be", "bn", "bs", "bg", "ca", "ceb", "ny", "zh", "zh-TW",
	"co", "hr", "cs", "da", "nl", "en", "eo", "et", "tl", "fi", "fr", "fy", "gl", "ka", "de", "el", "gu",
	"ht", "ha", "haw", "he", "hi", "hmn", "hu", "is", "ig", "id", "ga", "it", "ja", "jv", "kn", "kk", "km",
	"rw", "ko", "ku", "ky", "lo", "la", "lv", "lt", "lb", "mk", "mg", "ms", "ml", "mt", "mi", "mr", "mn",
	"my", "ne", "no", "or", "ps", "fa", "pl", "pt", "pa", "ro", "ru", "sm", "gd", "sr", "st", "sn", "sd",
	"si", "sk", "sl", "so", "es", "su", "sw", "sv", "tg", "ta", "te", "th", "tr", "uk", "ur", "ug", "uz",
	"vi", "cy", "xh", "yi", "yo", "zu",
}

// WhisperLanguages returns the language codes Whisper accepts as a
// transcription-language hint, including "auto". The returned slice is
// a copy; callers may mutate it freely.
func WhisperLanguages() []string {
	out := make([]string, len(whisperLanguages))
	copy(out, whisperLanguages)
	return out
}

// TranslateLanguages returns the target-language codes the post-ASR
// Translator's unofficial endpoint supports.
func TranslateLanguages() []string {
	out := make([]string, len(translateLanguages))
	copy(out, translateLanguages)
	return out
}

// IsWhisperLanguage reports whether code is in Whisper's language
// vocabulary.
func IsWhisperLanguage(code string) bool {
	for _, l := range whisperLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// IsTranslateLanguage reports whether code is a valid translate target.
func IsTranslateLanguage(code string) bool {
	for _, l := range translateLanguages {
		if l == code {
			return true
		}
	}
	return false
}
