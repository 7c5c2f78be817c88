// Package subtitle implements the Subtitle Post-Processor: it
// turns the concatenated word tokens from every ASR/Translator segment
// into script-aware subtitle cues.
package subtitle

import "strings"

// Script identifies the writing-system family a Profile is tuned for.
type Script int

const (
	ScriptLatin Script = iota
	ScriptCJK
	ScriptSEAsianNoSpace
	ScriptRTL
	ScriptIndic
)

// Profile bundles the line/cue shaping rules for one script family.
type Profile struct {
	MaxCharsPerLine      int
	CPSCap               float64
	InsertInterwordSpace bool
	UseGraphemeLen       bool
	EnforceKinsoku       bool
	AllowCommaSplit      bool
	MaxLines             int
}

var baseProfiles = map[Script]Profile{
	ScriptLatin:          {MaxCharsPerLine: 38, CPSCap: 17.0, InsertInterwordSpace: true, UseGraphemeLen: true, EnforceKinsoku: false, AllowCommaSplit: true},
	ScriptCJK:            {MaxCharsPerLine: 20, CPSCap: 11.5, InsertInterwordSpace: false, UseGraphemeLen: true, EnforceKinsoku: true, AllowCommaSplit: true},
	ScriptSEAsianNoSpace: {MaxCharsPerLine: 22, CPSCap: 13.0, InsertInterwordSpace: true, UseGraphemeLen: true, EnforceKinsoku: false, AllowCommaSplit: false},
	ScriptRTL:            {MaxCharsPerLine: 28, CPSCap: 14.0, InsertInterwordSpace: true, UseGraphemeLen: true, EnforceKinsoku: false, AllowCommaSplit: true},
	ScriptIndic:          {MaxCharsPerLine: 30, CPSCap: 15.0, InsertInterwordSpace: true, UseGraphemeLen: true, EnforceKinsoku: false, AllowCommaSplit: true},
}

var languageScript = map[string]Script{
	"zh": ScriptCJK, "ja": ScriptCJK, "ko": ScriptCJK,
	"th": ScriptSEAsianNoSpace, "lo": ScriptSEAsianNoSpace, "km": ScriptSEAsianNoSpace, "my": ScriptSEAsianNoSpace,
	"ar": ScriptRTL, "fa": ScriptRTL, "ur": ScriptRTL, "he": ScriptRTL, "iw": ScriptRTL,
	"hi": ScriptIndic, "bn": ScriptIndic, "ta": ScriptIndic, "te": ScriptIndic, "mr": ScriptIndic,
	"gu": ScriptIndic, "kn": ScriptIndic, "ml": ScriptIndic, "pa": ScriptIndic, "ne": ScriptIndic,
}

// ScriptFor classifies a BCP-47-ish language code into its script
// family, defaulting to Latin for anything unlisted.
func ScriptFor(lang string) Script {
	lang = strings.ToLower(lang)
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}
	if s, ok := languageScript[lang]; ok {
		return s
	}
	return ScriptLatin
}

// Density scales a profile's max-chars-per-line.
type Density int

const (
	DensityNormal Density = iota
	DensityLoose
	DensityTight
)

func densityScale(d Density) float64 {
	switch d {
	case DensityLoose:
		return 0.7
	case DensityTight:
		return 1.3
	default:
		return 1.0
	}
}

// ProfileFor builds the effective profile for a language, density, and
// caller-supplied max-lines override (maxLines <= 0 means "use the
// default" of 1).
func ProfileFor(lang string, density Density, maxLines int) Profile {
	p := baseProfiles[ScriptFor(lang)]
	p.MaxCharsPerLine = int(float64(p.MaxCharsPerLine) * densityScale(density))
	if maxLines > 0 {
		p.MaxLines = maxLines
	} else {
		p.MaxLines = 1
	}
	return p
}
