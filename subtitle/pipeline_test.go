package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localstt/asr"
)

func word(text string, start, end float64) asr.WordToken {
	return asr.WordToken{Text: text, StartSec: start, EndSec: end}
}

func TestBPEMergeJoinsFragmentedASCIIWordAcrossSmallGaps(t *testing.T) {
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("trans", 0.00, 0.20),
			word("human", 0.21, 0.40),
			word("ism", 0.41, 0.60),
		},
	}}

	cues := Process(segs, ProfileFor("en", DensityNormal, 2))
	require.Len(t, cues, 1)
	require.Len(t, cues[0].Words, 1)
	assert.Equal(t, "transhumanism", cues[0].Words[0].Text)
}

func TestBPEMergeDoesNotJoinAcrossWordBoundarySpace(t *testing.T) {
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("hello", 0.00, 0.30),
			word(" world", 0.31, 0.60),
		},
	}}

	cues := Process(segs, ProfileFor("en", DensityNormal, 2))
	require.Len(t, cues, 1)
	require.Len(t, cues[0].Words, 2)
}

func TestGroupSplitsOnTerminalPunctuation(t *testing.T) {
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("Hello.", 0.0, 0.4),
			word(" World", 0.5, 0.9),
		},
	}}

	cues := Process(segs, ProfileFor("en", DensityNormal, 2))
	require.Len(t, cues, 2)
	assert.Equal(t, []string{"Hello."}, cues[0].Lines)
	assert.Equal(t, []string{"World"}, cues[1].Lines)
}

func TestGroupSplitsOnLargeGap(t *testing.T) {
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("one", 0.0, 0.4),
			word(" two", 2.0, 2.4),
		},
	}}

	cues := Process(segs, ProfileFor("en", DensityNormal, 2))
	require.Len(t, cues, 2)
}

func TestTinyWordClampGrowsAndMergesBelowMinimumDuration(t *testing.T) {
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("a", 0.0, 0.02),
			word(" b", 0.03, 0.05),
		},
	}}

	cues := Process(segs, ProfileFor("en", DensityNormal, 2))
	require.Len(t, cues, 1)
	for _, w := range cues[0].Words {
		assert.GreaterOrEqual(t, w.EndSec-w.StartSec, 0.0)
	}
}

func TestCueWindowingRespectsMaxDuration(t *testing.T) {
	var words []asr.WordToken
	for i := 0; i < 20; i++ {
		start := float64(i)
		words = append(words, word(" word", start, start+0.4))
	}
	segs := []asr.Segment{{SpeakerID: "spk0", Words: words}}

	cues := Process(segs, ProfileFor("en", DensityNormal, 2))
	for _, c := range cues {
		assert.LessOrEqual(t, c.EndSec-c.StartSec, maxSubDur+0.001)
	}
}

func TestLineSplittingPrefersPunctuationOverFunctionWordEdge(t *testing.T) {
	// 66 graphemes total: over one CPL, under CPL*2, comma near the
	// midpoint so the comma bonus decides against the "to" edges.
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("We", 0.0, 0.2),
			word(" started", 0.2, 0.6),
			word(" the", 0.6, 0.8),
			word(" journey", 0.8, 1.2),
			word(" early,", 1.2, 1.6),
			word(" hoping", 1.6, 2.0),
			word(" to", 2.0, 2.2),
			word(" reach", 2.2, 2.5),
			word(" the", 2.5, 2.7),
			word(" coast", 2.7, 3.1),
			word(" at", 3.1, 3.3),
			word(" sunset.", 3.3, 3.8),
		},
	}}

	profile := ProfileFor("en", DensityNormal, 2)
	cues := Process(segs, profile)
	require.Len(t, cues, 1)
	require.Len(t, cues[0].Lines, 2)
	assert.Equal(t, "We started the journey early,", cues[0].Lines[0])
	assert.Equal(t, "hoping to reach the coast at sunset.", cues[0].Lines[1])
}

func TestProcessIsIdempotentOnItsOwnOutput(t *testing.T) {
	segs := []asr.Segment{{
		SpeakerID: "spk0",
		Words: []asr.WordToken{
			word("Hello.", 0.0, 0.4),
			word(" World.", 0.6, 1.0),
		},
	}}

	profile := ProfileFor("en", DensityNormal, 2)
	first := Process(segs, profile)

	var reSegs []asr.Segment
	for _, c := range first {
		reSegs = append(reSegs, asr.Segment{SpeakerID: c.SpeakerID, Words: c.Words})
	}
	second := Process(reSegs, profile)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Lines, second[i].Lines)
		assert.Equal(t, first[i].StartSec, second[i].StartSec)
		assert.Equal(t, first[i].EndSec, second[i].EndSec)
	}
}

func TestResolveCueOverlapsTruncatesPreviousCue(t *testing.T) {
	cues := []Cue{
		{StartSec: 0, EndSec: 2, Words: []asr.WordToken{{Text: "a", StartSec: 0, EndSec: 2}}},
		{StartSec: 1.5, EndSec: 3, Words: []asr.WordToken{{Text: "b", StartSec: 1.5, EndSec: 3}}},
	}
	resolveCueOverlaps(cues)
	assert.Equal(t, 1.5, cues[0].EndSec)
	assert.Equal(t, 1.5, cues[0].Words[0].EndSec)
}

func TestGraphemeLenCoalescesCombiningMarks(t *testing.T) {
	base := "é" // "e" + combining acute accent
	assert.Equal(t, 1, graphemeLen(base))
}

func TestScriptForClassifiesLanguages(t *testing.T) {
	assert.Equal(t, ScriptCJK, ScriptFor("zh-CN"))
	assert.Equal(t, ScriptRTL, ScriptFor("ar"))
	assert.Equal(t, ScriptLatin, ScriptFor("en"))
}

func TestProfileForAppliesDensityScaling(t *testing.T) {
	loose := ProfileFor("en", DensityLoose, 2)
	tight := ProfileFor("en", DensityTight, 2)
	assert.Less(t, loose.MaxCharsPerLine, tight.MaxCharsPerLine)
}

func kinsokuTokens() []token {
	chars := []string{"天", "気", "が", "」", "良", "い", "で", "す"}
	toks := make([]token, len(chars))
	for i, c := range chars {
		toks[i] = token{core: c, startSec: float64(i), endSec: float64(i) + 0.3}
	}
	return toks
}

func TestLineSplittingWithoutKinsokuMayStartLineWithClosingBracket(t *testing.T) {
	profile := Profile{MaxCharsPerLine: 5, MaxLines: 2, UseGraphemeLen: true}

	lines := splitLines(kinsokuTokens(), profile)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "」"))
}

func TestLineSplittingEnforcesKinsokuAvoidsLeadingClosingBracket(t *testing.T) {
	profile := Profile{MaxCharsPerLine: 5, MaxLines: 2, UseGraphemeLen: true, EnforceKinsoku: true}

	lines := splitLines(kinsokuTokens(), profile)
	require.Len(t, lines, 2)
	assert.False(t, strings.HasPrefix(lines[1], "」"))
}
