package asr

import "strings"

// alnumWeight counts the alphanumeric runes in text, with a floor of 1
// so punctuation-only tokens still receive a sliver of the window.
func alnumWeight(text string) float64 {
	count := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return float64(count)
}

// InterpolateWords assigns start/end times to tokens by distributing
// [startSec, endSec] proportionally to each token's alphanumeric weight,
// in order. Used whenever a backend's own per-token timestamps are
// unreliable or absent (Whisper's whisper_to_english path, Moonshine's
// chunk transcription).
func InterpolateWords(tokens []string, startSec, endSec float64) []WordToken {
	if len(tokens) == 0 {
		return nil
	}

	weights := make([]float64, len(tokens))
	total := 0.0
	for i, t := range tokens {
		weights[i] = alnumWeight(t)
		total += weights[i]
	}

	span := endSec - startSec
	if span < 0 {
		span = 0
	}

	out := make([]WordToken, len(tokens))
	cursor := startSec
	for i, t := range tokens {
		dur := span * weights[i] / total
		out[i] = WordToken{Text: t, StartSec: cursor, EndSec: cursor + dur}
		cursor += dur
	}
	if len(out) > 0 {
		out[len(out)-1].EndSec = endSec
	}
	return out
}

// SplitWhitespaceWithLeadingSpace splits text on whitespace and re-prefixes
// every token after the first with a single space, reproducing the
// leading-space word-boundary flag.
func SplitWhitespaceWithLeadingSpace(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, len(fields))
	for i, f := range fields {
		if i == 0 {
			out[i] = f
			continue
		}
		out[i] = " " + f
	}
	return out
}

// ResolveOverlap truncates prev's end (and its last word's end) to cur's
// start when prev overhangs into cur, applied before appending each new
// segment across every backend.
func ResolveOverlap(prev *Segment, curStart float64) {
	if prev == nil || prev.EndSec <= curStart {
		return
	}
	prev.EndSec = curStart
	if n := len(prev.Words); n > 0 && prev.Words[n-1].EndSec > curStart {
		prev.Words[n-1].EndSec = curStart
		if prev.Words[n-1].StartSec > prev.Words[n-1].EndSec {
			prev.Words[n-1].StartSec = prev.Words[n-1].EndSec
		}
	}
}
