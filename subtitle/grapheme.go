package subtitle

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// graphemeLen approximates the extended-grapheme-cluster length of s:
// NFC-normalize, then count runes, treating any combining mark as part
// of the preceding base rune rather than a cluster of its own.
// golang.org/x/text ships normalization but not UAX #29
// grapheme-cluster breaking, so mark coalescing stands in for full
// cluster segmentation.
func graphemeLen(s string) int {
	normalized := norm.NFC.String(s)
	count := 0
	for _, r := range normalized {
		if isCombiningMark(r) {
			continue
		}
		count++
	}
	return count
}

func isCombiningMark(r rune) bool {
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Me, r)
}

// charLen picks grapheme-aware or rune-count length per the profile.
func charLen(p Profile, s string) int {
	if p.UseGraphemeLen {
		return graphemeLen(s)
	}
	return len([]rune(s))
}
