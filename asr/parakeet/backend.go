package parakeet

import (
	"strings"

	"localstt/asr"
	"localstt/cache"
	"localstt/enginerr"
)

// Backend implements asr.Backend for Parakeet. Language is never
// reported.
type Backend struct {
	kernel Kernel
	opts   cache.StageOptions
}

// New constructs a Parakeet Backend over kernel.
func New(kernel Kernel, opts cache.StageOptions) *Backend {
	return &Backend{kernel: kernel, opts: opts}
}

// Transcribe implements asr.Backend.
func (b *Backend) Transcribe(regions []asr.Region, totalSamples int) ([]asr.Segment, string, error) {
	var segments []asr.Segment
	var prev *asr.Segment

	total := len(regions)
	for i, region := range regions {
		if b.opts.Cancelled() {
			return nil, "", enginerr.New(enginerr.Cancelled, "parakeet.Transcribe", nil)
		}

		result, err := b.kernel.Transcribe(region.Float32())
		if err != nil {
			return nil, "", enginerr.New(enginerr.InferenceFailed, "parakeet.Transcribe", err)
		}

		subs := result.Words
		relative := true
		if len(subs) == 0 {
			text := strings.TrimSpace(result.Text)
			if text != "" {
				// Fallback: no sub-segments but non-empty text ->
				// one segment spanning the whole region, already absolute.
				subs = []WordSegment{{Text: text, StartSec: region.StartSec, EndSec: region.EndSec}}
				relative = false
			}
		}

		for _, sub := range subs {
			text := strings.TrimSpace(sub.Text)
			if text == "" {
				continue
			}
			start, end := sub.StartSec, sub.EndSec
			if relative {
				start += region.StartSec
				end += region.StartSec
			}

			if prev != nil {
				asr.ResolveOverlap(prev, start)
				segments = append(segments, *prev)
			}
			seg := asr.Segment{
				StartSec: start, EndSec: end, Text: text,
				Words:     []asr.WordToken{{Text: text, StartSec: start, EndSec: end}},
				SpeakerID: region.SpeakerID,
			}
			prev = &seg
		}

		if total > 0 {
			b.opts.Report(float64(i+1) / float64(total) * 100)
		}
	}
	if prev != nil {
		segments = append(segments, *prev)
	}
	return segments, "", nil
}
