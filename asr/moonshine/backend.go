package moonshine

import (
	"strings"

	"localstt/asr"
	"localstt/cache"
	"localstt/enginerr"
)

// maxChunkSamples bounds a single Moonshine call to 64s of audio;
// longer regions are sub-chunked at 64s boundaries.
const maxChunkSamples = 64 * 16000

// Backend implements asr.Backend for the Moonshine ASR variants. Language
// is fixed per variant (no autodetection), so it never reports a
// detected language back to the dispatcher.
type Backend struct {
	kernel Kernel
	opts   cache.StageOptions
}

// New constructs a Moonshine Backend over kernel.
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
			return nil, "", enginerr.New(enginerr.Cancelled, "moonshine.Transcribe", nil)
		}

		for _, chunk := range splitChunks(region) {
			text, err := b.kernel.Transcribe(chunk.Float32())
			if err != nil {
				return nil, "", enginerr.New(enginerr.InferenceFailed, "moonshine.Transcribe", err)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			tokens := asr.SplitWhitespaceWithLeadingSpace(text)
			words := asr.InterpolateWords(tokens, chunk.StartSec, chunk.EndSec)

			if prev != nil {
				asr.ResolveOverlap(prev, chunk.StartSec)
				segments = append(segments, *prev)
			}
			seg := asr.Segment{
				StartSec: chunk.StartSec, EndSec: chunk.EndSec,
				Text: text, Words: words, SpeakerID: region.SpeakerID,
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

// splitChunks partitions a region into sub-regions no longer than 64s
//, preserving absolute start/end timing.
func splitChunks(region asr.Region) []asr.Region {
	if len(region.Samples) <= maxChunkSamples {
		return []asr.Region{region}
	}
	var chunks []asr.Region
	offset := 0
	for offset < len(region.Samples) {
		end := offset + maxChunkSamples
		if end > len(region.Samples) {
			end = len(region.Samples)
		}
		startSec := region.StartSec + float64(offset)/16000
		endSec := region.StartSec + float64(end)/16000
		chunks = append(chunks, asr.Region{
			StartSec: startSec, EndSec: endSec,
			Samples: region.Samples[offset:end], SpeakerID: region.SpeakerID,
		})
		offset = end
	}
	return chunks
}
