package diarize

import (
	"localstt/cache"
	"localstt/enginerr"
)

// maxChunkSamples bounds a single native segmentation call to avoid
// hanging on pathological long-form audio (15s at 16kHz).
const maxChunkSamples = 240000

// chunkOverlapSamples is the overlap between consecutive chunks used to
// stitch segmentation boundaries back together.
const chunkOverlapSamples = 16000

// Run segments the full buffer (chunked for long audio), computes an
// embedding per region, and labels each region through an
// EmbeddingManager with the given capacity and match threshold.
func Run(seg Segmenter, emb Embedder, samples []float32, maxSpeakers int, threshold float32, opts cache.StageOptions) ([]Region, error) {
	spans, err := segmentChunked(seg, samples, opts)
	if err != nil {
		return nil, err
	}

	manager := NewEmbeddingManager(maxSpeakers)
	regions := make([]Region, 0, len(spans))

	total := len(spans)
	for i, s := range spans {
		if opts.Cancelled() {
			return nil, enginerr.New(enginerr.Cancelled, "diarize.Run", nil)
		}

		startSample := int(s.StartSec * 16000)
		endSample := int(s.EndSec * 16000)
		if startSample < 0 {
			startSample = 0
		}
		if endSample > len(samples) {
			endSample = len(samples)
		}

		speakerID := unknownSpeaker
		if startSample < endSample {
			vector, embErr := emb.Embed(samples[startSample:endSample])
			if embErr == nil {
				speakerID = manager.Assign(vector, threshold)
			}
		}

		regions = append(regions, Region{StartSec: s.StartSec, EndSec: s.EndSec, SpeakerID: speakerID})

		if total > 0 {
			opts.Report(float64(i+1) / float64(total) * 100)
		}
	}

	return regions, nil
}

// segmentChunked splits samples into bounded chunks when needed, runs
// the segmentation model on each, and merges overlapping same-position
// spans produced by chunk overlap back together. Raw spans are merged
// before labeling, which happens later in Run.
func segmentChunked(seg Segmenter, samples []float32, opts cache.StageOptions) ([]RawSpan, error) {
	if len(samples) <= maxChunkSamples {
		return seg.Segment(samples)
	}

	var all []RawSpan
	offset := 0
	for offset < len(samples) {
		if opts.Cancelled() {
			return nil, enginerr.New(enginerr.Cancelled, "diarize.segmentChunked", nil)
		}

		end := offset + maxChunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[offset:end]
		chunkOffsetSec := float64(offset) / 16000

		spans, err := seg.Segment(chunk)
		if err != nil {
			return nil, err
		}
		for _, s := range spans {
			all = append(all, RawSpan{StartSec: s.StartSec + chunkOffsetSec, EndSec: s.EndSec + chunkOffsetSec})
		}

		next := end - chunkOverlapSamples
		if next <= offset {
			break
		}
		if len(samples)-next < 16000 {
			break
		}
		offset = next
	}

	return mergeOverlappingSpans(all), nil
}

// mergeOverlappingSpans merges spans that touch or overlap within 0.5s,
// after sorting by start time.
func mergeOverlappingSpans(spans []RawSpan) []RawSpan {
	if len(spans) <= 1 {
		return spans
	}

	sorted := make([]RawSpan, len(spans))
	copy(sorted, spans)
	for i := 0; i < len(sorted)-1; i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].StartSec < sorted[i].StartSec {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}

	merged := make([]RawSpan, 0, len(sorted))
	current := sorted[0]
	for _, s := range sorted[1:] {
		if s.StartSec <= current.EndSec+0.5 {
			if s.EndSec > current.EndSec {
				current.EndSec = s.EndSec
			}
			continue
		}
		merged = append(merged, current)
		current = s
	}
	merged = append(merged, current)
	return merged
}
