package vad

import (
	"math"

	"localstt/cache"
	"localstt/enginerr"
)

// centisecond is the resolution regions are rounded to.
const centisecond = 0.01

func roundCentisecond(sec float64) float64 {
	return math.Round(sec/centisecond) * centisecond
}

// Run detects speech regions across the full buffer duration (durationSec,
// computed from the sample count at 16kHz) and converts them to
// centisecond-resolution Regions clipped to [0, durationSec]; starts round
// down and ends round up, so a non-empty span never rounds to zero length.
// Regions with end <= start after clipping are dropped.
func Run(det Detector, samples []float32, durationSec float64, opts cache.StageOptions) ([]Region, error) {
	spans, err := det.DetectSpeech(samples)
	if err != nil {
		return nil, err
	}

	regions := make([]Region, 0, len(spans))
	for _, s := range spans {
		if opts.Cancelled() {
			return nil, enginerr.New(enginerr.Cancelled, "vad.Run", nil)
		}
		start := math.Floor(float64(s.StartMs)/10) / 100
		end := math.Ceil(float64(s.EndMs)/10) / 100
		if start < 0 {
			start = 0
		}
		if end > durationSec {
			end = durationSec
		}
		if end <= start {
			continue
		}
		regions = append(regions, Region{StartSec: start, EndSec: end})
	}
	return regions, nil
}

// SingleRegion returns a single region covering the whole buffer, used
// when both VAD and diarization are disabled.
func SingleRegion(durationSec float64) []Region {
	if durationSec <= 0 {
		return nil
	}
	return []Region{{StartSec: 0, EndSec: durationSec}}
}
