package engine

import (
	"localstt/asr"
	"localstt/subtitle"
)

// Speaker is one aggregated speaker entry in the façade's output: the
// time range of the speaker's first occurrence, keyed by its
// engine-assigned ID.
type Speaker struct {
	Name           string
	SampleStartSec float64
	SampleEndSec   float64
}

// Result is the façade's single asynchronous operation's return value.
type Result struct {
	ProcessingTimeSec float64
	Segments          []subtitle.Cue
	Speakers          []Speaker
}

// aggregateSpeakers collects distinct non-empty, non-"?" speaker IDs in
// first-seen order and emits one entry per speaker with the time range
// of its first occurrence.
func aggregateSpeakers(segments []asr.Segment) []Speaker {
	var out []Speaker
	seen := map[string]bool{}
	for _, seg := range segments {
		id := seg.SpeakerID
		if id == "" || id == "?" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Speaker{Name: id, SampleStartSec: seg.StartSec, SampleEndSec: seg.EndSec})
	}
	return out
}
