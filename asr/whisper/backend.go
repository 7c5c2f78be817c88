package whisper

import (
	"regexp"
	"strings"
	"time"

	"localstt/asr"
	binding "localstt/asr/whisper/binding"
	"localstt/cache"
	"localstt/enginerr"
)

const (
	minDTWBytes = 24 * 1024 * 1024
	maxDTWBytes = 768 * 1024 * 1024
	dtwAlign    = 8 * 1024 * 1024
)

// DTWWorkingSetBytes sizes the DTW alignment working set: given N
// samples, F frames at 10ms/16kHz, a band width keyed by F, and a byte
// formula clamped to [24 MiB, 768 MiB] and aligned up to 8 MiB. The
// result feeds binding.InitParams.DTWMemSize at model load.
func DTWWorkingSetBytes(totalSamples int) uint64 {
	frames := (totalSamples + 159) / 160
	var band int
	switch {
	case frames <= 15000:
		band = 96
	case frames <= 45000:
		band = 128
	default:
		band = 160
	}

	bytes := uint64(minDTWBytes) + uint64(frames)*uint64(band)*4*4 + uint64(frames)*4
	if bytes < minDTWBytes {
		bytes = minDTWBytes
	}
	if bytes > maxDTWBytes {
		bytes = maxDTWBytes
	}
	if rem := bytes % dtwAlign; rem != 0 {
		bytes += dtwAlign - rem
	}
	return bytes
}

// controlTokenRe matches a bracketed whisper.cpp control marker, e.g.
// "[_BEG_]" or "[_TT_320]". The same
// pattern strips both whole control tokens and markers embedded inside
// otherwise-printable tokens.
var controlTokenRe = regexp.MustCompile(`\[_[A-Z0-9_]+\]`)

func stripControlMarkers(s string) string {
	return controlTokenRe.ReplaceAllString(s, "")
}

// Backend implements asr.Backend for Whisper. DTW alignment and
// flash-attention are already fixed on the model itself (they are
// load-time parameters); this backend owns the per-region decode loop.
type Backend struct {
	model Model
	cfg   Config
	opts  cache.StageOptions
}

// New constructs a Whisper Backend over an already-loaded model.
func New(model Model, cfg Config, opts cache.StageOptions) *Backend {
	return &Backend{model: model, cfg: cfg, opts: opts}
}

// Transcribe implements asr.Backend. The returned language is the
// locked-in auto-detected code, or the user-supplied code when not
// "auto".
func (b *Backend) Transcribe(regions []asr.Region, totalSamples int) ([]asr.Segment, string, error) {
	ctx, err := b.model.NewContext()
	if err != nil {
		return nil, "", enginerr.New(enginerr.InferenceFailed, "whisper.Transcribe", err)
	}

	lockedLanguage := b.cfg.Language
	autoDetect := lockedLanguage == "" || lockedLanguage == "auto"
	if autoDetect {
		lockedLanguage = ""
	}

	var segments []asr.Segment
	var prev *asr.Segment
	var initialPrompt string

	total := len(regions)
	for i, region := range regions {
		if b.opts.Cancelled() {
			return nil, "", enginerr.New(enginerr.Cancelled, "whisper.Transcribe", nil)
		}

		if err := b.configureContext(ctx, lockedLanguage, initialPrompt); err != nil {
			return nil, "", enginerr.New(enginerr.InferenceFailed, "whisper.Transcribe", err)
		}

		var rawSegments []binding.Segment
		encoderBegin := func() bool { return !b.opts.Cancelled() }
		newSeg := func(s binding.Segment) { rawSegments = append(rawSegments, s) }

		if err := ctx.Process(region.Float32(), encoderBegin, newSeg, nil); err != nil {
			if b.opts.Cancelled() {
				return nil, "", enginerr.New(enginerr.Cancelled, "whisper.Transcribe", nil)
			}
			return nil, "", enginerr.New(enginerr.InferenceFailed, "whisper.Transcribe", err)
		}

		if autoDetect && lockedLanguage == "" {
			lockedLanguage = ctx.DetectedLanguage()
		}

		baseOffset := region.StartSec + b.cfg.UserOffsetSec
		for _, raw := range rawSegments {
			seg := b.buildSegment(raw, baseOffset, region)
			if seg == nil {
				continue
			}
			if prev != nil {
				asr.ResolveOverlap(prev, seg.StartSec)
				segments = append(segments, *prev)
			}
			prev = seg
			if strings.TrimSpace(seg.Text) != "" {
				initialPrompt = seg.Text
			}
		}

		if total > 0 {
			b.opts.Report(float64(i+1) / float64(total) * 100)
		}
	}
	if prev != nil {
		segments = append(segments, *prev)
	}

	if autoDetect {
		return segments, lockedLanguage, nil
	}
	return segments, b.cfg.Language, nil
}

func (b *Backend) configureContext(ctx binding.Context, language, initialPrompt string) error {
	ctx.SetSingleSegment(true)
	ctx.SetTokenTimestamps(true)
	ctx.SetSplitOnWord(true)
	if b.cfg.Threads > 0 {
		ctx.SetThreads(b.cfg.Threads)
	}
	if initialPrompt != "" {
		ctx.SetInitialPrompt(initialPrompt)
	}
	ctx.SetTranslate(b.cfg.WhisperToEnglish)

	if language == "" {
		language = "auto"
	}
	return ctx.SetLanguage(language)
}

// buildSegment converts one raw whisper.cpp segment: control-token
// stripping, DTW midpoint bounds (or interpolation under
// whisper_to_english), and base-offset shifting.
func (b *Backend) buildSegment(raw binding.Segment, baseOffset float64, region asr.Region) *asr.Segment {
	text := strings.TrimSpace(stripControlMarkers(raw.Text))
	if text == "" {
		return nil
	}

	var words []asr.WordToken
	if b.cfg.WhisperToEnglish {
		words = b.interpolatedWords(raw, baseOffset)
	} else {
		words = b.dtwWords(raw, baseOffset)
	}

	return &asr.Segment{
		StartSec:  baseOffset + raw.Start.Seconds(),
		EndSec:    baseOffset + raw.End.Seconds(),
		Text:      text,
		Words:     words,
		SpeakerID: region.SpeakerID,
	}
}

func (b *Backend) dtwWords(raw binding.Segment, baseOffset float64) []asr.WordToken {
	kept := make([]binding.Token, 0, len(raw.Tokens))
	for _, tok := range raw.Tokens {
		stripped := stripControlMarkers(tok.Text)
		if strings.TrimSpace(stripped) == "" {
			continue
		}
		tok.Text = stripped
		kept = append(kept, tok)
	}

	words := make([]asr.WordToken, len(kept))
	for i, tok := range kept {
		start, end := tok.Start, tok.End
		if i > 0 && kept[i-1].HasDTW && tok.HasDTW {
			start = midpoint(kept[i-1].DTWTime, tok.DTWTime)
		}
		if i+1 < len(kept) && tok.HasDTW && kept[i+1].HasDTW {
			end = midpoint(tok.DTWTime, kept[i+1].DTWTime)
		}
		p := tok.P
		words[i] = asr.WordToken{
			Text:        tok.Text,
			StartSec:    baseOffset + start.Seconds(),
			EndSec:      baseOffset + end.Seconds(),
			Probability: &p,
		}
	}
	return words
}

func midpoint(a, b time.Duration) time.Duration {
	return (a + b) / 2
}

// interpolatedWords substitutes token timings when whisper_to_english is
// active and built-in translation has made per-token timestamps
// unreliable.
func (b *Backend) interpolatedWords(raw binding.Segment, baseOffset float64) []asr.WordToken {
	texts := make([]string, 0, len(raw.Tokens))
	for _, tok := range raw.Tokens {
		stripped := stripControlMarkers(tok.Text)
		if strings.TrimSpace(stripped) == "" {
			continue
		}
		texts = append(texts, stripped)
	}
	if len(texts) == 0 {
		return nil
	}

	start := baseOffset + raw.Start.Seconds()
	end := baseOffset + raw.End.Seconds()
	return asr.InterpolateWords(texts, start, end)
}
