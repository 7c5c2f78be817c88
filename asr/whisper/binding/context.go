package whisper

import (
	"fmt"
	"io"
	"strings"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type context struct {
	n      int
	model  *model
	params WhisperParams
}

var _ Context = (*context)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newContext(model *model, params WhisperParams) (Context, error) {
	ctx := new(context)
	ctx.model = model
	ctx.params = params
	return ctx, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (ctx *context) SetLanguage(lang string) error {
	if ctx.model.ctx == nil {
		return ErrInternalAppError
	}
	if !ctx.model.IsMultilingual() {
		return ErrModelNotMultilingual
	}
	if lang == "auto" {
		return ctx.params.SetLanguage(-1)
	}
	id := ctx.model.ctx.Whisper_lang_id(lang)
	if id == -1 {
		return ErrInvalidLanguage
	}
	return ctx.params.SetLanguage(id)
}

func (ctx *context) Language() string {
	id := ctx.params.Language()
	if id == -1 {
		return "auto"
	}
	return Whisper_lang_str(id)
}

func (ctx *context) DetectedLanguage() string {
	return Whisper_lang_str(ctx.model.ctx.Whisper_full_lang_id())
}

func (ctx *context) IsMultilingual() bool {
	return ctx.model.IsMultilingual()
}

func (ctx *context) SetOffset(d time.Duration)   { ctx.params.SetOffset(int(d.Milliseconds())) }
func (ctx *context) SetDuration(d time.Duration) { ctx.params.SetDuration(int(d.Milliseconds())) }
func (ctx *context) SetThreads(n uint)           { ctx.params.SetThreads(int(n)) }
func (ctx *context) SetTranslate(v bool)         { ctx.params.SetTranslate(v) }
func (ctx *context) SetSplitOnWord(v bool)       { ctx.params.SetSplitOnWord(v) }
func (ctx *context) SetTokenTimestamps(v bool)   { ctx.params.SetTokenTimestamps(v) }
func (ctx *context) SetTokenThreshold(t float32) { ctx.params.SetTokenThreshold(t) }
func (ctx *context) SetTokenSumThreshold(t float32) {
	ctx.params.SetTokenSumThreshold(t)
}
func (ctx *context) SetMaxSegmentLength(n uint)    { ctx.params.SetMaxSegmentLength(int(n)) }
func (ctx *context) SetMaxTokensPerSegment(n uint) { ctx.params.SetMaxTokensPerSegment(int(n)) }
func (ctx *context) SetBeamSize(n int)             { ctx.params.SetBeamSize(n) }
func (ctx *context) SetEntropyThold(t float32)     { ctx.params.SetEntropyThold(t) }
func (ctx *context) SetTemperature(t float32)      { ctx.params.SetTemperature(t) }
func (ctx *context) SetInitialPrompt(prompt string) {
	ctx.params.SetInitialPrompt(prompt)
}
func (ctx *context) SetSingleSegment(v bool) { ctx.params.SetSingleSegment(v) }

func (ctx *context) Process(samples []float32, encoderBeginCallback EncoderBeginCallback, newSegmentCallback SegmentCallback, progressCallback ProgressCallback) error {
	if ctx.model.ctx == nil {
		return ErrInternalAppError
	}

	ctx.n = 0

	var ebCb func() bool
	if encoderBeginCallback != nil {
		ebCb = encoderBeginCallback
	}
	var progCb func(int)
	if progressCallback != nil {
		progCb = func(p int) { progressCallback(p) }
	}

	cb := func(nNew int) {
		if newSegmentCallback == nil {
			return
		}
		nSegments := ctx.model.ctx.Whisper_full_n_segments()
		start := nSegments - nNew
		for i := start; i < nSegments; i++ {
			newSegmentCallback(toSegment(ctx.model.ctx, i))
		}
	}

	return ctx.model.ctx.Whisper_full(ctx.params, samples, ebCb, cb, progCb)
}

func (ctx *context) Text() string {
	if ctx.model.ctx == nil {
		return ""
	}
	n := ctx.model.ctx.Whisper_full_n_segments()
	str := make([]string, n)
	for i := 0; i < n; i++ {
		str[i] = ctx.model.ctx.Whisper_full_get_segment_text(i)
	}
	return strings.Join(str, "")
}

func (ctx *context) Segments() []Segment {
	if ctx.model.ctx == nil {
		return nil
	}
	n := ctx.model.ctx.Whisper_full_n_segments()
	segments := make([]Segment, n)
	for i := 0; i < n; i++ {
		segments[i] = toSegment(ctx.model.ctx, i)
	}
	return segments
}

func (ctx *context) Tokens() []Token {
	if ctx.model.ctx == nil {
		return nil
	}
	var all []Token
	n := ctx.model.ctx.Whisper_full_n_segments()
	for i := 0; i < n; i++ {
		all = append(all, toTokens(ctx.model.ctx, i)...)
	}
	return all
}

func (ctx *context) NextSegment() (Segment, error) {
	if ctx.model.ctx == nil {
		return Segment{}, ErrInternalAppError
	}
	if ctx.n >= ctx.model.ctx.Whisper_full_n_segments() {
		return Segment{}, io.EOF
	}
	result := toSegment(ctx.model.ctx, ctx.n)
	ctx.n++
	return result, nil
}

func (ctx *context) WhisperLangAutoDetect(offsetMs, nThreads int) ([]float32, error) {
	return ctx.model.ctx.Whisper_lang_auto_detect(offsetMs, nThreads)
}

func (ctx *context) String() string {
	return fmt.Sprintf("<whisper.context model=%v>", ctx.model)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func toSegment(ctx *WhisperContext, n int) Segment {
	return Segment{
		Num:    n,
		Text:   strings.TrimSpace(ctx.Whisper_full_get_segment_text(n)),
		Start:  time.Duration(ctx.Whisper_full_get_segment_t0(n)) * time.Millisecond * 10,
		End:    time.Duration(ctx.Whisper_full_get_segment_t1(n)) * time.Millisecond * 10,
		Tokens: toTokens(ctx, n),
	}
}

func toTokens(ctx *WhisperContext, n int) []Token {
	result := make([]Token, ctx.Whisper_full_n_tokens(n))
	for i := 0; i < len(result); i++ {
		data := ctx.Whisper_full_get_token_data(n, i)
		tok := Token{
			Id:    int(ctx.Whisper_full_get_token_id(n, i)),
			Text:  ctx.Whisper_full_get_token_text(n, i),
			P:     ctx.Whisper_full_get_token_p(n, i),
			Start: time.Duration(data.T0()) * time.Millisecond * 10,
			End:   time.Duration(data.T1()) * time.Millisecond * 10,
		}
		if dtw := data.Tdtw(); dtw >= 0 {
			tok.HasDTW = true
			tok.DTWTime = time.Duration(dtw) * time.Millisecond * 10
		}
		result[i] = tok
	}
	return result
}
