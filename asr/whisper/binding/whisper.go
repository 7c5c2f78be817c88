package whisper

import (
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// CGO

/*
#cgo LDFLAGS: -lm -lstdc++
#cgo linux LDFLAGS: -fopenmp
#cgo darwin CFLAGS: -I. -I../../whisper.cpp/include -DGGML_USE_METAL -DGGML_USE_CPU
#cgo darwin CXXFLAGS: -I. -I../../whisper.cpp/include -std=c++17 -DGGML_USE_METAL -DGGML_USE_CPU
#cgo darwin LDFLAGS: ${SRCDIR}/../../whisper.cpp/build/src/libwhisper.a
#cgo darwin LDFLAGS: ${SRCDIR}/../../whisper.cpp/build/ggml/src/libggml.a
#cgo darwin LDFLAGS: ${SRCDIR}/../../whisper.cpp/build/ggml/src/libggml-cpu.a
#cgo darwin LDFLAGS: ${SRCDIR}/../../whisper.cpp/build/ggml/src/ggml-metal/libggml-metal.a
#cgo darwin LDFLAGS: ${SRCDIR}/../../whisper.cpp/build/ggml/src/libggml-base.a
#cgo darwin LDFLAGS: ${SRCDIR}/../../whisper.cpp/build/ggml/src/ggml-blas/libggml-blas.a
#cgo darwin LDFLAGS: -framework Accelerate -framework Metal -framework MetalKit -framework Foundation -framework CoreGraphics
#cgo CFLAGS: -I. -O3 -D__ARM_NEON -D__ARM_FEATURE_DOTPROD -D__ARM_FEATURE_FMA
#cgo CXXFLAGS: -I. -O3 -std=c++17 -D__ARM_NEON -D__ARM_FEATURE_DOTPROD -D__ARM_FEATURE_FMA
#include <stdlib.h>
#include "whisper.h"

extern void callNewSegment(void* user_data, int new);
extern void callProgress(void* user_data, int progress);
extern bool callEncoderBegin(void* user_data);

static void whisper_new_segment_cb(struct whisper_context* ctx, struct whisper_state* state, int n_new, void* user_data) {
    if(user_data != NULL && ctx != NULL) {
        callNewSegment(user_data, n_new);
    }
}

static void whisper_progress_cb(struct whisper_context* ctx, struct whisper_state* state, int progress, void* user_data) {
    if(user_data != NULL && ctx != NULL) {
        callProgress(user_data, progress);
    }
}

static bool whisper_encoder_begin_cb(struct whisper_context* ctx, struct whisper_state* state, void* user_data) {
    if(user_data != NULL && ctx != NULL) {
        return callEncoderBegin(user_data);
    }
    return false;
}

// Default params with the segment/progress/encoder-begin callbacks
// pre-wired to the exported Go trampolines.
static struct whisper_full_params whisper_full_default_params_cb(struct whisper_context* ctx, enum whisper_sampling_strategy strategy) {
	struct whisper_full_params params = whisper_full_default_params(strategy);
	params.new_segment_callback = whisper_new_segment_cb;
	params.new_segment_callback_user_data = (void*)(ctx);
	params.encoder_begin_callback = whisper_encoder_begin_cb;
	params.encoder_begin_callback_user_data = (void*)(ctx);
	params.progress_callback = whisper_progress_cb;
	params.progress_callback_user_data = (void*)(ctx);
	return params;
}
*/
import "C"

///////////////////////////////////////////////////////////////////////////////
// TYPES

type (
	WhisperContext    C.struct_whisper_context
	WhisperToken      C.whisper_token
	WhisperTokenData  C.struct_whisper_token_data
	WhisperParams     C.struct_whisper_full_params
	WhisperInitParams C.struct_whisper_context_params
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func Whisper_init(path string) *WhisperContext {
	return Whisper_init_with_params(path, Whisper_context_default_params())
}

func Whisper_init_with_params(path string, params WhisperInitParams) *WhisperContext {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	ctx := C.whisper_init_from_file_with_params(cPath, (C.struct_whisper_context_params)(params))
	if ctx == nil {
		return nil
	}
	return (*WhisperContext)(ctx)
}

func (ctx *WhisperContext) Whisper_free() {
	C.whisper_free((*C.struct_whisper_context)(ctx))
}

///////////////////////////////////////////////////////////////////////////////
// LANGUAGE

func (ctx *WhisperContext) Whisper_lang_id(lang string) int {
	cLang := C.CString(lang)
	defer C.free(unsafe.Pointer(cLang))
	return int(C.whisper_lang_id(cLang))
}

func Whisper_lang_max_id() int {
	return int(C.whisper_lang_max_id())
}

func Whisper_lang_str(id int) string {
	return C.GoString(C.whisper_lang_str(C.int(id)))
}

func (ctx *WhisperContext) Whisper_lang_auto_detect(offset_ms, n_threads int) ([]float32, error) {
	probs := make([]float32, Whisper_lang_max_id()+1)
	if n := int(C.whisper_lang_auto_detect((*C.struct_whisper_context)(ctx), C.int(offset_ms), C.int(n_threads), (*C.float)(&probs[0]))); n < 0 {
		return nil, ErrAutoDetectFailed
	}
	return probs, nil
}

///////////////////////////////////////////////////////////////////////////////
// MODEL INTROSPECTION

func (ctx *WhisperContext) Whisper_is_multilingual() int {
	return int(C.whisper_is_multilingual((*C.struct_whisper_context)(ctx)))
}

func Whisper_print_system_info() string {
	return C.GoString(C.whisper_print_system_info())
}

///////////////////////////////////////////////////////////////////////////////
// TOKEN CONSTANTS

func (ctx *WhisperContext) Whisper_token_eot() WhisperToken {
	return WhisperToken(C.whisper_token_eot((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_token_sot() WhisperToken {
	return WhisperToken(C.whisper_token_sot((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_token_prev() WhisperToken {
	return WhisperToken(C.whisper_token_prev((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_token_solm() WhisperToken {
	return WhisperToken(C.whisper_token_solm((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_token_not() WhisperToken {
	return WhisperToken(C.whisper_token_not((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_token_beg() WhisperToken {
	return WhisperToken(C.whisper_token_beg((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_token_lang(lang_id int) WhisperToken {
	return WhisperToken(C.whisper_token_lang((*C.struct_whisper_context)(ctx), C.int(lang_id)))
}

///////////////////////////////////////////////////////////////////////////////
// TIMINGS

func (ctx *WhisperContext) Whisper_print_timings() {
	C.whisper_print_timings((*C.struct_whisper_context)(ctx))
}

func (ctx *WhisperContext) Whisper_reset_timings() {
	C.whisper_reset_timings((*C.struct_whisper_context)(ctx))
}

///////////////////////////////////////////////////////////////////////////////
// FULL DECODE

func (ctx *WhisperContext) Whisper_full_default_params(strategy SamplingStrategy) WhisperParams {
	return WhisperParams(C.whisper_full_default_params_cb((*C.struct_whisper_context)(ctx), C.enum_whisper_sampling_strategy(strategy)))
}

func (ctx *WhisperContext) Whisper_full(
	params WhisperParams,
	samples []float32,
	encoderBeginCallback func() bool,
	newSegmentCallback func(int),
	progressCallback func(int),
) error {
	registerEncoderBeginCallback(ctx, encoderBeginCallback)
	registerNewSegmentCallback(ctx, newSegmentCallback)
	registerProgressCallback(ctx, progressCallback)
	defer registerEncoderBeginCallback(ctx, nil)
	defer registerNewSegmentCallback(ctx, nil)
	defer registerProgressCallback(ctx, nil)
	if C.whisper_full((*C.struct_whisper_context)(ctx), (C.struct_whisper_full_params)(params), (*C.float)(&samples[0]), C.int(len(samples))) == 0 {
		return nil
	}
	return ErrConversionFailed
}

func (ctx *WhisperContext) Whisper_full_lang_id() int {
	return int(C.whisper_full_lang_id((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_full_n_segments() int {
	return int(C.whisper_full_n_segments((*C.struct_whisper_context)(ctx)))
}

func (ctx *WhisperContext) Whisper_full_get_segment_t0(segment int) int64 {
	return int64(C.whisper_full_get_segment_t0((*C.struct_whisper_context)(ctx), C.int(segment)))
}

func (ctx *WhisperContext) Whisper_full_get_segment_t1(segment int) int64 {
	return int64(C.whisper_full_get_segment_t1((*C.struct_whisper_context)(ctx), C.int(segment)))
}

func (ctx *WhisperContext) Whisper_full_get_segment_text(segment int) string {
	return C.GoString(C.whisper_full_get_segment_text((*C.struct_whisper_context)(ctx), C.int(segment)))
}

func (ctx *WhisperContext) Whisper_full_n_tokens(segment int) int {
	return int(C.whisper_full_n_tokens((*C.struct_whisper_context)(ctx), C.int(segment)))
}

func (ctx *WhisperContext) Whisper_full_get_token_text(segment int, token int) string {
	return C.GoString(C.whisper_full_get_token_text((*C.struct_whisper_context)(ctx), C.int(segment), C.int(token)))
}

func (ctx *WhisperContext) Whisper_full_get_token_id(segment int, token int) WhisperToken {
	return WhisperToken(C.whisper_full_get_token_id((*C.struct_whisper_context)(ctx), C.int(segment), C.int(token)))
}

func (ctx *WhisperContext) Whisper_full_get_token_data(segment int, token int) WhisperTokenData {
	return WhisperTokenData(C.whisper_full_get_token_data((*C.struct_whisper_context)(ctx), C.int(segment), C.int(token)))
}

func (ctx *WhisperContext) Whisper_full_get_token_p(segment int, token int) float32 {
	return float32(C.whisper_full_get_token_p((*C.struct_whisper_context)(ctx), C.int(segment), C.int(token)))
}

///////////////////////////////////////////////////////////////////////////////
// CALLBACKS

var (
	cbNewSegment   = make(map[unsafe.Pointer]func(int))
	cbProgress     = make(map[unsafe.Pointer]func(int))
	cbEncoderBegin = make(map[unsafe.Pointer]func() bool)
)

func registerNewSegmentCallback(ctx *WhisperContext, fn func(int)) {
	if fn == nil {
		delete(cbNewSegment, unsafe.Pointer(ctx))
	} else {
		cbNewSegment[unsafe.Pointer(ctx)] = fn
	}
}

func registerProgressCallback(ctx *WhisperContext, fn func(int)) {
	if fn == nil {
		delete(cbProgress, unsafe.Pointer(ctx))
	} else {
		cbProgress[unsafe.Pointer(ctx)] = fn
	}
}

func registerEncoderBeginCallback(ctx *WhisperContext, fn func() bool) {
	if fn == nil {
		delete(cbEncoderBegin, unsafe.Pointer(ctx))
	} else {
		cbEncoderBegin[unsafe.Pointer(ctx)] = fn
	}
}

//export callNewSegment
func callNewSegment(user_data unsafe.Pointer, new C.int) {
	if fn, ok := cbNewSegment[user_data]; ok {
		fn(int(new))
	}
}

//export callProgress
func callProgress(user_data unsafe.Pointer, progress C.int) {
	if fn, ok := cbProgress[user_data]; ok {
		fn(int(progress))
	}
}

//export callEncoderBegin
func callEncoderBegin(user_data unsafe.Pointer) C.bool {
	if fn, ok := cbEncoderBegin[user_data]; ok {
		if fn() {
			return C.bool(true)
		}
		return C.bool(false)
	}
	return true
}

func (t WhisperTokenData) T0() int64 {
	return int64(t.t0)
}

func (t WhisperTokenData) T1() int64 {
	return int64(t.t1)
}

func (t WhisperTokenData) Id() WhisperToken {
	return WhisperToken(t.id)
}

// Tdtw returns the DTW alignment timestamp in 10ms units, or -1 if no
// DTW anchor was computed for this token.
func (t WhisperTokenData) Tdtw() int64 {
	return int64(t.t_dtw)
}

///////////////////////////////////////////////////////////////////////////////
// PARAMS METHODS

type SamplingStrategy C.enum_whisper_sampling_strategy

const (
	SAMPLING_GREEDY      SamplingStrategy = C.WHISPER_SAMPLING_GREEDY
	SAMPLING_BEAM_SEARCH SamplingStrategy = C.WHISPER_SAMPLING_BEAM_SEARCH
)

func toBool(v bool) C.bool {
	if v {
		return C.bool(true)
	}
	return C.bool(false)
}

func (p *WhisperParams) SetTranslate(v bool)     { p.translate = toBool(v) }
func (p *WhisperParams) SetSplitOnWord(v bool)   { p.split_on_word = toBool(v) }
func (p *WhisperParams) SetNoContext(v bool)     { p.no_context = toBool(v) }
func (p *WhisperParams) SetSingleSegment(v bool) { p.single_segment = toBool(v) }
func (p *WhisperParams) SetPrintSpecial(v bool)  { p.print_special = toBool(v) }
func (p *WhisperParams) SetPrintProgress(v bool) { p.print_progress = toBool(v) }
func (p *WhisperParams) SetPrintRealtime(v bool) { p.print_realtime = toBool(v) }
func (p *WhisperParams) SetPrintTimestamps(v bool) {
	p.print_timestamps = toBool(v)
}

func (p *WhisperParams) SetLanguage(lang int) error {
	if lang == -1 {
		p.language = nil
		return nil
	}
	str := C.whisper_lang_str(C.int(lang))
	if str == nil {
		return ErrInvalidLanguage
	}
	p.language = str
	return nil
}

func (p *WhisperParams) Language() int {
	if p.language == nil {
		return -1
	}
	return int(C.whisper_lang_id(p.language))
}

func (p *WhisperParams) Threads() int             { return int(p.n_threads) }
func (p *WhisperParams) SetThreads(threads int)   { p.n_threads = C.int(threads) }
func (p *WhisperParams) SetOffset(offset_ms int)  { p.offset_ms = C.int(offset_ms) }
func (p *WhisperParams) SetDuration(duration_ms int) {
	p.duration_ms = C.int(duration_ms)
}

func (p *WhisperParams) SetTokenThreshold(t float32)    { p.thold_pt = C.float(t) }
func (p *WhisperParams) SetTokenSumThreshold(t float32) { p.thold_ptsum = C.float(t) }
func (p *WhisperParams) SetMaxSegmentLength(n int)      { p.max_len = C.int(n) }
func (p *WhisperParams) SetTokenTimestamps(b bool)      { p.token_timestamps = toBool(b) }
func (p *WhisperParams) SetMaxTokensPerSegment(n int)   { p.max_tokens = C.int(n) }
func (p *WhisperParams) SetAudioCtx(n int)              { p.audio_ctx = C.int(n) }
func (p *WhisperParams) SetMaxContext(n int)            { p.n_max_text_ctx = C.int(n) }
func (p *WhisperParams) SetBeamSize(n int)              { p.beam_search.beam_size = C.int(n) }
func (p *WhisperParams) SetEntropyThold(t float32)      { p.entropy_thold = C.float(t) }
func (p *WhisperParams) SetTemperature(t float32)       { p.temperature = C.float(t) }
func (p *WhisperParams) SetTemperatureFallback(t float32) {
	p.temperature_inc = C.float(t)
}

func (p *WhisperParams) SetInitialPrompt(prompt string) {
	p.initial_prompt = C.CString(prompt)
}

func (p *WhisperParams) SetCarryInitialPrompt(v bool) {
	p.carry_initial_prompt = toBool(v)
}

func (p *WhisperParams) SetDiarize(v bool) { p.tdrz_enable = toBool(v) }

///////////////////////////////////////////////////////////////////////////////
// INIT PARAMS METHODS
//
// DTW token-timestamp alignment and flash-attention are context-level
// knobs in whisper.cpp (whisper_context_params), fixed at model load.

func Whisper_context_default_params() WhisperInitParams {
	return WhisperInitParams(C.whisper_context_default_params())
}

func (p *WhisperInitParams) SetUseGPU(v bool) { p.use_gpu = toBool(v) }

// SetFlashAttn toggles whisper.cpp's flash-attention kernel path,
// mutually exclusive with DTW token timestamps.
func (p *WhisperInitParams) SetFlashAttn(v bool) { p.flash_attn = toBool(v) }

// SetDTWTokenTimestamps turns on whisper.cpp's DTW-based token-level
// alignment. Disabling flash-attention alongside this is the
// caller's responsibility (whisper.cpp rejects the combination).
func (p *WhisperInitParams) SetDTWTokenTimestamps(v bool) {
	p.dtw_token_timestamps = toBool(v)
}

// SetDTWAheadsPreset selects which attention heads DTW alignment reads
// from, keyed by model size.
func (p *WhisperInitParams) SetDTWAheadsPreset(preset AlignmentHeadsPreset) {
	p.dtw_aheads_preset = C.enum_whisper_alignment_heads_preset(preset)
}

// SetDTWMemSize sets whisper.cpp's DTW working-set byte budget.
func (p *WhisperInitParams) SetDTWMemSize(bytes uint64) {
	p.dtw_mem_size = C.size_t(bytes)
}
