package whisper

import (
	"fmt"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// model owns one loaded whisper.cpp context.
type model struct {
	mu   sync.Mutex
	path string
	ctx  *WhisperContext
}

var _ Model = (*model)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New loads a whisper.cpp model from a GGML/GGUF file path with the
// given context-level parameters. DTW alignment and flash-attention are
// fixed here for the model's lifetime.
func New(path string, ip InitParams) (Model, error) {
	params := Whisper_context_default_params()
	params.SetUseGPU(ip.UseGPU)
	params.SetFlashAttn(ip.FlashAttn && !ip.DTWTokenTimestamps)
	if ip.DTWTokenTimestamps {
		params.SetDTWTokenTimestamps(true)
		params.SetDTWAheadsPreset(ip.DTWPreset)
		params.SetDTWMemSize(ip.DTWMemSize)
	}
	ctx := Whisper_init_with_params(path, params)
	if ctx == nil {
		return nil, ErrUnableToLoadModel
	}
	return &model{path: path, ctx: ctx}, nil
}

func (m *model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		m.ctx.Whisper_free()
		m.ctx = nil
	}
	return nil
}

func (m *model) String() string {
	return fmt.Sprintf("<whisper.model path=%q>", m.path)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (m *model) NewContext() (Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return nil, ErrInternalAppError
	}

	params := m.ctx.Whisper_full_default_params(SAMPLING_GREEDY)
	return newContext(m, params)
}

func (m *model) IsMultilingual() bool {
	if m.ctx == nil {
		return false
	}
	return m.ctx.Whisper_is_multilingual() != 0
}

// Languages lists every language code whisper.cpp's static language
// table knows about.
func (m *model) Languages() []string {
	n := Whisper_lang_max_id()
	languages := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		languages = append(languages, Whisper_lang_str(i))
	}
	return languages
}
