package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhisperLanguagesIncludesAutoAndIsACopy(t *testing.T) {
	langs := WhisperLanguages()
	assert.Contains(t, langs, "auto")
	assert.Contains(t, langs, "en")

	langs[0] = "mutated"
	assert.True(t, IsWhisperLanguage("auto"))
}

func TestIsWhisperLanguageRejectsUnknownCode(t *testing.T) {
	assert.False(t, IsWhisperLanguage("not-a-lang"))
}

func TestTranslateLanguagesMatchesZhVariants(t *testing.T) {
	assert.True(t, IsTranslateLanguage("zh"))
	assert.True(t, IsTranslateLanguage("zh-TW"))
	assert.False(t, IsTranslateLanguage("zh-CN"))
}
