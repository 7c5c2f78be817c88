package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localstt/asr"
	"localstt/cache"
)

func gtxResponse(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal([]interface{}{
		[]interface{}{
			[]interface{}{text, "orig", nil, nil, 0},
		},
	})
	require.NoError(t, err)
	return body
}

func TestNormalizeLangAliases(t *testing.T) {
	assert.Equal(t, "jv", normalizeSourceLang("jw"))
	assert.Equal(t, "jv", normalizeTargetLang("jw"))
	assert.Equal(t, "zh-TW", normalizeSourceLang("yue"))
	assert.Equal(t, "zh-TW", normalizeTargetLang("yue"))
	assert.Equal(t, "no", normalizeTargetLang("nn"))
	assert.Equal(t, "nn", normalizeSourceLang("nn"), "nn->no only applies to targets")
	assert.Equal(t, "he", normalizeSourceLang("he"))
	assert.Equal(t, "iw", normalizeTargetLang("iw"))
}

func TestTranslateRebuildsWordsByUniformSplit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gtxResponse(t, "hello there friend"))
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), Endpoint: srv.URL}
	segs := []asr.Segment{{StartSec: 0, EndSec: 3, Text: "bonjour mon ami"}}

	out, err := c.Translate(context.Background(), segs, "fr", "en", cache.StageOptions{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello there friend", out[0].Text)
	require.Len(t, out[0].Words, 3)
	assert.Equal(t, "hello", out[0].Words[0].Text)
	assert.Equal(t, " there", out[0].Words[1].Text)
	assert.InDelta(t, 0.0, out[0].Words[0].StartSec, 1e-9)
	assert.InDelta(t, 3.0, out[0].Words[2].EndSec, 1e-9)
}

func TestTranslateFailsWhenNoSegmentSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), Endpoint: srv.URL}
	segs := []asr.Segment{
		{StartSec: 0, EndSec: 1, Text: "one"},
	}

	_, err := c.Translate(context.Background(), segs, "en", "fr", cache.StageOptions{})
	require.Error(t, err, "zero successes must surface TranslationFailed")
}

func TestTranslateRetriesOn429ThenSucceeds(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(gtxResponse(t, "bonjour"))
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), Endpoint: srv.URL}
	segs := []asr.Segment{{StartSec: 0, EndSec: 1, Text: "hello"}}

	out, err := c.Translate(context.Background(), segs, "en", "fr", cache.StageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", out[0].Text)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestTranslateReportsProgressOnCompletionNotStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gtxResponse(t, "x"))
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), Endpoint: srv.URL}
	segs := []asr.Segment{
		{StartSec: 0, EndSec: 1, Text: "a"},
		{StartSec: 1, EndSec: 2, Text: "b"},
	}

	var reported []float64
	opts := cache.StageOptions{Progress: func(ev cache.ProgressEvent) { reported = append(reported, ev.Percent) }}
	_, err := c.Translate(context.Background(), segs, "en", "fr", opts)
	require.NoError(t, err)
	require.NotEmpty(t, reported)
	assert.Equal(t, float64(100), reported[len(reported)-1])
}
