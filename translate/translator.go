// Package translate implements the post-ASR Translator: a
// bounded-concurrency HTTP client against an unofficial translation
// endpoint, with per-segment soft failure and word-timing
// reconstruction.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"localstt/asr"
	"localstt/cache"
	"localstt/enginerr"
)

const (
	maxConcurrency  = 4
	maxAttempts     = 3
	backoffBase     = 200 * time.Millisecond
	defaultEndpoint = "https://translate.googleapis.com/translate_a/single"
)

// langAliases is the endpoint's asymmetric language-code normalization:
// jw->jv and yue->zh-TW for both source and target; nn->no for targets
// only. he/iw pass through unmapped.
var langAliases = map[string]string{
	"jw":  "jv",
	"yue": "zh-TW",
}

func normalizeSourceLang(code string) string {
	if alias, ok := langAliases[code]; ok {
		return alias
	}
	return code
}

func normalizeTargetLang(code string) string {
	if code == "nn" {
		return "no"
	}
	if alias, ok := langAliases[code]; ok {
		return alias
	}
	return code
}

// Client translates segments against the unofficial gtx endpoint.
type Client struct {
	HTTP     *http.Client
	Endpoint string
}

// NewClient constructs a Client against the unofficial endpoint with
// sane defaults.
func NewClient() *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: 15 * time.Second},
		Endpoint: defaultEndpoint,
	}
}

// Translate runs segments through the endpoint with up to 4 in-flight
// requests, rebuilding each successfully-translated segment's word
// tokens by uniform split. Per-segment failures preserve the
// original text; only a zero-success run surfaces TranslationFailed.
func (c *Client) Translate(ctx context.Context, segments []asr.Segment, sourceLang, targetLang string, opts cache.StageOptions) ([]asr.Segment, error) {
	out := make([]asr.Segment, len(segments))
	copy(out, segments)

	sl := normalizeSourceLang(sourceLang)
	tl := normalizeTargetLang(targetLang)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	total := 0
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) != "" {
			total++
		}
	}

	var completed, succeeded int64
	reportCompletion := func() {
		n := atomic.AddInt64(&completed, 1)
		if total > 0 {
			opts.Report(float64(n) / float64(total) * 100)
		}
	}

	// out[i] is written by at most one goroutine (index i's own task),
	// so concurrent writes across distinct indices are race-free.
	for i := range segments {
		i := i
		seg := segments[i]
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		g.Go(func() error {
			if opts.Cancelled() {
				return enginerr.New(enginerr.Cancelled, "translate.Translate", nil)
			}

			translated, err := c.translateOne(gctx, seg.Text, sl, tl)
			reportCompletion()
			if err != nil {
				return nil // soft failure: keep original text in out[i]
			}
			atomic.AddInt64(&succeeded, 1)
			out[i] = rebuildSegment(seg, translated)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if total > 0 && succeeded == 0 {
		return nil, enginerr.New(enginerr.TranslationFailed, "translate.Translate", nil)
	}
	if total > 0 {
		opts.Report(100)
	}
	return out, nil
}

// translateOne issues one HTTP GET with retry-on-429/5xx.
func (c *Client) translateOne(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffBase * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.doRequest(ctx, text, sourceLang, targetLang)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if se, ok := err.(*statusError); ok {
			if se.code == http.StatusTooManyRequests || se.code >= 500 {
				continue
			}
		}
		return "", err
	}
	return "", lastErr
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("translate endpoint returned status %d", e.code)
}

func (c *Client) doRequest(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", enginerr.New(enginerr.Network, "translate.doRequest", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", enginerr.New(enginerr.Network, "translate.doRequest", err)
	}

	return parseResponse(body)
}

// parseResponse reads every chunk's [i][0] translated-text slot and
// concatenates them; short inputs come back as a single [0][0][0]
// chunk, longer source text splits across several chunks in the same
// top-level array.
func parseResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", enginerr.New(enginerr.Network, "translate.parseResponse", err)
	}

	var chunks []json.RawMessage
	if err := json.Unmarshal(raw[0], &chunks); err != nil {
		return "", enginerr.New(enginerr.Network, "translate.parseResponse", err)
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		var parts []json.RawMessage
		if err := json.Unmarshal(chunk, &parts); err != nil || len(parts) == 0 {
			continue
		}
		var text string
		if err := json.Unmarshal(parts[0], &text); err != nil {
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// rebuildSegment regenerates word tokens for a translated segment by
// uniform (equal-duration) split. Distinct from the
// alphanumeric-weighted interpolation the ASR backends use:
// post-translation text carries no acoustic timing signal to weight by.
func rebuildSegment(seg asr.Segment, translated string) asr.Segment {
	tokens := asr.SplitWhitespaceWithLeadingSpace(translated)
	if len(tokens) == 0 {
		seg.Text = translated
		seg.Words = nil
		return seg
	}

	span := seg.EndSec - seg.StartSec
	if span < 0 {
		span = 0
	}
	step := span / float64(len(tokens))

	words := make([]asr.WordToken, len(tokens))
	cursor := seg.StartSec
	for i, tok := range tokens {
		end := cursor + step
		if i == len(tokens)-1 {
			end = seg.EndSec
		}
		words[i] = asr.WordToken{Text: tok, StartSec: cursor, EndSec: end}
		cursor = end
	}

	seg.Text = translated
	seg.Words = words
	return seg
}
