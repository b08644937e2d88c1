package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"unicode/utf8"

	"voxnote/internal/logging"
)

// Bytes-per-token ratios for a blended English/Russian estimate. The
// multiplier keeps the estimate on the high side.
const (
	bytesPerTokenLatin    = 3.5
	bytesPerTokenCyrillic = 5.0
	tokenSafetyMultiplier = 1.1
)

// TokenCounter reports how many model tokens text occupies.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) int
}

// TokenCounterFunc adapts a plain function to TokenCounter.
type TokenCounterFunc func(ctx context.Context, text string) int

// CountTokens implements TokenCounter.
func (f TokenCounterFunc) CountTokens(ctx context.Context, text string) int { return f(ctx, text) }

// EstimateTokens is a conservative token count that needs no tokenizer.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	cyrillic := 0
	for _, r := range text {
		if r >= 0x0400 && r <= 0x04FF {
			cyrillic++
		}
	}
	ratio := float64(cyrillic) / float64(chars)
	avg := bytesPerTokenLatin*(1-ratio) + bytesPerTokenCyrillic*ratio
	approx := math.Ceil(float64(len(text)) / avg)
	return int(math.Ceil(approx * tokenSafetyMultiplier))
}

// ollamaCounter asks /api/tokenize for an exact count and falls back to
// EstimateTokens whenever the endpoint is missing or misbehaves.
type ollamaCounter struct {
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func (o *ollamaCounter) CountTokens(ctx context.Context, text string) int {
	if n, ok := o.tokenize(ctx, text); ok {
		return n
	}
	return EstimateTokens(text)
}

func (o *ollamaCounter) tokenize(ctx context.Context, text string) (int, bool) {
	body, err := json.Marshal(map[string]string{"model": o.model, "prompt": text})
	if err != nil {
		return 0, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.httpClient.Do(req)
	if err != nil {
		o.logger.Debug("tokenize request failed, using estimate", logging.Error(err))
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		o.logger.Debug("tokenize unavailable, using estimate", logging.Int("status", resp.StatusCode))
		return 0, false
	}
	var payload struct {
		Tokens     []json.RawMessage `json:"tokens"`
		TokenCount *int              `json:"token_count"`
		Count      *int              `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		o.logger.Debug("tokenize response unreadable, using estimate", logging.Error(err))
		return 0, false
	}
	switch {
	case payload.Tokens != nil:
		return len(payload.Tokens), true
	case payload.TokenCount != nil && *payload.TokenCount != 0:
		return *payload.TokenCount, true
	case payload.Count != nil:
		return *payload.Count, true
	}
	o.logger.Debug("tokenize response has no count, using estimate")
	return 0, false
}
