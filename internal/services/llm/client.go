package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"voxnote/internal/logging"
	"voxnote/internal/services"
)

const (
	jsonFormat             = "json"
	defaultBaseURL         = "http://localhost:11434"
	defaultChatTimeout     = 120 * time.Second
	defaultTokenizeTimeout = 60 * time.Second
	defaultRetryBaseDelay  = 2 * time.Second
	connectTimeout         = 10 * time.Second
	maxStreamLine          = 4 << 20
	errorPreviewLimit      = 200
)

// Config captures the runtime settings required to talk to Ollama.
type Config struct {
	BaseURL         string
	Model           string
	Stream          bool
	ChatTimeout     time.Duration
	TokenizeTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	Debug           bool
	StateDir        string
}

// Client wraps the Ollama chat and tokenize APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	counter    TokenCounter
	logger     *slog.Logger

	retryBaseDelay time.Duration
	sleeper        func(time.Duration)
	now            func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for chat requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenCounter replaces the /api/tokenize counter.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Client) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// WithRetryBackoff overrides the base delay between retries.
func WithRetryBackoff(baseDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an Ollama client using the supplied configuration.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = defaultChatTimeout
	}
	if cfg.TokenizeTimeout <= 0 {
		cfg.TokenizeTimeout = defaultTokenizeTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = defaultRetryBaseDelay
	}

	component := logging.NewComponentLogger(logger, "llm")
	client := &Client{
		cfg:            cfg,
		httpClient:     newChatHTTPClient(cfg.ChatTimeout),
		logger:         component,
		retryBaseDelay: cfg.RetryBackoff,
		now:            time.Now,
	}
	client.counter = &ollamaCounter{
		endpoint:   cfg.BaseURL + "/api/tokenize",
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.TokenizeTimeout},
		logger:     component,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// newChatHTTPClient bounds the connect and time-to-first-byte phases only, so
// a long streamed reply is not cut off mid-generation.
func newChatHTTPClient(readTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.ResponseHeaderTimeout = readTimeout
	return &http.Client{Transport: transport}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Analysis is the structured reply for one note.
type Analysis struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	ShortSummary string `json:"short_summary,omitempty"`
	Raw          string `json:"-"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Format   string         `json:"format"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]int `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamError is an error object delivered inside a streamed reply. It is
// surfaced as-is and never retried.
type streamError struct {
	Message string
}

func (e *streamError) Error() string {
	return fmt.Sprintf("ollama stream error: %s", e.Message)
}

// Analyze sends noteText to the model and parses the JSON reply.
func (c *Client) Analyze(ctx context.Context, systemPrompt, noteText string) (Analysis, error) {
	var empty Analysis
	endpoint := c.cfg.BaseURL + "/api/chat"

	promptTokens := c.counter.CountTokens(ctx, systemPrompt+"\n"+UserPromptPrefix+noteText)
	c.logger.Info("analysis prompt prepared",
		logging.Int("prompt_tokens", promptTokens),
		logging.Int("text_chars", len([]rune(noteText))),
	)
	if promptTokens > ContextWindow {
		logging.WarnWithContext(c.logger, "note exceeds context window; truncating from the end", "llm_truncate",
			logging.Int("prompt_tokens", promptTokens),
			logging.Int("context_window", ContextWindow),
			logging.String(logging.FieldImpact, "the tail of the transcript is not analyzed"),
			logging.String(logging.FieldErrorHint, "use a model with a larger context window for long notes"),
		)
		truncated, err := Truncate(ctx, c.counter, systemPrompt, noteText, ContextWindow)
		if err != nil {
			return empty, err
		}
		noteText = truncated
	}

	payload := chatRequest{
		Model:  c.cfg.Model,
		Format: jsonFormat,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: UserPromptPrefix + noteText},
		},
		Stream:  c.cfg.Stream,
		Options: map[string]int{"num_ctx": ContextWindow},
	}

	content, err := c.chatWithRetry(ctx, endpoint, payload)
	if err != nil {
		err = fmt.Errorf("failed to call ollama at %s: %w", endpoint, err)
		c.debugLog(noteText, payload, "", err.Error())
		return empty, err
	}
	if content == "" {
		return empty, services.Wrap(services.ErrEmptyOutput, "analyze", "chat",
			fmt.Sprintf("empty response content from ollama; model %q may not be responding correctly", c.cfg.Model), nil)
	}

	analysis, err := c.parseAnalysis(content)
	if err != nil {
		c.debugLog(noteText, payload, content, err.Error())
		return empty, err
	}
	return analysis, nil
}

func (c *Client) parseAnalysis(content string) (Analysis, error) {
	var raw any
	if err := decodeObject(content, &raw); err != nil {
		return Analysis{}, c.invalid("failed to parse JSON from ollama response", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Analysis{}, c.invalid("ollama returned JSON that is not an object", nil)
	}
	var missing []string
	for _, key := range []string{"title", "category"} {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Analysis{}, c.invalid(fmt.Sprintf("ollama JSON is missing required keys [%s]", strings.Join(missing, ", ")), nil)
	}
	title, ok := obj["title"].(string)
	if !ok {
		return Analysis{}, c.invalid("ollama JSON field title is not a string", nil)
	}
	category, ok := obj["category"].(string)
	if !ok {
		return Analysis{}, c.invalid("ollama JSON field category is not a string", nil)
	}
	analysis := Analysis{Title: title, Category: category, Raw: content}
	switch summary := obj["short_summary"].(type) {
	case nil:
	case string:
		analysis.ShortSummary = summary
	default:
		return Analysis{}, c.invalid("ollama JSON field short_summary is not a string", nil)
	}
	return analysis, nil
}

func (c *Client) invalid(message string, err error) error {
	message = fmt.Sprintf("%s; model %q may not be following the JSON format requirement (check prompts.system_prompt or try a different model)", message, c.cfg.Model)
	return services.Wrap(services.ErrInvalidResponse, "analyze", "parse", message, err)
}

func (c *Client) chatWithRetry(ctx context.Context, endpoint string, payload chatRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		content, err := c.chatOnce(ctx, endpoint, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if attempt >= c.cfg.MaxRetries || !c.retryable(ctx, err) {
			break
		}
		delay := c.backoffDelay(attempt)
		c.logger.Debug("retrying ollama chat",
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) chatOnce(ctx context.Context, endpoint string, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err, c.cfg.ChatTimeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		preview := strings.TrimSpace(string(body))
		if preview == "" {
			preview = "no error details"
		}
		if len(preview) > errorPreviewLimit {
			preview = preview[:errorPreviewLimit]
		}
		return "", services.Wrap(services.ErrTransport, "analyze", "chat",
			fmt.Sprintf("ollama returned %d: %s; check that model %q is available (ollama list)", resp.StatusCode, preview, c.cfg.Model), nil)
	}
	if payload.Stream {
		return readStream(resp.Body)
	}
	return readSingle(resp.Body)
}

// readStream concatenates message.content from newline-delimited chunks
// until done. Lines that are not JSON are ignored.
func readStream(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)
	var parts strings.Builder
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk map[string]any
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if msg, ok := truthyError(chunk["error"]); ok {
			return "", services.Wrap(services.ErrExternalTool, "analyze", "chat", "", &streamError{Message: msg})
		}
		if message, ok := chunk["message"].(map[string]any); ok {
			if part, ok := message["content"].(string); ok {
				parts.WriteString(part)
			}
		}
		if done, _ := chunk["done"].(bool); done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", services.Wrap(services.ErrTransport, "analyze", "chat", "read stream", err)
	}
	return strings.TrimSpace(parts.String()), nil
}

func readSingle(body io.Reader) (string, error) {
	var reply struct {
		Message map[string]any `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&reply); err != nil {
		return "", services.Wrap(services.ErrTransient, "analyze", "chat", "decode response", err)
	}
	content, present := reply.Message["content"]
	if !present || content == nil {
		return "", nil
	}
	text, ok := content.(string)
	if !ok {
		return "", services.Wrap(services.ErrInvalidResponse, "analyze", "chat",
			"ollama returned invalid response content type; check that the model supports JSON format", nil)
	}
	return strings.TrimSpace(text), nil
}

func truthyError(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		return value, value != ""
	case bool:
		return "unknown error", value
	default:
		return fmt.Sprint(value), true
	}
}

func classifyTransportError(err error, timeout time.Duration) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "analyze", "chat", fmt.Sprintf("no response within %s", timeout), err)
	}
	return services.Wrap(services.ErrTransport, "analyze", "chat", "http error", err)
}

func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *streamError
	if errors.As(err, &se) {
		return false
	}
	return services.Retryable(err)
}

// backoffDelay returns base * 2^attempt for a zero-based attempt.
func (c *Client) backoffDelay(attempt int) time.Duration {
	if c.retryBaseDelay <= 0 {
		return 0
	}
	return c.retryBaseDelay << attempt
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Models lists the models the server has pulled via /api/tags.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("llm tags: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, c.cfg.ChatTimeout)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransport, "doctor", "ollama tags", fmt.Sprintf("ollama returned %d", resp.StatusCode), nil)
	}
	var payload struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrInvalidResponse, "doctor", "ollama tags", "decode response", err)
	}
	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// HasModel reports whether model is among names, treating a bare name as
// its ":latest" tag.
func HasModel(names []string, model string) bool {
	for _, name := range names {
		if name == model || name == model+":latest" || strings.TrimSuffix(name, ":latest") == model {
			return true
		}
	}
	return false
}
