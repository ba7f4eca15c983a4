// Package llm sends rasterized pages to an OpenRouter-hosted vision
// model and returns the generated Markdown.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/pdf2md/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "google/gemini-2.0-flash-001"
	defaultTimeout = 300 * time.Second
)

// RetryPolicy bounds the retry loop around the completion call. Only
// transient transport failures are retried; authentication and
// validation failures surface immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy retries twice with capped exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  8 * time.Second,
	}
}

// Config configures a Client.
type Config struct {
	Credentials domain.Credentials
	Model       string
	// BaseURL overrides the completion endpoint, mainly for tests.
	BaseURL string
	Timeout time.Duration
	Retry   RetryPolicy
	Logger  zerolog.Logger
}

// Client talks to the vision-completion service.
type Client struct {
	creds      domain.Credentials
	model      string
	baseURL    string
	retry      RetryPolicy
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Credentials.APIKey == "" {
		return nil, domain.ConfigError("API key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	def := DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}
	if cfg.Retry.BaseBackoff <= 0 {
		cfg.Retry.BaseBackoff = def.BaseBackoff
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = def.MaxBackoff
	}

	return &Client{
		creds:      cfg.Credentials,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		retry:      cfg.Retry,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        cfg.Logger.With().Str("component", "annotator").Logger(),
	}, nil
}

// Model returns the model identifier in use.
func (c *Client) Model() string {
	return c.model
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one typed part of a user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries a data-URI encoded image.
type ImageURL struct {
	URL string `json:"url"`
}

// Request is the completion request body.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Response is the completion response body.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion choice.
type Choice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Annotate sends one encoded page with the prompt and returns the
// model's Markdown for it.
func (c *Client) Annotate(ctx context.Context, page domain.EncodedPage, prompt string) (domain.MarkdownFragment, error) {
	body, err := json.Marshal(c.buildRequest(page, prompt))
	if err != nil {
		return domain.MarkdownFragment{}, domain.AnnotationError("failed to marshal request", err)
	}

	resp, err := c.doWithRetry(ctx, body, page.Page)
	if err != nil {
		return domain.MarkdownFragment{}, err
	}

	if len(resp.Choices) == 0 {
		return domain.MarkdownFragment{}, domain.AnnotationError(
			fmt.Sprintf("page %d: response has no choices", page.Page), nil)
	}

	return domain.MarkdownFragment{
		PageNumber: page.Page,
		Text:       resp.Choices[0].Message.Content,
	}, nil
}

func (c *Client) buildRequest(page domain.EncodedPage, prompt string) *Request {
	format := page.Format
	if format == "" {
		format = string(domain.FormatPNG)
	}
	// The data URI carries the format actually produced by the
	// rasterizer, so PNG pages are no longer mislabeled as JPEG.
	dataURI := fmt.Sprintf("data:image/%s;base64,%s", format, page.Data)

	return &Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}},
				},
			},
		},
	}
}

func (c *Client) doWithRetry(ctx context.Context, body []byte, pageNumber int) (*Response, error) {
	backoff := c.retry.BaseBackoff
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.log.Warn().
				Int("page", pageNumber).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying completion call")
			select {
			case <-ctx.Done():
				return nil, domain.AnnotationError("annotation cancelled", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		}

		resp, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// doOnce performs a single completion round trip. The second return
// value reports whether the failure is transient.
func (c *Client) doOnce(ctx context.Context, body []byte) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, domain.AnnotationError("failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	if c.creds.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.creds.SiteURL)
	}
	if c.creds.AppName != "" {
		req.Header.Set("X-Title", c.creds.AppName)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are worth another attempt.
		return nil, true, domain.AnnotationError("failed to send request", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, domain.AnnotationError("failed to read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		retryable := httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500
		return nil, retryable, domain.AnnotationError(
			fmt.Sprintf("API returned status %d: %s", httpResp.StatusCode, string(respBody)), nil)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, domain.AnnotationError("failed to decode response", err)
	}
	return &resp, false, nil
}
