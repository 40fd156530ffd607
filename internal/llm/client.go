package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/spherical/catalog-extractor/internal/domain"
	"github.com/spherical/catalog-extractor/internal/observability"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 4096
	defaultTimeout   = 5 * time.Minute
)

// Config holds configuration for the extraction client.
type Config struct {
	APIKey     string
	Model      string        // "gpt-4o" (default)
	BaseURL    string        // Optional, e.g. an OpenAI-compatible gateway
	MaxTokens  int           // Response token budget
	Timeout    time.Duration // Per-request HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// Client turns rendered pages and a prompt into records via one model call
type Client struct {
	model     string
	maxTokens int
	renderer  domain.Renderer
	logger    *observability.Logger
	client    openai.Client
}

// NewClient creates a new extraction client. A blank API key is rejected.
func NewClient(cfg Config, renderer domain.Renderer, logger *observability.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ConfigError("API key cannot be empty", nil)
	}
	if renderer == nil {
		return nil, domain.ConfigError("a page renderer is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = observability.Nop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		renderer:  renderer,
		logger:    logger.WithOperation("llm"),
		client:    openai.NewClient(opts...),
	}, nil
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.model
}

// Extract renders the document and sends every page, with prompt, to the model
// in a single request.
func (c *Client) Extract(ctx context.Context, documentPath, prompt string) ([]domain.Record, error) {
	pages, err := c.renderer.Render(ctx, documentPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info().
		Str("document", documentPath).
		Int("pages", len(pages)).
		Msg("Rendered document pages")

	params := c.buildRequest(prompt, pages)

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, domain.ExtractionError(describeAPIError(err), err)
	}
	if len(completion.Choices) == 0 {
		return nil, domain.ExtractionError("no choices in model response", nil)
	}

	choice := completion.Choices[0]
	c.logger.Debug().
		Str("model", completion.Model).
		Str("finish_reason", string(choice.FinishReason)).
		Int64("prompt_tokens", completion.Usage.PromptTokens).
		Int64("completion_tokens", completion.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("Model responded")
	if choice.FinishReason == "length" {
		c.logger.Warn().Int("max_tokens", c.maxTokens).Msg("Model response was truncated at the token budget")
	}

	return ParseRecords(choice.Message.Content)
}

func describeAPIError(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("model API returned status %d", apiErr.StatusCode)
	}
	return "model request failed"
}
