// Package extractor is the public entry point for turning catalog documents
// into spreadsheets of bibliographic records.
package extractor

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/spherical/catalog-extractor/internal/config"
	"github.com/spherical/catalog-extractor/internal/domain"
	"github.com/spherical/catalog-extractor/internal/extract"
	"github.com/spherical/catalog-extractor/internal/llm"
	"github.com/spherical/catalog-extractor/internal/observability"
	"github.com/spherical/catalog-extractor/internal/pdf"
	"github.com/spherical/catalog-extractor/internal/sheet"
)

// Re-export types for the public API
type (
	Settings    = config.Config
	Logger      = observability.Logger
	Result      = extract.Result
	Status      = extract.Status
	StreamEvent = domain.StreamEvent
	EventType   = domain.EventType
	Record      = domain.Record
	ErrorType   = domain.ErrorType
)

const (
	StatusPersisted = extract.StatusPersisted
	StatusNoData    = extract.StatusNoData
)

// Event type constants
const (
	EventStart     = domain.EventStart
	EventExtracted = domain.EventExtracted
	EventValidated = domain.EventValidated
	EventPersisted = domain.EventPersisted
	EventNoData    = domain.EventNoData
	EventError     = domain.EventError
)

// ErrorKind reports the domain error type carried by err, if any.
func ErrorKind(err error) ErrorType {
	return domain.TypeOf(err)
}

// LoadEnv loads a .env file from the working directory if one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.ConfigError("failed to load .env file", err)
	}
	return nil
}

// Client is the main entry point for the catalog extractor library
type Client struct {
	service   *extract.Service
	validator *pdf.Validator
	settings  *config.Config
	model     string
}

// Config holds configuration options for the client
type Config struct {
	APIKey     string
	Settings   *Settings             // Optional: defaults when nil
	Logger     *Logger               // Optional: discards logs when nil
	OnPage     func(done, total int) // Optional: page render progress
	HTTPClient *http.Client          // Optional: transport for the model API
}

// NewClient creates a client from the environment (after loading .env) and
// the optional YAML file at configPath.
func NewClient(configPath string) (*Client, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	return NewClientWithConfig(&Config{
		APIKey:   apiKey,
		Settings: settings,
	})
}

// NewClientWithConfig creates a new extractor client with custom configuration
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("config is required", nil)
	}

	settings := cfg.Settings
	if settings == nil {
		settings = config.DefaultConfig()
	}
	if err := settings.Validate(); err != nil {
		return nil, domain.ConfigError("invalid settings", err)
	}

	mode, err := extract.ParseValidationMode(settings.Output.Validation)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	renderer := pdf.NewRenderer(pdf.RenderOptions{
		DPI:    settings.Render.DPI,
		OnPage: cfg.OnPage,
	})

	llmClient, err := llm.NewClient(llm.Config{
		APIKey:     cfg.APIKey,
		Model:      settings.LLM.Model,
		BaseURL:    settings.LLM.BaseURL,
		MaxTokens:  settings.LLM.MaxTokens,
		Timeout:    settings.LLM.Timeout,
		HTTPClient: cfg.HTTPClient,
	}, renderer, logger)
	if err != nil {
		return nil, err
	}

	service := extract.NewService(llmClient, sheet.NewWriter(logger), logger, extract.Options{
		Validation: mode,
	})

	return &Client{
		service:   service,
		validator: pdf.NewValidator(),
		settings:  settings,
		model:     llmClient.Model(),
	}, nil
}

// Model returns the model the client sends requests to.
func (c *Client) Model() string {
	return c.model
}

// OutputPath returns where Process will write the workbook for documentPath.
// An empty outputDir falls back to the configured directory, then to the
// document's own directory.
func (c *Client) OutputPath(documentPath, outputDir string) string {
	if outputDir == "" {
		outputDir = c.settings.Output.Dir
	}
	return config.OutputPath(documentPath, outputDir)
}

// Process extracts records from documentPath using prompt and saves them as a
// workbook. A result with StatusNoData means the model found nothing and no
// file was written.
func (c *Client) Process(ctx context.Context, documentPath, prompt, outputDir string) (*Result, error) {
	if err := c.checkInput(documentPath, prompt); err != nil {
		return nil, err
	}
	return c.service.Process(ctx, documentPath, prompt, c.OutputPath(documentPath, outputDir))
}

// ProcessWithEvents is Process with stage events sent to eventCh. Sends never
// block, and eventCh is not closed.
func (c *Client) ProcessWithEvents(ctx context.Context, documentPath, prompt, outputDir string, eventCh chan<- StreamEvent) (*Result, error) {
	if err := c.checkInput(documentPath, prompt); err != nil {
		return nil, err
	}
	return c.service.ProcessWithEvents(ctx, documentPath, prompt, c.OutputPath(documentPath, outputDir), eventCh)
}

// ProcessStream runs Process in the background and streams stage events.
// The channel is closed when the run ends; the last event is EventPersisted,
// EventNoData or EventError.
func (c *Client) ProcessStream(ctx context.Context, documentPath, prompt, outputDir string) (<-chan StreamEvent, error) {
	if err := c.checkInput(documentPath, prompt); err != nil {
		return nil, err
	}

	eventCh := make(chan StreamEvent, 100)
	out := c.OutputPath(documentPath, outputDir)

	go func() {
		defer close(eventCh)
		_, _ = c.service.ProcessWithEvents(ctx, documentPath, prompt, out, eventCh)
	}()

	return eventCh, nil
}

func (c *Client) checkInput(documentPath, prompt string) error {
	if err := c.validator.ValidateDocumentPath(documentPath); err != nil {
		return err
	}
	if prompt == "" {
		return domain.InputError("prompt cannot be empty", nil)
	}
	return nil
}
