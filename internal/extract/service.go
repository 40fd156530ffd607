package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/catalog-extractor/internal/domain"
	"github.com/spherical/catalog-extractor/internal/observability"
	"github.com/spherical/catalog-extractor/internal/record"
)

// ValidationMode controls how records are checked against the bibliographic schema
type ValidationMode string

const (
	ValidationOff    ValidationMode = "off"
	ValidationWarn   ValidationMode = "warn"
	ValidationStrict ValidationMode = "strict"
)

// ParseValidationMode converts a flag or config value into a ValidationMode.
// An empty string means off.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ValidationOff:
		return ValidationOff, nil
	case ValidationWarn:
		return ValidationWarn, nil
	case ValidationStrict:
		return ValidationStrict, nil
	default:
		return "", domain.ConfigError(fmt.Sprintf("unknown validation mode %q (want off, warn or strict)", s), nil)
	}
}

// Status is the terminal state of a successful run
type Status string

const (
	StatusPersisted Status = "persisted"
	StatusNoData    Status = "no_data"
)

// Options configures the service
type Options struct {
	Validation ValidationMode
}

// Result summarizes one run
type Result struct {
	RunID      string
	Status     Status
	Records    int
	Invalid    []record.Result
	OutputPath string
	Columns    []string
	Duration   time.Duration
}

// Service orchestrates extraction and persistence of one document
type Service struct {
	extractor domain.Extractor
	writer    domain.Writer
	logger    *observability.Logger
	opts      Options
}

// NewService creates a new extraction service
func NewService(extractor domain.Extractor, writer domain.Writer, logger *observability.Logger, opts Options) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	if opts.Validation == "" {
		opts.Validation = ValidationOff
	}
	return &Service{
		extractor: extractor,
		writer:    writer,
		logger:    logger.WithOperation("extract"),
		opts:      opts,
	}
}

// Process extracts records from documentPath using prompt and writes them to
// outputPath. An empty extraction is not an error: the result has
// StatusNoData and no file is written.
func (s *Service) Process(ctx context.Context, documentPath, prompt, outputPath string) (*Result, error) {
	return s.ProcessWithEvents(ctx, documentPath, prompt, outputPath, nil)
}

// ProcessWithEvents is Process with stage notifications sent to eventCh.
// Sends never block; events are dropped when the channel is full.
func (s *Service) ProcessWithEvents(ctx context.Context, documentPath, prompt, outputPath string, eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := s.logger.WithRunID(runID)

	result := &Result{RunID: runID, OutputPath: outputPath}

	logger.Info().
		Str("document", documentPath).
		Str("output", outputPath).
		Str("validation", string(s.opts.Validation)).
		Msg("Starting extraction")
	s.emitEvent(eventCh, logger, domain.StreamEvent{
		Type:    domain.EventStart,
		RunID:   runID,
		Payload: fmt.Sprintf("Starting extraction of %s", documentPath),
	})

	fail := func(err error) (*Result, error) {
		logger.Error().
			Str("kind", string(domain.TypeOf(err))).
			Err(err).
			Msg("Extraction failed")
		s.emitEvent(eventCh, logger, domain.StreamEvent{Type: domain.EventError, RunID: runID, Payload: err.Error()})
		return nil, err
	}

	if err := s.writer.CheckPath(outputPath); err != nil {
		return fail(err)
	}

	records, err := s.extractor.Extract(ctx, documentPath, prompt)
	if err != nil {
		return fail(err)
	}

	result.Records = len(records)
	if len(records) == 0 {
		result.Status = StatusNoData
		result.Duration = time.Since(startTime)
		logger.Warn().Str("document", documentPath).Msg("No records extracted; nothing to save")
		s.emitEvent(eventCh, logger, domain.StreamEvent{
			Type:    domain.EventNoData,
			RunID:   runID,
			Payload: "No records extracted",
		})
		return result, nil
	}

	logger.Info().Int("records", len(records)).Msg("Records extracted")
	s.emitEvent(eventCh, logger, domain.StreamEvent{
		Type:    domain.EventExtracted,
		RunID:   runID,
		Records: len(records),
		Payload: fmt.Sprintf("Extracted %d records", len(records)),
	})

	if s.opts.Validation != ValidationOff {
		invalid := record.Invalid(record.ValidateAll(records))
		result.Invalid = invalid
		for _, r := range invalid {
			logger.Warn().
				Int("record", r.Index).
				Strs("errors", fieldErrorStrings(r.Errors)).
				Msg("Record does not match the bibliographic schema")
		}
		s.emitEvent(eventCh, logger, domain.StreamEvent{
			Type:    domain.EventValidated,
			RunID:   runID,
			Records: len(invalid),
			Payload: fmt.Sprintf("%d of %d records failed validation", len(invalid), len(records)),
		})
		if len(invalid) > 0 && s.opts.Validation == ValidationStrict {
			return fail(domain.ValidationError(
				fmt.Sprintf("%d of %d records do not match the bibliographic schema", len(invalid), len(records)), nil))
		}
	}

	columns, err := s.writer.Write(records, outputPath)
	if err != nil {
		return fail(err)
	}

	result.Status = StatusPersisted
	result.Columns = columns
	result.Duration = time.Since(startTime)

	logger.Info().
		Int("records", len(records)).
		Strs("columns", columns).
		Str("output", outputPath).
		Dur("duration", result.Duration).
		Msg("Extraction complete")
	s.emitEvent(eventCh, logger, domain.StreamEvent{
		Type:    domain.EventPersisted,
		RunID:   runID,
		Records: len(records),
		Payload: fmt.Sprintf("Saved %d records to %s", len(records), outputPath),
	})

	return result, nil
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, logger *observability.Logger, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case eventCh <- event:
	default:
		logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}

func fieldErrorStrings(errs []record.FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.String()
	}
	return out
}
