package domain

import "context"

// Renderer defines the interface for turning a document into page images
type Renderer interface {
	// Render rasterizes every page in source order. Either all pages render or
	// an error is returned.
	Render(ctx context.Context, path string) ([]RenderedPage, error)
}

// Extractor defines the interface for extracting records from a document
type Extractor interface {
	// Extract renders the document and asks the model for records matching prompt
	Extract(ctx context.Context, documentPath, prompt string) ([]Record, error)
}

// Writer defines the interface for persisting records as a table
type Writer interface {
	// CheckPath validates the target path without touching the filesystem
	CheckPath(path string) error

	// Write persists records and returns the column layout used
	Write(records []Record, path string) ([]string, error)
}
