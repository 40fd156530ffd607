package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/catalog-extractor/internal/domain"
)

// SupportedExtensions lists the document formats go-fitz can rasterize.
var SupportedExtensions = []string{
	".pdf", ".epub", ".xps", ".oxps", ".cbz", ".fb2", ".mobi",
	".svg", ".png", ".jpg", ".jpeg",
}

// Validator provides input validation for document files
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDocumentPath checks that path names a readable file in a supported format
func (v *Validator) ValidateDocumentPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.InputError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.InputError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.InputError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.InputError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !isSupported(ext) {
		return domain.InputError(fmt.Sprintf("unsupported document format %q", ext), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.InputError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}

func isSupported(ext string) bool {
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
