package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spherical/catalog-extractor/internal/domain"
)

// Inspect reports a document's format and page count without rasterizing it.
// PDFs are read with pdfcpu; every other format goes through go-fitz.
func Inspect(path string) (*domain.DocumentInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	info := &domain.DocumentInfo{
		Path:   path,
		Format: strings.TrimPrefix(ext, "."),
	}

	if ext == ".pdf" {
		f, err := os.Open(path)
		if err != nil {
			return nil, domain.InputError(fmt.Sprintf("cannot open file: %s", path), err)
		}
		defer f.Close()

		pages, err := api.PageCount(f, nil)
		if err != nil {
			return nil, domain.RenderError(fmt.Sprintf("failed to read PDF structure of %s", path), err)
		}
		info.Pages = pages
		return info, nil
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to open document %s", path), err)
	}
	defer doc.Close()

	info.Pages = doc.NumPage()
	return info, nil
}
