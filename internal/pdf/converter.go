package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/spherical/catalog-extractor/internal/domain"
)

// DefaultDPI renders pages at the document's native resolution.
const DefaultDPI = 72.0

const pngMIMEType = "image/png"

// RenderOptions configures a Renderer.
type RenderOptions struct {
	DPI float64

	// OnPage, when set, is called after each page is rendered.
	OnPage func(done, total int)
}

// Renderer implements page rasterization using go-fitz
type Renderer struct {
	dpi    float64
	onPage func(done, total int)
}

// NewRenderer creates a new renderer instance
func NewRenderer(opts RenderOptions) *Renderer {
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	return &Renderer{
		dpi:    opts.DPI,
		onPage: opts.OnPage,
	}
}

// DPI returns the rendering resolution.
func (r *Renderer) DPI() float64 {
	return r.dpi
}

// Render converts every page of a document into a base64 PNG, in source order.
// No partial result is ever returned.
func (r *Renderer) Render(ctx context.Context, path string) ([]domain.RenderedPage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to open document %s", path), err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		return nil, domain.RenderError(fmt.Sprintf("document has no pages: %s", path), nil)
	}

	pages := make([]domain.RenderedPage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.RenderError("rendering cancelled", err)
		}

		png, err := doc.ImagePNG(pageNum, r.dpi)
		if err != nil {
			return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", pageNum+1), err)
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
		if err != nil {
			return nil, domain.RenderError(fmt.Sprintf("page %d produced an unreadable image", pageNum+1), err)
		}

		pages = append(pages, domain.RenderedPage{
			Index:    pageNum,
			Data:     base64.StdEncoding.EncodeToString(png),
			MIMEType: pngMIMEType,
			Width:    cfg.Width,
			Height:   cfg.Height,
		})

		if r.onPage != nil {
			r.onPage(pageNum+1, pageCount)
		}
	}

	return pages, nil
}
