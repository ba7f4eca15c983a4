// Package render turns document pages into encoded raster images. It
// owns the renderer collaborator boundary, the per-page rasterizer and
// the batched, order-preserving scheduler.
package render

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/pdf2md/internal/domain"
)

// Document is an open handle on a paginated document. Handles are not
// safe for concurrent use; each worker opens its own.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int
	// PageSize returns the native size of a 1-based page in points.
	PageSize(pageNumber int) (widthPt, heightPt float64, err error)
	// Rasterize renders a 1-based page at the given zoom factor.
	Rasterize(pageNumber int, scale float64) (image.Image, error)
	// Close releases the underlying resources.
	Close() error
}

// Renderer opens documents. Implementations must allow concurrent Open
// calls so workers can hold independent handles.
type Renderer interface {
	Open(path string) (Document, error)
}

// FitzRenderer renders PDFs through MuPDF.
type FitzRenderer struct{}

// NewFitzRenderer returns the production renderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open opens the document at path.
func (r *FitzRenderer) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.RenderError("failed to open document", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) PageSize(pageNumber int) (float64, float64, error) {
	if pageNumber < 1 || pageNumber > d.doc.NumPage() {
		return 0, 0, domain.RenderError(fmt.Sprintf("page %d out of range", pageNumber), nil)
	}
	// Bound reports the page rectangle at 72 DPI, i.e. in points.
	bound, err := d.doc.Bound(pageNumber - 1)
	if err != nil {
		return 0, 0, domain.RenderError(fmt.Sprintf("failed to measure page %d", pageNumber), err)
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}

func (d *fitzDocument) Rasterize(pageNumber int, scale float64) (image.Image, error) {
	if pageNumber < 1 || pageNumber > d.doc.NumPage() {
		return nil, domain.RenderError(fmt.Sprintf("page %d out of range", pageNumber), nil)
	}
	img, err := d.doc.ImageDPI(pageNumber-1, scale*72.0)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", pageNumber), err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
