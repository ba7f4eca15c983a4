package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spherical/pdf2md/internal/domain"
	"github.com/spherical/pdf2md/internal/geometry"
)

// PageFileName returns the deterministic on-disk name for a page,
// zero-padded to three digits.
func PageFileName(pageNumber int, format domain.ImageFormat) string {
	return fmt.Sprintf("page_%03d%s", pageNumber, format.Ext())
}

// RasterizePage renders one 1-based page of an open document at the
// geometry the spec resolves to and encodes it (PNG in normal mode,
// JPEG at the spec quality in fast mode). When persistDir is non-empty
// the encoded bytes are also written under it, creating directories as
// needed; the returned path is empty otherwise.
func RasterizePage(doc Document, pageNumber int, spec domain.RenderSpec, persistDir string) (domain.PageImage, string, error) {
	widthPt, heightPt, err := doc.PageSize(pageNumber)
	if err != nil {
		return domain.PageImage{}, "", err
	}

	res, err := geometry.Resolve(widthPt, heightPt, spec)
	if err != nil {
		return domain.PageImage{}, "", err
	}

	img, err := doc.Rasterize(pageNumber, res.Scale)
	if err != nil {
		return domain.PageImage{}, "", err
	}

	encoded, err := EncodeImage(img, spec)
	if err != nil {
		return domain.PageImage{}, "", err
	}

	bounds := img.Bounds()
	page := domain.PageImage{
		PageNumber: pageNumber,
		WidthPx:    bounds.Dx(),
		HeightPx:   bounds.Dy(),
		Encoded:    encoded,
		Format:     spec.Format(),
	}

	var path string
	if persistDir != "" {
		path = filepath.Join(persistDir, PageFileName(pageNumber, page.Format))
		if err := writeFile(path, encoded); err != nil {
			return domain.PageImage{}, "", err
		}
	}

	return page, path, nil
}

// EncodeImage encodes a raster per the spec's format selection.
func EncodeImage(img image.Image, spec domain.RenderSpec) ([]byte, error) {
	var buf bytes.Buffer
	if spec.FastMode {
		opts := &jpeg.Options{Quality: spec.Quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, domain.RenderError("failed to encode page as JPEG", err)
		}
	} else {
		if err := png.Encode(&buf, img); err != nil {
			return nil, domain.RenderError("failed to encode page as PNG", err)
		}
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.RenderError("failed to create output directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.RenderError("failed to write page file", err)
	}
	return nil
}
