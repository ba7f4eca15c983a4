package convert

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	// Decoders for the supported input formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/spherical/pdf2md/internal/domain"
	"github.com/spherical/pdf2md/internal/geometry"
	"github.com/spherical/pdf2md/internal/render"
)

// ImageConverter converts loose image files to Markdown through the
// same geometry, encoding and annotation pipeline as PDF pages.
type ImageConverter struct {
	annotator Annotator
	log       zerolog.Logger
}

// NewImageConverter wires an image converter over the given annotator.
func NewImageConverter(annotator Annotator, log zerolog.Logger) *ImageConverter {
	return &ImageConverter{
		annotator: annotator,
		log:       log.With().Str("component", "image_converter").Logger(),
	}
}

// preparedImage is one rescaled, encoded input file.
type preparedImage struct {
	page domain.EncodedPage
	stem string
}

// ConvertImages converts the image files at paths to Markdown.
//
// Missing files are warned about and skipped; if none remain the call
// fails with NotFound. Preparation (decode, rescale, encode) runs over a
// bounded pool; annotation runs over its own pool like the PDF path.
// When more than one image survives, each fragment gets a
// "## Image: {name}" header.
func (c *ImageConverter) ConvertImages(ctx context.Context, paths []string, opts Options) (*domain.ConversionResult, error) {
	opts.applyDefaults()
	if err := opts.Spec.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = render.DefaultWorkers
	}

	valid := make([]string, 0, len(paths))
	skipped := 0
	for _, path := range paths {
		if err := render.ValidateImagePath(path); err != nil {
			c.log.Warn().Str("path", path).Err(err).Msg("skipping unreadable image")
			skipped++
			continue
		}
		valid = append(valid, path)
	}
	if len(valid) == 0 {
		return nil, domain.NotFoundError("no valid image files found", nil)
	}

	prepared := make([]preparedImage, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range valid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, err := prepareImage(path, i+1, opts.Spec)
			if err != nil {
				return err
			}
			prepared[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	multi := len(prepared) > 1
	jobs := make([]annotateJob, len(prepared))
	for i, item := range prepared {
		job := annotateJob{page: item.page}
		if multi {
			job.header = fmt.Sprintf("## Image: %s\n\n", item.stem)
		}
		if opts.OutputDir != "" {
			job.outputPath = filepath.Join(opts.OutputDir, item.stem+".md")
		}
		jobs[i] = job
	}

	fragments, failed, err := annotatePages(ctx, c.annotator, c.log, jobs, opts)
	if err != nil {
		return nil, err
	}

	return assemble(fragments, skipped, failed, opts)
}

// prepareImage loads one image file, rescales it to the resolved
// geometry and encodes it for the wire.
func prepareImage(path string, position int, spec domain.RenderSpec) (preparedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return preparedImage{}, domain.NotFoundError(fmt.Sprintf("cannot open image: %s", path), err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return preparedImage{}, domain.RenderError(fmt.Sprintf("failed to decode image: %s", path), err)
	}

	bounds := src.Bounds()
	res, err := geometry.Resolve(float64(bounds.Dx()), float64(bounds.Dy()), spec)
	if err != nil {
		return preparedImage{}, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, res.WidthPx, res.HeightPx))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)

	encoded, err := render.EncodeImage(dst, spec)
	if err != nil {
		return preparedImage{}, err
	}

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	return preparedImage{
		page: domain.EncodedPage{
			Page:   position,
			Width:  res.WidthPx,
			Height: res.HeightPx,
			Data:   base64.StdEncoding.EncodeToString(encoded),
			Format: string(spec.Format()),
		},
		stem: stem,
	}, nil
}
