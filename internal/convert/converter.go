package convert

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/spherical/pdf2md/internal/domain"
	"github.com/spherical/pdf2md/internal/render"
)

// Converter drives the full PDF-to-Markdown pipeline: batched
// rasterization, per-page annotation, ordered assembly.
type Converter struct {
	scheduler *render.Scheduler
	annotator Annotator
	log       zerolog.Logger
}

// NewConverter wires a converter over the given renderer and annotator.
func NewConverter(renderer render.Renderer, annotator Annotator, log zerolog.Logger) *Converter {
	return &Converter{
		scheduler: render.NewScheduler(renderer, log),
		annotator: annotator,
		log:       log.With().Str("component", "converter").Logger(),
	}
}

// ConvertPDF converts the document at pdfPath to Markdown.
//
// Pages are rasterized in order-preserving batches, then annotated over
// a bounded pool (width Options.AnnotateWorkers). Multi-page documents
// get a "## Page {n}" header per fragment; combined mode joins fragments
// with a horizontal rule and persists combined.md when an output
// directory is set. Pages missing from the rasterized set are skipped
// and counted, never silently reordered.
func (c *Converter) ConvertPDF(ctx context.Context, pdfPath string, opts Options) (*domain.ConversionResult, error) {
	opts.applyDefaults()

	if err := render.ValidateDocumentPath(pdfPath); err != nil {
		return nil, err
	}

	c.log.Info().Str("path", pdfPath).Msg("converting document")

	rendered, err := c.scheduler.RenderAll(ctx, pdfPath, render.Options{
		Spec:      opts.Spec,
		BatchSize: opts.BatchSize,
		Workers:   opts.Workers,
		WantWire:  true,
	})
	if err != nil {
		return nil, err
	}

	byPage := make(map[int]domain.EncodedPage, len(rendered.Base64Images))
	for _, page := range rendered.Base64Images {
		byPage[page.Page] = page
	}

	multiPage := len(rendered.Order) > 1
	skipped := 0
	jobs := make([]annotateJob, 0, len(rendered.Order))
	for _, pageNumber := range rendered.Order {
		page, ok := byPage[pageNumber]
		if !ok {
			c.log.Warn().Int("page", pageNumber).Msg("page missing from rasterized set, skipping")
			skipped++
			continue
		}

		job := annotateJob{page: page}
		if multiPage {
			job.header = fmt.Sprintf("## Page %d\n\n", pageNumber)
		}
		if opts.OutputDir != "" {
			job.outputPath = filepath.Join(opts.OutputDir, fmt.Sprintf("page_%03d.md", pageNumber))
		}
		jobs = append(jobs, job)
	}

	fragments, failed, err := annotatePages(ctx, c.annotator, c.log, jobs, opts)
	if err != nil {
		return nil, err
	}

	result, err := assemble(fragments, skipped, failed, opts)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Int("pages", len(fragments)).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("conversion complete")
	return result, nil
}

// RenderOnly rasterizes the document to page image files under
// outputDir without annotating, returning the persisted paths in
// ascending page order.
func (c *Converter) RenderOnly(ctx context.Context, pdfPath string, opts Options) ([]string, error) {
	if err := render.ValidateDocumentPath(pdfPath); err != nil {
		return nil, err
	}

	rendered, err := c.scheduler.RenderAll(ctx, pdfPath, render.Options{
		Spec:      opts.Spec,
		BatchSize: opts.BatchSize,
		Workers:   opts.Workers,
		OutputDir: opts.OutputDir,
		WantDisk:  true,
	})
	if err != nil {
		return nil, err
	}
	return rendered.FilePaths, nil
}
