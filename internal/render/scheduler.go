package render

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/pdf2md/internal/domain"
)

// Scheduler defaults.
const (
	DefaultBatchSize = 10
	DefaultWorkers   = 4
)

// Options configure a RenderAll call.
type Options struct {
	Spec      domain.RenderSpec
	BatchSize int
	Workers   int
	// OutputDir receives page files when WantDisk is set.
	OutputDir string
	WantDisk  bool
	WantWire  bool
}

// Scheduler rasterizes whole documents in bounded batches, fanning each
// batch out across a worker pool while preserving page order.
type Scheduler struct {
	renderer Renderer
	log      zerolog.Logger
}

// NewScheduler creates a scheduler over the given renderer.
func NewScheduler(renderer Renderer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		renderer: renderer,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

type slot struct {
	page domain.EncodedPage
	path string
}

// RenderAll rasterizes every page of the document at path.
//
// Pages are processed in consecutive batches of BatchSize so peak memory
// is bounded by one batch of pixel buffers rather than the whole
// document. Within a batch each page is rendered by its own worker with
// its own document handle; results land in index-addressed slots, so the
// output is in ascending page order regardless of completion order. A
// single page failure aborts the call.
func (s *Scheduler) RenderAll(ctx context.Context, path string, opts Options) (*domain.RenderResult, error) {
	if err := opts.Spec.Validate(); err != nil {
		return nil, err
	}
	if opts.WantDisk && opts.OutputDir == "" {
		return nil, domain.ConfigError("disk persistence requested without an output directory", nil)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	doc, err := s.renderer.Open(path)
	if err != nil {
		return nil, err
	}
	pageCount := doc.PageCount()
	if err := doc.Close(); err != nil {
		return nil, domain.RenderError("failed to close document", err)
	}

	result := &domain.RenderResult{Order: make([]int, 0, pageCount)}
	if pageCount == 0 {
		s.log.Warn().Str("path", path).Msg("document has no pages")
		return result, nil
	}

	persistDir := ""
	if opts.WantDisk {
		persistDir = opts.OutputDir
	}

	for start := 1; start <= pageCount; start += opts.BatchSize {
		end := start + opts.BatchSize - 1
		if end > pageCount {
			end = pageCount
		}

		began := time.Now()
		slots := make([]slot, end-start+1)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range slots {
			pageNumber := start + i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Each worker opens its own handle; the renderer
				// backend is not shared across concurrent calls.
				doc, err := s.renderer.Open(path)
				if err != nil {
					return fmt.Errorf("page %d: %w", pageNumber, err)
				}
				defer doc.Close()

				page, filePath, err := RasterizePage(doc, pageNumber, opts.Spec, persistDir)
				if err != nil {
					return fmt.Errorf("page %d: %w", pageNumber, err)
				}

				item := slot{path: filePath}
				if opts.WantWire {
					item.page = page.Encode()
				}
				slots[i] = item
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, item := range slots {
			result.Order = append(result.Order, start+i)
			if opts.WantWire {
				result.Base64Images = append(result.Base64Images, item.page)
			}
			if opts.WantDisk {
				result.FilePaths = append(result.FilePaths, item.path)
			}
		}
		elapsed := time.Since(began)
		pages := end - start + 1
		s.log.Info().
			Int("batch_start", start).
			Int("batch_end", end).
			Dur("elapsed", elapsed).
			Float64("pages_per_sec", float64(pages)/elapsed.Seconds()).
			Msg("batch rendered")
	}

	return result, nil
}
