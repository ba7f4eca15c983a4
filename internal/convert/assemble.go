// Package convert assembles per-page model output into ordered Markdown
// documents, for PDFs and for loose image files.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/pdf2md/internal/domain"
	"github.com/spherical/pdf2md/internal/llm"
)

// PageSeparator joins fragments in combined output.
const PageSeparator = "\n\n---\n\n"

// CombinedFileName is the on-disk name of the combined document.
const CombinedFileName = "combined.md"

// Annotator converts one encoded page into Markdown.
type Annotator interface {
	Annotate(ctx context.Context, page domain.EncodedPage, prompt string) (domain.MarkdownFragment, error)
}

// Options configure a conversion.
type Options struct {
	Spec   domain.RenderSpec
	Prompt string
	// OutputDir, when set, receives per-page markdown files and (in
	// combined mode) the combined document.
	OutputDir string
	Combined  bool
	BatchSize int
	Workers   int
	// AnnotateWorkers bounds concurrent completion calls. Zero means
	// one, which preserves the original sequential pacing.
	AnnotateWorkers int
	// ContinueOnError replaces failed pages with an explicit
	// placeholder instead of aborting the conversion.
	ContinueOnError bool
	// Progress, when set, is called after each page is annotated.
	Progress func(done, total int)
}

func (o *Options) applyDefaults() {
	if o.Prompt == "" {
		o.Prompt = llm.DefaultPrompt
	}
	if o.AnnotateWorkers <= 0 {
		o.AnnotateWorkers = 1
	}
}

// annotateJob pairs a page payload with its assembly metadata.
type annotateJob struct {
	page domain.EncodedPage
	// header is prepended to the fragment in the assembled output;
	// empty for single-page documents.
	header string
	// outputPath, when set, receives the raw fragment text.
	outputPath string
}

// annotatePages fans the jobs out over a bounded pool and returns the
// fragments in job order. With continueOnError set, failed pages yield
// placeholder fragments and are counted instead of aborting.
func annotatePages(ctx context.Context, annotator Annotator, log zerolog.Logger, jobs []annotateJob, opts Options) ([]domain.MarkdownFragment, int, error) {
	fragments := make([]domain.MarkdownFragment, len(jobs))
	var failed, done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.AnnotateWorkers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			fragment, err := annotator.Annotate(gctx, job.page, opts.Prompt)
			if err != nil {
				if !opts.ContinueOnError {
					return err
				}
				log.Error().Err(err).Int("page", job.page.Page).Msg("annotation failed, emitting placeholder")
				failed.Add(1)
				fragment = domain.MarkdownFragment{
					PageNumber: job.page.Page,
					Text:       fmt.Sprintf("*[annotation failed for page %d]*", job.page.Page),
				}
			} else if job.outputPath != "" {
				if err := writeText(job.outputPath, fragment.Text); err != nil {
					return err
				}
				log.Debug().Int("page", job.page.Page).Str("path", job.outputPath).Msg("fragment persisted")
			}

			fragment.Text = job.header + fragment.Text
			fragments[i] = fragment

			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), len(jobs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return fragments, int(failed.Load()), nil
}

// assemble joins fragments into a ConversionResult, writing the combined
// document when requested.
func assemble(fragments []domain.MarkdownFragment, skipped, failed int, opts Options) (*domain.ConversionResult, error) {
	result := &domain.ConversionResult{
		Fragments: fragments,
		Skipped:   skipped,
		Failed:    failed,
	}

	if !opts.Combined {
		return result, nil
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text
	}
	combined := strings.Join(texts, PageSeparator)
	result.Combined = combined

	if opts.OutputDir != "" {
		path := filepath.Join(opts.OutputDir, CombinedFileName)
		if err := writeText(path, combined); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.ConfigError("failed to create output directory", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return domain.ConfigError("failed to write markdown file", err)
	}
	return nil
}
