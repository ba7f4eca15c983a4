package commands

import (
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/spherical/pdf2md/pkg/converter"
)

// Conversion flags shared by the pdf, image and render commands.
var (
	outputDir       string
	dpi             int
	targetHeight    int
	aspectThreshold float64
	promptText      string
	model           string
	apiKey          string
	siteURL         string
	appName         string
	separate        bool
	batchSize       int
	workers         int
	annotateWorkers int
	quality         int
	fastMode        bool
	continueOnError bool
	requestTimeout  time.Duration
)

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&dpi, "dpi", 300, "DPI for page rendering")
	cmd.Flags().IntVar(&targetHeight, "target-height", 2048, "target page height in pixels")
	cmd.Flags().Float64Var(&aspectThreshold, "aspect-threshold", 1.5, "aspect ratio threshold for height adjustment")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "pages rasterized per batch")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent rasterization workers")
	cmd.Flags().IntVar(&quality, "quality", 95, "JPEG quality (1-100) in fast mode")
	cmd.Flags().BoolVar(&fastMode, "fast", false, "fast mode: JPEG encoding and capped resolution")
}

func addAnnotateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&promptText, "prompt", "", "text prompt sent with each page")
	cmd.Flags().StringVar(&model, "model", "", "vision model identifier (default from LLM_MODEL)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenRouter API key (default from OPENROUTER_API_KEY)")
	cmd.Flags().StringVar(&siteURL, "site-url", "", "optional site URL for OpenRouter attribution")
	cmd.Flags().StringVar(&appName, "app-name", "", "optional app name for OpenRouter attribution")
	cmd.Flags().BoolVar(&separate, "separate", false, "return per-page output instead of a combined document")
	cmd.Flags().IntVar(&annotateWorkers, "annotate-workers", 1, "concurrent annotation calls")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "emit placeholders for failed pages instead of aborting")
	cmd.Flags().DurationVar(&requestTimeout, "timeout", 300*time.Second, "per-request completion timeout")
}

// buildClient resolves credentials from flags, falling back to the
// environment the same way the library does.
func buildClient() (*converter.Client, error) {
	log := newLogger()

	key := apiKey
	if key == "" {
		key = os.Getenv("OPENROUTER_API_KEY")
	}
	m := model
	if m == "" {
		m = os.Getenv("LLM_MODEL")
	}
	site := siteURL
	if site == "" {
		site = os.Getenv("OR_SITE_URL")
	}
	app := appName
	if app == "" {
		app = os.Getenv("OR_APP_NAME")
	}

	return converter.NewClientWithConfig(&converter.Config{
		APIKey:  key,
		Model:   m,
		SiteURL: site,
		AppName: app,
		Timeout: requestTimeout,
		Logger:  &log,
	})
}

func buildOptions() converter.Options {
	spec := converter.DefaultRenderSpec()
	spec.DPI = dpi
	spec.TargetHeightPx = targetHeight
	spec.AspectThreshold = aspectThreshold
	spec.FastMode = fastMode
	spec.Quality = quality

	return converter.Options{
		Spec:            spec,
		Prompt:          promptText,
		OutputDir:       outputDir,
		Combined:        !separate,
		BatchSize:       batchSize,
		Workers:         workers,
		AnnotateWorkers: annotateWorkers,
		ContinueOnError: continueOnError,
	}
}

// pageProgress returns a progress callback backed by a terminal bar.
// The bar is lazily sized on the first callback; the callback is invoked
// from annotation workers, so init and updates are serialized.
func pageProgress(label string) func(done, total int) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(label),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
}

func success(format string, args ...any) {
	c := color.New(color.FgGreen)
	if noColor {
		c.DisableColor()
	}
	c.Printf(format+"\n", args...)
}
