// Package converter is the public entry point for the PDF and image to
// Markdown conversion library.
package converter

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/spherical/pdf2md/internal/convert"
	"github.com/spherical/pdf2md/internal/domain"
	"github.com/spherical/pdf2md/internal/llm"
	"github.com/spherical/pdf2md/internal/render"
)

// Re-export the option and result types callers work with.
type (
	Options          = convert.Options
	ConversionResult = domain.ConversionResult
	RenderSpec       = domain.RenderSpec
	Credentials      = domain.Credentials
)

// DefaultRenderSpec mirrors the historical CLI defaults.
func DefaultRenderSpec() RenderSpec {
	return domain.DefaultRenderSpec()
}

// Config holds configuration options for the client.
type Config struct {
	// APIKey authenticates against OpenRouter.
	APIKey string
	// Model optionally overrides the vision model.
	Model string
	// SiteURL and AppName are optional OpenRouter attribution headers.
	SiteURL string
	AppName string
	// Timeout bounds each completion round trip.
	Timeout time.Duration
	// Logger defaults to a no-op logger when unset.
	Logger *zerolog.Logger
}

// Client converts documents and images to Markdown.
type Client struct {
	converter      *convert.Converter
	imageConverter *convert.ImageConverter
	model          string
}

// NewClient creates a client from the environment. A .env file is
// loaded when present; OPENROUTER_API_KEY is required, LLM_MODEL,
// OR_SITE_URL and OR_APP_NAME are optional.
func NewClient() (*Client, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return nil, domain.ConfigError("OPENROUTER_API_KEY not set", nil)
	}

	return NewClientWithConfig(&Config{
		APIKey:  apiKey,
		Model:   os.Getenv("LLM_MODEL"),
		SiteURL: os.Getenv("OR_SITE_URL"),
		AppName: os.Getenv("OR_APP_NAME"),
	})
}

// NewClientWithConfig creates a client with explicit configuration.
func NewClientWithConfig(config *Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, domain.ConfigError("API key is required", nil)
	}

	log := zerolog.Nop()
	if config.Logger != nil {
		log = *config.Logger
	}

	annotator, err := llm.NewClient(llm.Config{
		Credentials: domain.Credentials{
			APIKey:  config.APIKey,
			SiteURL: config.SiteURL,
			AppName: config.AppName,
		},
		Model:   config.Model,
		Timeout: config.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	renderer := render.NewFitzRenderer()

	return &Client{
		converter:      convert.NewConverter(renderer, annotator, log),
		imageConverter: convert.NewImageConverter(annotator, log),
		model:          annotator.Model(),
	}, nil
}

// Model returns the vision model identifier in use.
func (c *Client) Model() string {
	return c.model
}

// ConvertPDF converts the PDF at path to Markdown.
func (c *Client) ConvertPDF(ctx context.Context, path string, opts Options) (*ConversionResult, error) {
	return c.converter.ConvertPDF(ctx, path, opts)
}

// ConvertImages converts the image files at paths to Markdown.
func (c *Client) ConvertImages(ctx context.Context, paths []string, opts Options) (*ConversionResult, error) {
	return c.imageConverter.ConvertImages(ctx, paths, opts)
}

// RenderPDF rasterizes the PDF at path into page image files under
// opts.OutputDir without annotating, returning the paths in page order.
func (c *Client) RenderPDF(ctx context.Context, path string, opts Options) ([]string, error) {
	return c.converter.RenderOnly(ctx, path, opts)
}

// RenderPDF rasterizes a PDF to page image files without annotating.
// No credentials are needed; logger may be nil.
func RenderPDF(ctx context.Context, path string, opts Options, logger *zerolog.Logger) ([]string, error) {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	c := convert.NewConverter(render.NewFitzRenderer(), nil, log)
	return c.RenderOnly(ctx, path, opts)
}
