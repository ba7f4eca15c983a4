package domain

import "encoding/base64"

// ImageFormat is the on-the-wire encoding of a rasterized page.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
)

// MIMEType returns the content type used in data URIs.
func (f ImageFormat) MIMEType() string {
	return "image/" + string(f)
}

// Ext returns the file extension for persisted pages.
func (f ImageFormat) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// RenderSpec controls page geometry resolution and encoding. Supplied
// once per conversion call and never mutated.
type RenderSpec struct {
	DPI             int
	TargetHeightPx  int
	AspectThreshold float64
	// FastMode trades fidelity for payload size: JPEG encoding at
	// Quality and a capped output height.
	FastMode bool
	Quality  int
}

// DefaultRenderSpec mirrors the tool's historical defaults.
func DefaultRenderSpec() RenderSpec {
	return RenderSpec{
		DPI:             300,
		TargetHeightPx:  2048,
		AspectThreshold: 1.5,
		Quality:         95,
	}
}

// Validate checks the spec for usable values.
func (s RenderSpec) Validate() error {
	if s.DPI <= 0 {
		return ConfigError("dpi must be positive", nil)
	}
	if s.TargetHeightPx <= 0 {
		return ConfigError("target height must be positive", nil)
	}
	if s.AspectThreshold <= 0 {
		return ConfigError("aspect threshold must be positive", nil)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return ConfigError("quality must be between 1 and 100", nil)
	}
	return nil
}

// Format returns the encoding the spec selects.
func (s RenderSpec) Format() ImageFormat {
	if s.FastMode {
		return FormatJPEG
	}
	return FormatPNG
}

// PageImage is one rasterized page. Owned exclusively by the caller that
// receives it and never mutated after creation.
type PageImage struct {
	PageNumber int
	WidthPx    int
	HeightPx   int
	Encoded    []byte
	Format     ImageFormat
}

// Base64 returns the wire encoding of the page bytes.
func (p PageImage) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Encoded)
}

// EncodedPage is the wire payload sent to the annotation service.
type EncodedPage struct {
	Page   int    `json:"page"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
	Format string `json:"format"`
}

// Encode wraps a PageImage for the wire.
func (p PageImage) Encode() EncodedPage {
	return EncodedPage{
		Page:   p.PageNumber,
		Width:  p.WidthPx,
		Height: p.HeightPx,
		Data:   p.Base64(),
		Format: string(p.Format),
	}
}

// RenderResult is the rasterization output schema. Order always lists
// the ascending page numbers; Base64Images is present when wire encoding
// was requested and FilePaths when disk persistence was requested.
type RenderResult struct {
	Order        []int         `json:"order"`
	Base64Images []EncodedPage `json:"base64_images,omitempty"`
	FilePaths    []string      `json:"file_paths,omitempty"`
}

// MarkdownFragment is the annotator's output for one page.
type MarkdownFragment struct {
	PageNumber int
	Text       string
}

// Credentials identify the caller to the vision-completion service.
// They are threaded explicitly through every call; the core never reads
// or mutates process-wide state.
type Credentials struct {
	APIKey  string
	SiteURL string
	AppName string
}

// ConversionResult is the assembled output of a conversion. Fragments is
// always populated in ascending page order. Combined is set when the
// caller asked for combined output. Skipped counts pages missing from
// the rasterized set; Failed counts pages whose annotation failed and
// was replaced by a placeholder.
type ConversionResult struct {
	Fragments []MarkdownFragment
	Combined  string
	Skipped   int
	Failed    int
}
