package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf2md/internal/domain"
)

// mockRenderer is an in-memory stand-in for the MuPDF backend.
type mockRenderer struct {
	pageCount int
	widthPt   float64
	heightPt  float64
	jitter    time.Duration
	failPage  int
	openErr   error

	opens      atomic.Int32
	rasterized atomic.Int32
}

func newMockRenderer(pages int) *mockRenderer {
	return &mockRenderer{pageCount: pages, widthPt: 612, heightPt: 792}
}

func (m *mockRenderer) Open(path string) (Document, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opens.Add(1)
	return &mockDocument{r: m}, nil
}

type mockDocument struct {
	r *mockRenderer
}

func (d *mockDocument) PageCount() int {
	return d.r.pageCount
}

func (d *mockDocument) PageSize(pageNumber int) (float64, float64, error) {
	if pageNumber < 1 || pageNumber > d.r.pageCount {
		return 0, 0, domain.RenderError(fmt.Sprintf("page %d out of range", pageNumber), nil)
	}
	return d.r.widthPt, d.r.heightPt, nil
}

func (d *mockDocument) Rasterize(pageNumber int, scale float64) (image.Image, error) {
	if d.r.jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(d.r.jitter))))
	}
	if pageNumber == d.r.failPage {
		return nil, domain.RenderError(fmt.Sprintf("backend failure on page %d", pageNumber), nil)
	}
	d.r.rasterized.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	// A pixel keyed to the page number so pages are distinguishable.
	img.Set(0, 0, color.RGBA{R: uint8(pageNumber), A: 255})
	return img, nil
}

func (d *mockDocument) Close() error {
	return nil
}

func testSpec() domain.RenderSpec {
	spec := domain.DefaultRenderSpec()
	spec.TargetHeightPx = 100
	return spec
}

func TestRenderAllPreservesPageOrder(t *testing.T) {
	const pages = 25
	renderer := newMockRenderer(pages)
	renderer.jitter = 3 * time.Millisecond

	s := NewScheduler(renderer, zerolog.Nop())
	result, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:      testSpec(),
		BatchSize: 10,
		Workers:   4,
		WantWire:  true,
	})
	require.NoError(t, err)

	require.Len(t, result.Order, pages)
	require.Len(t, result.Base64Images, pages)
	for i := 0; i < pages; i++ {
		assert.Equal(t, i+1, result.Order[i])
		assert.Equal(t, i+1, result.Base64Images[i].Page)
	}
	assert.Empty(t, result.FilePaths)
}

func TestRenderAllWireRoundTrip(t *testing.T) {
	renderer := newMockRenderer(1)
	s := NewScheduler(renderer, zerolog.Nop())

	result, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:     testSpec(),
		WantWire: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Base64Images, 1)

	wire := result.Base64Images[0]
	assert.Equal(t, "png", wire.Format)
	assert.Equal(t, 100, wire.Width)
	assert.Equal(t, 100, wire.Height)

	raw, err := base64.StdEncoding.DecodeString(wire.Data)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestRenderAllDiskGuard(t *testing.T) {
	renderer := newMockRenderer(5)
	s := NewScheduler(renderer, zerolog.Nop())

	_, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:     testSpec(),
		WantDisk: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))

	// Fail fast: the renderer must never have been touched.
	assert.Equal(t, int32(0), renderer.opens.Load())
	assert.Equal(t, int32(0), renderer.rasterized.Load())
}

func TestRenderAllDiskPersistence(t *testing.T) {
	dir := t.TempDir()
	renderer := newMockRenderer(3)
	s := NewScheduler(renderer, zerolog.Nop())

	result, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:      testSpec(),
		OutputDir: dir,
		WantDisk:  true,
	})
	require.NoError(t, err)

	require.Len(t, result.FilePaths, 3)
	assert.Contains(t, result.FilePaths[0], "page_001.png")
	assert.Contains(t, result.FilePaths[2], "page_003.png")
	for _, p := range result.FilePaths {
		assert.FileExists(t, p)
	}
	// Wire output was not requested.
	assert.Empty(t, result.Base64Images)
}

func TestRenderAllEmptyDocument(t *testing.T) {
	renderer := newMockRenderer(0)
	s := NewScheduler(renderer, zerolog.Nop())

	result, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:     testSpec(),
		WantWire: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Order)
	assert.Empty(t, result.Base64Images)
}

func TestRenderAllAbortsOnPageFailure(t *testing.T) {
	renderer := newMockRenderer(10)
	renderer.failPage = 7

	s := NewScheduler(renderer, zerolog.Nop())
	_, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:      testSpec(),
		BatchSize: 5,
		Workers:   4,
		WantWire:  true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindRender))
	assert.Contains(t, err.Error(), "page 7")
}

func TestRenderAllOpenFailure(t *testing.T) {
	renderer := newMockRenderer(3)
	renderer.openErr = domain.RenderError("failed to open document", errors.New("corrupt header"))

	s := NewScheduler(renderer, zerolog.Nop())
	_, err := s.RenderAll(context.Background(), "doc.pdf", Options{Spec: testSpec(), WantWire: true})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindRender))
}

func TestRenderAllLastBatchSmaller(t *testing.T) {
	renderer := newMockRenderer(7)
	s := NewScheduler(renderer, zerolog.Nop())

	result, err := s.RenderAll(context.Background(), "doc.pdf", Options{
		Spec:      testSpec(),
		BatchSize: 3,
		Workers:   2,
		WantWire:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, result.Order)
}
