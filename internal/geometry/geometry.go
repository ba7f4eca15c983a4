// Package geometry resolves native page sizes into raster dimensions.
package geometry

import (
	"fmt"
	"math"

	"github.com/spherical/pdf2md/internal/domain"
)

// FastModeMaxHeight caps the output height in fast mode to bound the
// payload sent to the annotation service.
const FastModeMaxHeight = 1024

// Resolution is the computed raster size for one page. Scale is the
// zoom factor to request from the renderer so that the output lands at
// WidthPx by HeightPx.
type Resolution struct {
	WidthPx  int
	HeightPx int
	Scale    float64
}

// Resolve computes the final pixel dimensions and rendering scale for a
// page of widthPt by heightPt points.
//
// Pages taller than the aspect threshold get a proportionally taller
// target so text does not shrink below readability; the comparison is
// strict, a page at exactly the threshold keeps the plain target. The
// dpi/72 term layers the caller's base-DPI intent on top of the
// height-driven zoom (1 point = 1/72 inch).
func Resolve(widthPt, heightPt float64, spec domain.RenderSpec) (Resolution, error) {
	if widthPt <= 0 || heightPt <= 0 {
		return Resolution{}, domain.GeometryError(
			fmt.Sprintf("degenerate page size %.2fx%.2f pt", widthPt, heightPt), nil)
	}

	ar := heightPt / widthPt
	target := spec.TargetHeightPx

	heightPx := target
	if ar > spec.AspectThreshold {
		if bumped := int(math.Round(ar * float64(target))); bumped > heightPx {
			heightPx = bumped
		}
	}
	if spec.FastMode && heightPx > FastModeMaxHeight {
		heightPx = FastModeMaxHeight
	}

	scale := (float64(heightPx) / heightPt) * (float64(spec.DPI) / 72.0)
	widthPx := int(math.Round(float64(heightPx) / ar))

	return Resolution{WidthPx: widthPx, HeightPx: heightPx, Scale: scale}, nil
}
