package geotiff

import (
	"fmt"
)

// Transform is a six-parameter affine mapping from pixel space (column, row)
// to world space (x, y), stored in GDAL element order: origin x, pixel
// width, row rotation, origin y, column rotation, pixel height. Pixel height
// is negative for north-up rasters.
type Transform [6]float64

// DegenerateBoundsError is returned when bounds or raster dimensions can not
// produce an invertible transform.
type DegenerateBoundsError struct {
	Reason string
}

func (e *DegenerateBoundsError) Error() string {
	return fmt.Sprintf("Degenerate bounds, %s", e.Reason)
}

// TransformFromBounds derives the Transform placing pixel (0,0) at
// (minx, maxy) and pixel (width, height) at (maxx, miny), with uniform
// per-axis scaling.
func TransformFromBounds(minx float64, miny float64, maxx float64, maxy float64, width int, height int) (Transform, error) {

	var t Transform

	if width <= 0 || height <= 0 {
		return t, &DegenerateBoundsError{Reason: fmt.Sprintf("raster dimensions %dx%d", width, height)}
	}

	if minx >= maxx {
		return t, &DegenerateBoundsError{Reason: fmt.Sprintf("minx %f >= maxx %f", minx, maxx)}
	}

	if miny >= maxy {
		return t, &DegenerateBoundsError{Reason: fmt.Sprintf("miny %f >= maxy %f", miny, maxy)}
	}

	t[0] = minx
	t[1] = (maxx - minx) / float64(width)
	t[2] = 0.0
	t[3] = maxy
	t[4] = 0.0
	t[5] = (miny - maxy) / float64(height)

	return t, nil
}

// Apply maps a pixel coordinate to its world coordinate.
func (t Transform) Apply(col float64, row float64) (float64, float64) {

	x := t[0] + col*t[1] + row*t[2]
	y := t[3] + col*t[4] + row*t[5]

	return x, y
}

// Invert returns the Transform mapping world coordinates back to pixel
// coordinates.
func (t Transform) Invert() (Transform, error) {

	var inv Transform

	det := t[1]*t[5] - t[2]*t[4]

	if det == 0.0 {
		return inv, &DegenerateBoundsError{Reason: "transform is not invertible"}
	}

	inv[1] = t[5] / det
	inv[2] = -t[2] / det
	inv[4] = -t[4] / det
	inv[5] = t[1] / det

	inv[0] = -(inv[1]*t[0] + inv[2]*t[3])
	inv[3] = -(inv[4]*t[0] + inv[5]*t[3])

	return inv, nil
}
