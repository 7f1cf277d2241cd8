package reproject

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/sfomuseum/go-geotiff-convert/geotiff"
)

// ReprojectionError is returned when a dataset can not be reprojected,
// either because the reference system pair is not supported or because the
// source geometry is degenerate.
type ReprojectionError struct {
	Reason string
}

func (e *ReprojectionError) Error() string {
	return fmt.Sprintf("Failed to reproject raster, %s", e.Reason)
}

// NewTransformer returns a Transformer for the (src, dst) reference system
// pair. The latitude range of the source extent disambiguates the inverse
// mapping for the geocentric plane. The only supported pair is geographic
// to geocentric.
func NewTransformer(src geotiff.CRS, dst geotiff.CRS, min_lat float64, max_lat float64) (Transformer, error) {

	if src == geotiff.CRSGeographic && dst == geotiff.CRSGeocentric {
		return newGeocentricXY(min_lat, max_lat), nil
	}

	return nil, &ReprojectionError{Reason: fmt.Sprintf("no transform defined for %s to %s", src, dst)}
}

// Reproject warps ds in to a new dataset tagged with dst. The destination
// grid is the axis-aligned bounding extent of the forward-transformed
// source corners and edge midpoints, with a square pixel size chosen to
// approximately preserve the source resolution. Bands are resampled
// nearest-neighbor; destination pixels outside the source footprint are
// transparent.
func Reproject(ctx context.Context, ds *geotiff.Dataset, dst geotiff.CRS) (*geotiff.Dataset, error) {

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// pass
	}

	src_w := ds.Width()
	src_h := ds.Height()

	minx, miny, maxx, maxy := ds.Extent()

	if src_w <= 0 || src_h <= 0 || minx >= maxx || miny >= maxy {
		return nil, &ReprojectionError{Reason: "source raster has zero extent"}
	}

	tr, err := NewTransformer(ds.CRS, dst, miny, maxy)

	if err != nil {
		return nil, err
	}

	dst_t, dst_w, dst_h, err := destinationGrid(tr, src_w, src_h, minx, miny, maxx, maxy)

	if err != nil {
		return nil, err
	}

	dst_im, err := resampleNearest(ds, tr, dst_t, dst_w, dst_h)

	if err != nil {
		return nil, err
	}

	warped := &geotiff.Dataset{
		Image:     dst_im,
		Transform: dst_t,
		CRS:       dst,
	}

	return warped, nil
}

// destinationGrid computes the destination transform and dimensions
// enclosing every forward-transformed sample point of the source extent.
func destinationGrid(tr Transformer, src_w int, src_h int, minx float64, miny float64, maxx float64, maxy float64) (geotiff.Transform, int, int, error) {

	var dst_t geotiff.Transform

	midx := (minx + maxx) / 2.0
	midy := (miny + maxy) / 2.0

	samples := [][2]float64{
		{minx, maxy}, {midx, maxy}, {maxx, maxy},
		{minx, midy}, {maxx, midy},
		{minx, miny}, {midx, miny}, {maxx, miny},
	}

	d_minx := math.Inf(1)
	d_miny := math.Inf(1)
	d_maxx := math.Inf(-1)
	d_maxy := math.Inf(-1)

	for _, pt := range samples {

		x, y, err := tr.Forward(pt[0], pt[1])

		if err != nil {
			return dst_t, 0, 0, &ReprojectionError{Reason: err.Error()}
		}

		d_minx = min(d_minx, x)
		d_miny = min(d_miny, y)
		d_maxx = max(d_maxx, x)
		d_maxy = max(d_maxy, y)
	}

	dx := d_maxx - d_minx
	dy := d_maxy - d_miny

	if dx <= 0.0 || dy <= 0.0 {
		return dst_t, 0, 0, &ReprojectionError{Reason: "projected extent is degenerate"}
	}

	resolution := math.Sqrt((dx * dy) / float64(src_w*src_h))

	dst_w := int(math.Ceil(dx / resolution))
	dst_h := int(math.Ceil(dy / resolution))

	if dst_w < 1 {
		dst_w = 1
	}

	if dst_h < 1 {
		dst_h = 1
	}

	dst_t = geotiff.Transform{d_minx, resolution, 0.0, d_maxy, 0.0, -resolution}

	return dst_t, dst_w, dst_h, nil
}

// resampleNearest fills a destination grid by mapping each destination
// pixel center back through the inverse coordinate mapping and copying the
// nearest source pixel. Unmapped pixels stay transparent zero.
func resampleNearest(ds *geotiff.Dataset, tr Transformer, dst_t geotiff.Transform, dst_w int, dst_h int) (*image.NRGBA, error) {

	inv, err := ds.Transform.Invert()

	if err != nil {
		return nil, &ReprojectionError{Reason: err.Error()}
	}

	src_w := ds.Width()
	src_h := ds.Height()

	dst_im := image.NewNRGBA(image.Rect(0, 0, dst_w, dst_h))

	for row := 0; row < dst_h; row++ {

		for col := 0; col < dst_w; col++ {

			x, y := dst_t.Apply(float64(col)+0.5, float64(row)+0.5)

			sx, sy, err := tr.Inverse(x, y)

			if err != nil {
				continue
			}

			src_col, src_row := inv.Apply(sx, sy)

			ci := int(math.Floor(src_col))
			ri := int(math.Floor(src_row))

			if ci < 0 || ci >= src_w || ri < 0 || ri >= src_h {
				continue
			}

			src_off := ds.Image.PixOffset(ds.Image.Rect.Min.X+ci, ds.Image.Rect.Min.Y+ri)
			dst_off := dst_im.PixOffset(col, row)

			copy(dst_im.Pix[dst_off:dst_off+4], ds.Image.Pix[src_off:src_off+4])
		}
	}

	return dst_im, nil
}
