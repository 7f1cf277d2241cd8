package geotiff

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestTransformFromBounds(t *testing.T) {

	tr, err := TransformFromBounds(-10.0, 5.0, 30.0, 20.0, 100, 50)

	if err != nil {
		t.Fatalf("Failed to build transform, %v", err)
	}

	x, y := tr.Apply(0, 0)

	if !nearlyEqual(x, -10.0) || !nearlyEqual(y, 20.0) {
		t.Errorf("Pixel (0,0) maps to (%f,%f), expected (-10,20)", x, y)
	}

	x, y = tr.Apply(100, 50)

	if !nearlyEqual(x, 30.0) || !nearlyEqual(y, 5.0) {
		t.Errorf("Pixel (100,50) maps to (%f,%f), expected (30,5)", x, y)
	}

	x, y = tr.Apply(50, 25)

	if !nearlyEqual(x, 10.0) || !nearlyEqual(y, 12.5) {
		t.Errorf("Pixel (50,25) maps to (%f,%f), expected (10,12.5)", x, y)
	}
}

func TestTransformInvert(t *testing.T) {

	tr, err := TransformFromBounds(-10.0, 5.0, 30.0, 20.0, 100, 50)

	if err != nil {
		t.Fatalf("Failed to build transform, %v", err)
	}

	inv, err := tr.Invert()

	if err != nil {
		t.Fatalf("Failed to invert transform, %v", err)
	}

	col, row := inv.Apply(10.0, 12.5)

	if !nearlyEqual(col, 50.0) || !nearlyEqual(row, 25.0) {
		t.Errorf("World (10,12.5) maps to pixel (%f,%f), expected (50,25)", col, row)
	}
}

func TestTransformFromBoundsDegenerate(t *testing.T) {

	degenerate := []struct {
		minx, miny, maxx, maxy float64
		w, h                   int
	}{
		{-10.0, 5.0, 30.0, 20.0, 0, 50},
		{-10.0, 5.0, 30.0, 20.0, 100, -1},
		{30.0, 5.0, -10.0, 20.0, 100, 50},
		{-10.0, 20.0, 30.0, 5.0, 100, 50},
		{-10.0, 5.0, -10.0, 20.0, 100, 50},
	}

	for i, c := range degenerate {

		_, err := TransformFromBounds(c.minx, c.miny, c.maxx, c.maxy, c.w, c.h)

		if err == nil {
			t.Fatalf("Expected case %d to fail", i)
		}

		var db *DegenerateBoundsError

		if !errors.As(err, &db) {
			t.Errorf("Expected a DegenerateBoundsError for case %d, got %T", i, err)
		}
	}
}

func testImage(w int, h int) *image.NRGBA {

	im := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7),
				G: uint8(y * 13),
				B: uint8(x + y),
				A: uint8(255 - x),
			})
		}
	}

	return im
}

func TestEncodeDecodeRoundTrip(t *testing.T) {

	tr, err := TransformFromBounds(-10.0, 5.0, 30.0, 20.0, 16, 8)

	if err != nil {
		t.Fatalf("Failed to build transform, %v", err)
	}

	ds := NewDataset(testImage(16, 8), tr, CRSGeographic)

	var buf bytes.Buffer

	err = Encode(&buf, ds)

	if err != nil {
		t.Fatalf("Failed to encode dataset, %v", err)
	}

	ds2, err := Decode(bytes.NewReader(buf.Bytes()))

	if err != nil {
		t.Fatalf("Failed to decode dataset, %v", err)
	}

	if ds2.Width() != 16 || ds2.Height() != 8 {
		t.Fatalf("Decoded dimensions %dx%d, expected 16x8", ds2.Width(), ds2.Height())
	}

	if ds2.CRS != CRSGeographic {
		t.Errorf("Decoded CRS %s, expected %s", ds2.CRS, CRSGeographic)
	}

	for i := range ds.Transform {
		if !nearlyEqual(ds.Transform[i], ds2.Transform[i]) {
			t.Errorf("Transform element %d is %f, expected %f", i, ds2.Transform[i], ds.Transform[i])
		}
	}

	if !bytes.Equal(ds.Image.Pix, ds2.Image.Pix) {
		t.Errorf("Decoded pixels differ from source pixels")
	}
}

func TestEncodeGeocentricTags(t *testing.T) {

	tr := Transform{-2200000.0, 100.0, 0.0, 4500000.0, 0.0, -100.0}

	ds := &Dataset{
		Image:     testImage(4, 4),
		Transform: tr,
		CRS:       CRSGeocentric,
	}

	var buf bytes.Buffer

	err := Encode(&buf, ds)

	if err != nil {
		t.Fatalf("Failed to encode dataset, %v", err)
	}

	ds2, err := Decode(bytes.NewReader(buf.Bytes()))

	if err != nil {
		t.Fatalf("Failed to decode dataset, %v", err)
	}

	if ds2.CRS != CRSGeocentric {
		t.Errorf("Decoded CRS %s, expected %s", ds2.CRS, CRSGeocentric)
	}
}

func TestEncodeUnknownCRS(t *testing.T) {

	ds := &Dataset{
		Image:     testImage(2, 2),
		Transform: Transform{0, 1, 0, 0, 0, -1},
		CRS:       CRS("EPSG:3857"),
	}

	var buf bytes.Buffer

	err := Encode(&buf, ds)

	var we *WriteError

	if !errors.As(err, &we) {
		t.Fatalf("Expected a WriteError, got %v", err)
	}
}

func TestDecodeNotATIFF(t *testing.T) {

	_, err := Decode(bytes.NewReader([]byte("PNG? no.")))

	if err == nil {
		t.Fatalf("Expected decode to fail")
	}
}

func TestDatasetExtent(t *testing.T) {

	tr, err := TransformFromBounds(-10.0, 5.0, 30.0, 20.0, 100, 50)

	if err != nil {
		t.Fatalf("Failed to build transform, %v", err)
	}

	ds := NewDataset(testImage(100, 50), tr, CRSGeographic)

	minx, miny, maxx, maxy := ds.Extent()

	if !nearlyEqual(minx, -10.0) || !nearlyEqual(miny, 5.0) || !nearlyEqual(maxx, 30.0) || !nearlyEqual(maxy, 20.0) {
		t.Errorf("Unexpected extent (%f,%f,%f,%f)", minx, miny, maxx, maxy)
	}
}

func nearlyEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
