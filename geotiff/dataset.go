package geotiff

import (
	"fmt"
	"image"

	"github.com/aaronland/go-image-tools/imaging"
)

// CRS identifies one of the two coordinate reference systems a Dataset can
// be tagged with.
type CRS string

const (
	// CRSGeographic is WGS 84 longitude/latitude (EPSG:4326).
	CRSGeographic CRS = "EPSG:4326"
	// CRSGeocentric is WGS 84 earth-centered, earth-fixed XYZ (EPSG:4978).
	CRSGeocentric CRS = "EPSG:4978"
)

// EPSGCode returns the numeric EPSG code for a CRS, or 0 for a CRS this
// package does not know about.
func (crs CRS) EPSGCode() int {

	switch crs {
	case CRSGeographic:
		return 4326
	case CRSGeocentric:
		return 4978
	default:
		return 0
	}
}

// Dataset is a georeferenced 4-band (RGBA, 8 bits per band) raster: pixels,
// the pixel-to-world transform and the reference system the transform's
// world coordinates are expressed in.
type Dataset struct {
	Image     *image.NRGBA
	Transform Transform
	CRS       CRS
}

// NewDataset copies im in to a 4-band dataset georeferenced by t. Images
// without an alpha channel are expanded with an opaque one.
func NewDataset(im image.Image, t Transform, crs CRS) *Dataset {

	return &Dataset{
		Image:     imaging.Clone(im),
		Transform: t,
		CRS:       crs,
	}
}

// Width returns the pixel width of the dataset.
func (ds *Dataset) Width() int {
	return ds.Image.Bounds().Dx()
}

// Height returns the pixel height of the dataset.
func (ds *Dataset) Height() int {
	return ds.Image.Bounds().Dy()
}

// Extent returns the world-space bounding box (minx, miny, maxx, maxy) of
// the dataset.
func (ds *Dataset) Extent() (float64, float64, float64, float64) {

	x0, y0 := ds.Transform.Apply(0, 0)
	x1, y1 := ds.Transform.Apply(float64(ds.Width()), float64(ds.Height()))

	minx := min(x0, x1)
	maxx := max(x0, x1)
	miny := min(y0, y1)
	maxy := max(y0, y1)

	return minx, miny, maxx, maxy
}

func (ds *Dataset) String() string {
	return fmt.Sprintf("%dx%d raster (%s)", ds.Width(), ds.Height(), ds.CRS)
}
