package reproject

import (
	"fmt"
	"math"

	"github.com/wroge/wgs84"
)

// WGS 84 ellipsoid.
const (
	semiMajor    = 6378137.0
	flattening   = 1.0 / 298.257223563
	eccentricity = flattening * (2.0 - flattening) // first eccentricity squared
)

// A Transformer maps world coordinates between a source and a destination
// reference system. Forward maps source to destination, Inverse maps
// destination back to source.
type Transformer interface {
	Forward(x float64, y float64) (float64, float64, error)
	Inverse(x float64, y float64) (float64, float64, error)
}

// geocentricXY maps geographic longitude/latitude (degrees, WGS 84, h=0) to
// the X/Y plane of the geocentric EPSG:4978 frame. Dropping Z makes the
// inverse ambiguous between hemispheres, so candidate latitudes are
// resolved against the latitude range of the source raster. Extents
// spanning the equator resolve ties toward the extent's mid-latitude.
type geocentricXY struct {
	forward wgs84.Func
	min_lat float64
	max_lat float64
}

func newGeocentricXY(min_lat float64, max_lat float64) *geocentricXY {

	return &geocentricXY{
		forward: wgs84.LonLat().To(wgs84.XYZ()),
		min_lat: min_lat,
		max_lat: max_lat,
	}
}

func (t *geocentricXY) Forward(lon float64, lat float64) (float64, float64, error) {

	if lat < -90.0 || lat > 90.0 {
		return 0, 0, fmt.Errorf("latitude %f is out of range", lat)
	}

	x, y, _ := t.forward(lon, lat, 0.0)

	return x, y, nil
}

func (t *geocentricXY) Inverse(x float64, y float64) (float64, float64, error) {

	p := math.Hypot(x, y)

	if p > semiMajor+0.5 {
		return 0, 0, fmt.Errorf("point (%f,%f) is outside the ellipsoid", x, y)
	}

	lon := math.Atan2(y, x) * 180.0 / math.Pi
	lat := latitudeForRadius(p)

	// Pick the hemisphere candidate consistent with the source extent.

	mid := (t.min_lat + t.max_lat) / 2.0

	candidates := []float64{lat, -lat}

	if mid < 0.0 {
		candidates = []float64{-lat, lat}
	}

	for _, c := range candidates {

		if c >= t.min_lat-1e-9 && c <= t.max_lat+1e-9 {
			return lon, c, nil
		}
	}

	return lon, candidates[0], nil
}

// latitudeForRadius solves N(lat) * cos(lat) = p for the absolute latitude
// (degrees) of an ellipsoid surface point whose distance from the polar
// axis is p. The left-hand side decreases monotonically from the equatorial
// radius to zero, so a bisection converges unconditionally.
func latitudeForRadius(p float64) float64 {

	if p >= semiMajor {
		return 0.0
	}

	lo := 0.0
	hi := math.Pi / 2.0

	for i := 0; i < 60; i++ {

		mid := (lo + hi) / 2.0

		sin_mid := math.Sin(mid)
		n := semiMajor / math.Sqrt(1.0-eccentricity*sin_mid*sin_mid)

		if n*math.Cos(mid) > p {
			lo = mid
		} else {
			hi = mid
		}
	}

	return (lo + hi) / 2.0 * 180.0 / math.Pi
}
