package footprint

// Derive plain GeoJSON footprint documents from calibration bounds. These
// are preview artifacts: one Polygon feature per matched key, tracing the
// world-space rectangle its raster covers.

import (
	"fmt"
	"sort"

	"github.com/sfomuseum/go-geotiff-convert/calibration"
	"github.com/tidwall/sjson"
)

// FeatureCollection returns a GeoJSON FeatureCollection with one Polygon
// feature per key in footprints, in sorted key order.
func FeatureCollection(footprints map[string]*calibration.Bounds) ([]byte, error) {

	keys := make([]string, 0, len(footprints))

	for key := range footprints {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	body := []byte(`{"type":"FeatureCollection","features":[]}`)

	for _, key := range keys {

		f, err := Feature(key, footprints[key])

		if err != nil {
			return nil, err
		}

		body, err = sjson.SetRawBytes(body, "features.-1", f)

		if err != nil {
			return nil, fmt.Errorf("Failed to append feature for '%s', %w", key, err)
		}
	}

	return body, nil
}

// Feature returns a GeoJSON Polygon feature tracing b, named after key.
func Feature(key string, b *calibration.Bounds) ([]byte, error) {

	ring := [][]float64{
		{b.MinX, b.MinY},
		{b.MaxX, b.MinY},
		{b.MaxX, b.MaxY},
		{b.MinX, b.MaxY},
		{b.MinX, b.MinY},
	}

	body := []byte(`{"type":"Feature"}`)

	var err error

	body, err = sjson.SetBytes(body, "properties.name", key)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign name for '%s', %w", key, err)
	}

	body, err = sjson.SetBytes(body, "geometry.type", "Polygon")

	if err != nil {
		return nil, fmt.Errorf("Failed to assign geometry type for '%s', %w", key, err)
	}

	body, err = sjson.SetBytes(body, "geometry.coordinates", [][][]float64{ring})

	if err != nil {
		return nil, fmt.Errorf("Failed to assign coordinates for '%s', %w", key, err)
	}

	return body, nil
}
