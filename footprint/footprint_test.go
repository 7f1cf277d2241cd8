package footprint

import (
	"testing"

	"github.com/sfomuseum/go-geotiff-convert/calibration"
	"github.com/tidwall/gjson"
)

func TestFeatureCollection(t *testing.T) {

	footprints := map[string]*calibration.Bounds{
		"zulu":  {MinX: 0.0, MinY: 0.0, MaxX: 1.0, MaxY: 1.0},
		"alpha": {MinX: -10.0, MinY: 5.0, MaxX: 30.0, MaxY: 20.0},
	}

	body, err := FeatureCollection(footprints)

	if err != nil {
		t.Fatalf("Failed to build feature collection, %v", err)
	}

	if gjson.GetBytes(body, "type").String() != "FeatureCollection" {
		t.Fatalf("Missing FeatureCollection type")
	}

	features := gjson.GetBytes(body, "features")

	if int(features.Get("#").Int()) != 2 {
		t.Fatalf("Expected 2 features, got %s", features.Get("#").String())
	}

	first := features.Get("0")

	if first.Get("properties.name").String() != "alpha" {
		t.Errorf("Expected first feature to be 'alpha', got '%s'", first.Get("properties.name").String())
	}

	if first.Get("geometry.type").String() != "Polygon" {
		t.Errorf("Unexpected geometry type '%s'", first.Get("geometry.type").String())
	}

	ring := first.Get("geometry.coordinates.0")

	if int(ring.Get("#").Int()) != 5 {
		t.Fatalf("Expected a closed 5-point ring, got %s points", ring.Get("#").String())
	}

	if ring.Get("0.0").Float() != -10.0 || ring.Get("0.1").Float() != 5.0 {
		t.Errorf("Ring opens at (%f,%f), expected (-10,5)", ring.Get("0.0").Float(), ring.Get("0.1").Float())
	}

	first_pt := ring.Get("0")
	last_pt := ring.Get("4")

	if first_pt.String() != last_pt.String() {
		t.Errorf("Ring is not closed, %s != %s", first_pt.String(), last_pt.String())
	}
}

func TestFeatureCollectionEmpty(t *testing.T) {

	body, err := FeatureCollection(nil)

	if err != nil {
		t.Fatalf("Failed to build feature collection, %v", err)
	}

	features := gjson.GetBytes(body, "features")

	if !features.IsArray() {
		t.Fatalf("Expected a features array")
	}

	if int(features.Get("#").Int()) != 0 {
		t.Errorf("Expected 0 features, got %s", features.Get("#").String())
	}
}
