package lookup

import (
	"context"
	"testing"

	"github.com/sfomuseum/go-geotiff-convert/calibration"
	"gocloud.dev/blob/memblob"
)

const validCalibration = "MMPLL, 1, 1, -10.0, 20.0\nMMPLL, 2, 1, 30.0, 5.0\nMMPLL, 3, 1, 5.0, 5.0\n"

func TestCalibrationLookup(t *testing.T) {

	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	seed := map[string][]byte{
		"a.map":   []byte(validCalibration),
		"b.map":   []byte("MMPLL, 1, 1, -10.0, 20.0\n"),
		"c.png":   []byte("not a calibration file"),
		"d.crust": []byte("ignore me"),
	}

	for key, body := range seed {

		err := bucket.WriteAll(ctx, key, body, nil)

		if err != nil {
			t.Fatalf("Failed to seed %s, %v", key, err)
		}
	}

	l, err := NewBlobLookerUpperWithBucket(ctx, bucket)

	if err != nil {
		t.Fatalf("Failed to create looker-upper, %v", err)
	}

	lu, err := NewLookupMap(ctx, []LookerUpper{l}, []AppendLookupFunc{CalibrationAppendLookupFunc})

	if err != nil {
		t.Fatalf("Failed to build lookup map, %v", err)
	}

	v, ok := lu.Load("a")

	if !ok {
		t.Fatalf("Missing lookup entry for 'a'")
	}

	rsp := v.(*CalibrationResult)

	if rsp.Err != nil {
		t.Fatalf("Expected 'a' to parse, %v", rsp.Err)
	}

	expected := &calibration.Bounds{MinX: -10.0, MinY: 5.0, MaxX: 30.0, MaxY: 20.0}

	if *rsp.Bounds != *expected {
		t.Errorf("Unexpected bounds for 'a', %+v", rsp.Bounds)
	}

	v, ok = lu.Load("b")

	if !ok {
		t.Fatalf("Missing lookup entry for 'b'")
	}

	rsp = v.(*CalibrationResult)

	if rsp.Err == nil {
		t.Errorf("Expected 'b' to record a parse failure")
	}

	for _, key := range []string{"c", "d"} {

		_, ok = lu.Load(key)

		if ok {
			t.Errorf("Unexpected lookup entry for '%s'", key)
		}
	}
}
