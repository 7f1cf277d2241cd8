package lookup

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sfomuseum/go-geotiff-convert/calibration"
)

// AppendLookupFunc appends zero or more lookup entries derived from a single
// source item (its path and its contents) to a sync.Map.
type AppendLookupFunc func(context.Context, *sync.Map, string, io.ReadCloser) error

// CalibrationResult is the lookup value stored for a calibration file:
// either the parsed bounds or the parse failure. Failures are recorded
// rather than aborting the lookup so that a batch can report them per key.
type CalibrationResult struct {
	Bounds *calibration.Bounds
	Err    error
}

// CalibrationAppendLookupFunc parses .map calibration files in to
// CalibrationResult entries keyed by path with the extension stripped, the
// same key matched pairs use. Files with other extensions are ignored.
func CalibrationAppendLookupFunc(ctx context.Context, lu *sync.Map, path string, fh io.ReadCloser) error {

	ext := filepath.Ext(path)

	if strings.ToLower(ext) != ".map" {
		return nil
	}

	key := strings.TrimSuffix(path, ext)

	body, err := io.ReadAll(fh)

	if err != nil {
		return err
	}

	b, err := calibration.Parse(body)

	rsp := &CalibrationResult{
		Bounds: b,
		Err:    err,
	}

	lu.Store(key, rsp)
	return nil
}
