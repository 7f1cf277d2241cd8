package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aaronland/go-image-tools/util"
	"github.com/aaronland/go-string/random"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sfomuseum/go-geotiff-convert/calibration"
	"github.com/sfomuseum/go-geotiff-convert/geotiff"
	"github.com/sfomuseum/go-geotiff-convert/lookup"
	"github.com/sfomuseum/go-geotiff-convert/operations/gather"
	"github.com/sfomuseum/go-geotiff-convert/reproject"
	"gocloud.dev/blob"
)

// OutputType selects the reference system of the GeoTIFFs a batch produces.
type OutputType string

const (
	// OutputGeographic writes longitude/latitude (EPSG:4326) GeoTIFFs.
	OutputGeographic OutputType = "lonlat"
	// OutputGeocentric writes GeoTIFFs reprojected to earth-centered XYZ
	// (EPSG:4978).
	OutputGeocentric OutputType = "geocentric"
)

// DefaultArchiveName is the name the output archive is published under when
// none is configured.
const DefaultArchiveName = "converted_geotiffs.zip"

// ImageDecodeError is returned when a pair's image bytes can not be decoded.
type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("Failed to decode image %s, %v", e.Path, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

// ConvertResponse is the per-pair outcome dispatched to a batch's callback.
type ConvertResponse struct {
	Key         string `json:"key"`
	ArchivePath string `json:"archive_path,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ConvertCallbackFunc is invoked once per pair, after that pair has either
// been archived or recorded as a failure.
type ConvertCallbackFunc func(*ConvertResponse) error

// Failure records one pair that could not be converted.
type Failure struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Summary aggregates a single batch run. It is built fresh per run and
// never merged across runs.
type Summary struct {
	MatchedPairs int       `json:"matched_pairs"`
	Succeeded    []string  `json:"succeeded"`
	Failed       []Failure `json:"failed"`
	TotalBytes   int64     `json:"total_bytes"`
}

type ConvertBucketOptions struct {
	// Source is the bucket holding PNG + .map uploads.
	Source *blob.Bucket
	// Target is an optional bucket the finished archive is published to.
	Target *blob.Bucket
	// OutputType selects geographic passthrough or geocentric reprojection.
	OutputType OutputType
	// ArchiveName is the name the archive is published under. A ".zip"
	// extension is appended if missing.
	ArchiveName string
	// ACL is an optional S3 ACL (for example "public-read") applied when
	// Target is an S3 bucket.
	ACL string
	// Callback is an optional per-pair hook.
	Callback ConvertCallbackFunc
}

// ConvertBucket converts every matched pair in opts.Source in to a
// geo-tagged raster, sequentially and in sorted key order, and packs the
// results in to a single deflate-compressed ZIP archive. Per-pair failures
// are recorded in the summary without aborting the batch. The archive bytes
// are returned and, when opts.Target is set, also published there.
func ConvertBucket(ctx context.Context, opts *ConvertBucketOptions) (*Summary, []byte, error) {

	summary := &Summary{
		Succeeded: make([]string, 0),
		Failed:    make([]Failure, 0),
	}

	pairs, err := gather.MatchedPairs(ctx, opts.Source)

	if err != nil {
		return nil, nil, fmt.Errorf("Failed to gather matched pairs, %w", err)
	}

	summary.MatchedPairs = len(pairs)

	if len(pairs) == 0 {
		slog.Warn("No matching PNG + MAP pairs found")
		return summary, nil, nil
	}

	bounds_cache, err := boundsCache(ctx, opts.Source)

	if err != nil {
		return nil, nil, fmt.Errorf("Failed to build bounds cache, %w", err)
	}

	// Calibration failures are detected eagerly, before any conversion
	// starts, and exclude their key from the batch.

	eligible := make([]*gather.MatchedPair, 0, len(pairs))

	for _, pair := range pairs {

		rsp, ok := bounds_cache[pair.Key]

		var parse_err error

		switch {
		case !ok:
			parse_err = fmt.Errorf("Missing calibration for '%s'", pair.Key)
		case rsp.Err != nil:
			parse_err = rsp.Err
		}

		if parse_err == nil {
			eligible = append(eligible, pair)
			continue
		}

		err := recordFailure(summary, opts.Callback, pair.Key, parse_err)

		if err != nil {
			return nil, nil, err
		}
	}

	var buf bytes.Buffer

	zf := zip.NewWriter(&buf)

	for _, pair := range eligible {

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
			// pass
		}

		slog.Debug("Convert pair", "key", pair.Key)

		body, err := convertPair(ctx, opts, pair, bounds_cache[pair.Key].Bounds)

		if err != nil {

			cb_err := recordFailure(summary, opts.Callback, pair.Key, err)

			if cb_err != nil {
				return nil, nil, cb_err
			}

			continue
		}

		archive_path := fmt.Sprintf("%s_geotiff.tif", pair.Key)

		wr, err := zf.Create(archive_path)

		if err != nil {
			return nil, nil, fmt.Errorf("Failed to create archive entry for '%s', %w", pair.Key, err)
		}

		_, err = wr.Write(body)

		if err != nil {
			return nil, nil, fmt.Errorf("Failed to write archive entry for '%s', %w", pair.Key, err)
		}

		summary.Succeeded = append(summary.Succeeded, pair.Key)
		summary.TotalBytes += int64(len(body))

		if opts.Callback != nil {

			rsp := &ConvertResponse{
				Key:         pair.Key,
				ArchivePath: archive_path,
				Size:        int64(len(body)),
			}

			err := opts.Callback(rsp)

			if err != nil {
				return nil, nil, err
			}
		}
	}

	err = zf.Close()

	if err != nil {
		return nil, nil, fmt.Errorf("Failed to close archive, %w", err)
	}

	if opts.Target != nil {

		err := publishArchive(ctx, opts, buf.Bytes())

		if err != nil {
			return nil, nil, err
		}
	}

	return summary, buf.Bytes(), nil
}

// convertPair produces the final GeoTIFF bytes for a single pair. Raster
// artifacts are staged in scoped temporary files which are removed before
// the function returns, on every path.
func convertPair(ctx context.Context, opts *ConvertBucketOptions, pair *gather.MatchedPair, b *calibration.Bounds) ([]byte, error) {

	fh, err := opts.Source.NewReader(ctx, pair.ImagePath, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to open %s for reading, %w", pair.ImagePath, err)
	}

	im, _, err := util.DecodeImageFromReader(fh)

	fh.Close()

	if err != nil {
		return nil, &ImageDecodeError{Path: pair.ImagePath, Err: err}
	}

	w := im.Bounds().Dx()
	h := im.Bounds().Dy()

	t, err := geotiff.TransformFromBounds(b.MinX, b.MinY, b.MaxX, b.MaxY, w, h)

	if err != nil {
		return nil, err
	}

	ds := geotiff.NewDataset(im, t, geotiff.CRSGeographic)

	base_path, err := stageDataset(ds, pair.Key)

	if base_path != "" {
		defer os.Remove(base_path)
	}

	if err != nil {
		return nil, err
	}

	if opts.OutputType != OutputGeocentric {
		return os.ReadFile(base_path)
	}

	// Reprojection consumes the written raster read back from disk, not the
	// in-memory dataset, so the bytes being warped are the bytes that were
	// actually serialized.

	base_fh, err := os.Open(base_path)

	if err != nil {
		return nil, fmt.Errorf("Failed to open %s for reading, %w", base_path, err)
	}

	src_ds, err := geotiff.Decode(base_fh)

	base_fh.Close()

	if err != nil {
		return nil, err
	}

	warped, err := reproject.Reproject(ctx, src_ds, geotiff.CRSGeocentric)

	if err != nil {
		return nil, err
	}

	warped_path, err := stageDataset(warped, pair.Key)

	if warped_path != "" {
		defer os.Remove(warped_path)
	}

	if err != nil {
		return nil, err
	}

	return os.ReadFile(warped_path)
}

// stageDataset serializes ds to a temporary file whose name is salted with
// a random secret, returning the file's path. The path is returned even on
// failure so callers can schedule cleanup unconditionally.
func stageDataset(ds *geotiff.Dataset, key string) (string, error) {

	rand_opts := random.DefaultOptions()
	rand_opts.AlphaNumeric = true

	secret, err := random.String(rand_opts)

	if err != nil {
		return "", fmt.Errorf("Failed to generate secret, %w", err)
	}

	fname := fmt.Sprintf("%s_%s.tif", filepath.Base(key), secret)
	path := filepath.Join(os.TempDir(), fname)

	fh, err := os.Create(path)

	if err != nil {
		return path, &geotiff.WriteError{Err: err}
	}

	err = geotiff.Encode(fh, ds)

	if err != nil {
		fh.Close()
		return path, err
	}

	err = fh.Close()

	if err != nil {
		return path, &geotiff.WriteError{Err: err}
	}

	return path, nil
}

// boundsCache parses every .map file in bucket up front, keyed by the same
// key matched pairs use.
func boundsCache(ctx context.Context, bucket *blob.Bucket) (map[string]*lookup.CalibrationResult, error) {

	l, err := lookup.NewBlobLookerUpperWithBucket(ctx, bucket)

	if err != nil {
		return nil, err
	}

	looker_uppers := []lookup.LookerUpper{l}
	append_funcs := []lookup.AppendLookupFunc{lookup.CalibrationAppendLookupFunc}

	lu, err := lookup.NewLookupMap(ctx, looker_uppers, append_funcs)

	if err != nil {
		return nil, err
	}

	cache := make(map[string]*lookup.CalibrationResult)

	lu.Range(func(k interface{}, v interface{}) bool {
		cache[k.(string)] = v.(*lookup.CalibrationResult)
		return true
	})

	return cache, nil
}

func recordFailure(summary *Summary, cb ConvertCallbackFunc, key string, conv_err error) error {

	slog.Warn("Failed to convert pair", "key", key, "error", conv_err)

	summary.Failed = append(summary.Failed, Failure{
		Key:     key,
		Message: conv_err.Error(),
	})

	if cb == nil {
		return nil
	}

	rsp := &ConvertResponse{
		Key:   key,
		Error: conv_err.Error(),
	}

	return cb(rsp)
}

func publishArchive(ctx context.Context, opts *ConvertBucketOptions, body []byte) error {

	archive_name := opts.ArchiveName

	if archive_name == "" {
		archive_name = DefaultArchiveName
	}

	if !strings.HasSuffix(archive_name, ".zip") {
		archive_name = archive_name + ".zip"
	}

	var wr_opts *blob.WriterOptions

	if opts.ACL != "" {

		before := func(asFunc func(interface{}) bool) error {

			s3_req := &s3manager.UploadInput{}
			ok := asFunc(&s3_req)

			if ok {
				s3_req.ACL = aws.String(opts.ACL)
			}

			return nil
		}

		wr_opts = &blob.WriterOptions{
			BeforeWrite: before,
		}
	}

	wr, err := opts.Target.NewWriter(ctx, archive_name, wr_opts)

	if err != nil {
		return fmt.Errorf("Failed to open %s for writing, %w", archive_name, err)
	}

	_, err = wr.Write(body)

	if err != nil {
		opts.Target.Delete(ctx, archive_name)
		return fmt.Errorf("Failed to write %s, %w", archive_name, err)
	}

	err = wr.Close()

	if err != nil {
		return fmt.Errorf("Failed to close %s, %w", archive_name, err)
	}

	return nil
}
