package gather

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sfomuseum/go-geotiff-convert/common"
	"gocloud.dev/blob"
)

// MatchedPair is an image file and a calibration file sharing a base
// filename (the pair's key). Matching is case-sensitive on the base name
// and case-insensitive on the extension.
type MatchedPair struct {
	Key             string
	ImagePath       string
	CalibrationPath string
	Fingerprint     string
}

// GatherPairsCallbackFunc is invoked once per matched pair.
type GatherPairsCallbackFunc func(*MatchedPair) error

type GatherPairsOptions struct {
	Callback GatherPairsCallbackFunc
	// FingerprintImages controls whether each pair's image is SHA-1
	// fingerprinted as it is gathered.
	FingerprintImages bool
}

// GatherPairs crawls bucket and dispatches every matched PNG + .map pair to
// cb, in the sorted order of matched keys.
func GatherPairs(ctx context.Context, bucket *blob.Bucket, cb GatherPairsCallbackFunc) error {

	opts := &GatherPairsOptions{
		Callback:          cb,
		FingerprintImages: true,
	}

	return GatherPairsWithOptions(ctx, bucket, opts)
}

func GatherPairsWithOptions(ctx context.Context, bucket *blob.Bucket, opts *GatherPairsOptions) error {

	images := make(map[string]string)
	calibrations := make(map[string]string)

	err := crawlFiles(ctx, bucket, func(path string) error {

		ext := filepath.Ext(path)
		key := strings.TrimSuffix(path, ext)

		switch strings.ToLower(ext) {
		case ".png":
			images[key] = path
		case ".map":
			calibrations[key] = path
		default:
			// pass
		}

		return nil
	})

	if err != nil {
		return err
	}

	matched := make([]string, 0)

	for key := range images {

		_, ok := calibrations[key]

		if ok {
			matched = append(matched, key)
		}
	}

	sort.Strings(matched)

	for _, key := range matched {

		select {
		case <-ctx.Done():
			return nil
		default:
			// pass
		}

		pair := &MatchedPair{
			Key:             key,
			ImagePath:       images[key],
			CalibrationPath: calibrations[key],
		}

		if opts.FingerprintImages {

			fp, err := common.FingerprintFile(ctx, bucket, pair.ImagePath)

			if err != nil {
				return err
			}

			pair.Fingerprint = fp
		}

		err := opts.Callback(pair)

		if err != nil {
			return err
		}
	}

	return nil
}

// MatchedPairs collects every matched pair in bucket, in sorted key order.
func MatchedPairs(ctx context.Context, bucket *blob.Bucket) ([]*MatchedPair, error) {

	pairs := make([]*MatchedPair, 0)

	cb := func(pair *MatchedPair) error {
		pairs = append(pairs, pair)
		return nil
	}

	opts := &GatherPairsOptions{
		Callback:          cb,
		FingerprintImages: false,
	}

	err := GatherPairsWithOptions(ctx, bucket, opts)

	if err != nil {
		return nil, err
	}

	return pairs, nil
}

// Iterate through all the items stored in a blob.Bucket instance,
// recursively, and dispatch each file's path to a user-defined callback.
func crawlFiles(ctx context.Context, bucket *blob.Bucket, cb func(string) error) error {

	var list func(context.Context, *blob.Bucket, string) error

	list = func(ctx context.Context, b *blob.Bucket, prefix string) error {

		iter := b.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		for {

			select {
			case <-ctx.Done():
				return nil
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				err := list(ctx, b, obj.Key)

				if err != nil {
					return err
				}

				continue
			}

			err = cb(obj.Key)

			if err != nil {
				return err
			}
		}

		return nil
	}

	return list(ctx, bucket, "")
}
