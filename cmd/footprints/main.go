package main

import (
	"bytes"
	"context"
	"flag"
	"log"

	"github.com/sfomuseum/go-geotiff-convert/calibration"
	"github.com/sfomuseum/go-geotiff-convert/common"
	"github.com/sfomuseum/go-geotiff-convert/footprint"
	"github.com/sfomuseum/go-geotiff-convert/operations/gather"
	"github.com/whosonfirst/go-ioutil"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

func main() {

	source_uri := flag.String("source-uri", "", "A valid gocloud.dev/blob URI where PNG + MAP pairs are read from.")
	writer_uri := flag.String("writer-uri", "stdout://", "A valid whosonfirst/go-writer URI where the footprint document is published.")
	target := flag.String("target", "footprints.geojson", "The relative path the footprint document is published to.")

	flag.Parse()

	ctx := context.Background()

	if *source_uri == "" {
		log.Fatal("Missing -source-uri")
	}

	source, err := blob.OpenBucket(ctx, *source_uri)

	if err != nil {
		log.Fatalf("Failed to open source bucket, %v", err)
	}

	defer source.Close()

	pairs, err := gather.MatchedPairs(ctx, source)

	if err != nil {
		log.Fatalf("Failed to gather matched pairs, %v", err)
	}

	footprints := make(map[string]*calibration.Bounds)

	for _, pair := range pairs {

		body, err := source.ReadAll(ctx, pair.CalibrationPath)

		if err != nil {
			log.Fatalf("Failed to read %s, %v", pair.CalibrationPath, err)
		}

		b, err := calibration.Parse(body)

		if err != nil {
			log.Printf("Failed to parse %s, %v", pair.CalibrationPath, err)
			continue
		}

		footprints[pair.Key] = b
	}

	fc, err := footprint.FeatureCollection(footprints)

	if err != nil {
		log.Fatalf("Failed to build feature collection, %v", err)
	}

	wr, err := common.NewWriter(ctx, *writer_uri)

	if err != nil {
		log.Fatalf("Failed to create writer, %v", err)
	}

	fh, err := ioutil.NewReadSeekCloser(bytes.NewReader(fc))

	if err != nil {
		log.Fatalf("Failed to create ReadSeekCloser, %v", err)
	}

	_, err = wr.Write(ctx, *target, fh)

	if err != nil {
		log.Fatalf("Failed to publish %s, %v", *target, err)
	}

	err = wr.Close(ctx)

	if err != nil {
		log.Fatalf("Failed to close writer, %v", err)
	}
}
