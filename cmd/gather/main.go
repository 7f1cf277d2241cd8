package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/sfomuseum/go-geotiff-convert/calibration"
	"github.com/sfomuseum/go-geotiff-convert/operations/gather"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

type gatherResponse struct {
	*gather.MatchedPair
	Bounds *calibration.Bounds `json:"bounds,omitempty"`
}

func main() {

	fingerprint := flag.Bool("fingerprint", true, "Fingerprint (SHA-1) each pair's image as it is gathered.")

	flag.Parse()

	ctx := context.Background()

	for _, uri := range flag.Args() {

		log.Println(uri)

		bucket, err := blob.OpenBucket(ctx, uri)

		if err != nil {
			log.Fatal(err)
		}

		cb := func(pair *gather.MatchedPair) error {

			rsp := &gatherResponse{
				MatchedPair: pair,
			}

			body, err := bucket.ReadAll(ctx, pair.CalibrationPath)

			if err != nil {
				return err
			}

			b, err := calibration.Parse(body)

			if err == nil {
				rsp.Bounds = b
			} else {
				log.Printf("Failed to parse %s, %v", pair.CalibrationPath, err)
			}

			enc, err := json.Marshal(rsp)

			if err != nil {
				return err
			}

			fmt.Println(string(enc))
			return nil
		}

		opts := &gather.GatherPairsOptions{
			Callback:          cb,
			FingerprintImages: *fingerprint,
		}

		err = gather.GatherPairsWithOptions(ctx, bucket, opts)

		if err != nil {
			log.Fatal(err)
		}

		bucket.Close()
	}
}
