package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/sfomuseum/go-geotiff-convert/operations/convert"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

func main() {

	source_uri := flag.String("source-uri", "", "A valid gocloud.dev/blob URI where PNG + MAP pairs are read from.")
	target_uri := flag.String("target-uri", "", "An optional gocloud.dev/blob URI where the finished archive is published.")
	output_type := flag.String("output-type", "lonlat", "The reference system of the output rasters. Valid options are: lonlat, geocentric.")
	archive_name := flag.String("archive-name", convert.DefaultArchiveName, "The name the archive is published under.")
	acl := flag.String("acl", "", "An optional S3 ACL to assign the published archive.")

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

	var target *blob.Bucket

	if *target_uri != "" {

		target, err = blob.OpenBucket(ctx, *target_uri)

		if err != nil {
			log.Fatalf("Failed to open target bucket, %v", err)
		}

		defer target.Close()
	}

	cb := func(rsp *convert.ConvertResponse) error {

		enc, err := json.Marshal(rsp)

		if err != nil {
			return err
		}

		fmt.Println(string(enc))
		return nil
	}

	opts := &convert.ConvertBucketOptions{
		Source:      source,
		Target:      target,
		OutputType:  convert.OutputType(*output_type),
		ArchiveName: *archive_name,
		ACL:         *acl,
		Callback:    cb,
	}

	summary, _, err := convert.ConvertBucket(ctx, opts)

	if err != nil {
		log.Fatalf("Failed to convert bucket, %v", err)
	}

	enc, err := json.Marshal(summary)

	if err != nil {
		log.Fatalf("Failed to marshal summary, %v", err)
	}

	fmt.Println(string(enc))
}
