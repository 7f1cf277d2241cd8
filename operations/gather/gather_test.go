package gather

import (
	"context"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestGatherPairs(t *testing.T) {

	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	seed := map[string][]byte{
		"alpha.png":  []byte("png bytes"),
		"alpha.map":  []byte("map bytes"),
		"beta.png":   []byte("png bytes"),
		"gamma.map":  []byte("map bytes"),
		"Delta.PNG":  []byte("png bytes"),
		"Delta.map":  []byte("map bytes"),
		"delta.png":  []byte("png bytes"),
		"notes.txt":  []byte("ignore me"),
		"sub/e.png":  []byte("png bytes"),
		"sub/e.map":  []byte("map bytes"),
	}

	for key, body := range seed {

		err := bucket.WriteAll(ctx, key, body, nil)

		if err != nil {
			t.Fatalf("Failed to seed %s, %v", key, err)
		}
	}

	pairs, err := MatchedPairs(ctx, bucket)

	if err != nil {
		t.Fatalf("Failed to gather pairs, %v", err)
	}

	expected := []string{"Delta", "alpha", "sub/e"}

	if len(pairs) != len(expected) {
		t.Fatalf("Gathered %d pairs, expected %d", len(pairs), len(expected))
	}

	for i, key := range expected {

		if pairs[i].Key != key {
			t.Errorf("Pair %d has key '%s', expected '%s'", i, pairs[i].Key, key)
		}
	}
}

func TestGatherPairsEmpty(t *testing.T) {

	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	pairs, err := MatchedPairs(ctx, bucket)

	if err != nil {
		t.Fatalf("Failed to gather pairs, %v", err)
	}

	if len(pairs) != 0 {
		t.Fatalf("Gathered %d pairs from an empty bucket", len(pairs))
	}
}

func TestGatherPairsFingerprint(t *testing.T) {

	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	seed := map[string][]byte{
		"alpha.png": []byte("png bytes"),
		"alpha.map": []byte("map bytes"),
	}

	for key, body := range seed {

		err := bucket.WriteAll(ctx, key, body, nil)

		if err != nil {
			t.Fatalf("Failed to seed %s, %v", key, err)
		}
	}

	count := 0

	cb := func(pair *MatchedPair) error {

		count += 1

		if pair.Fingerprint == "" {
			t.Errorf("Pair '%s' is missing a fingerprint", pair.Key)
		}

		return nil
	}

	err := GatherPairs(ctx, bucket, cb)

	if err != nil {
		t.Fatalf("Failed to gather pairs, %v", err)
	}

	if count != 1 {
		t.Fatalf("Gathered %d pairs, expected 1", count)
	}
}
