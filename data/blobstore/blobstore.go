// Package blobstore implements the §4.1 BlobStore contract: put/get/delete
// opaque byte blobs keyed by filename, returning a fetch URL. Grounded on
// original_source/GOserver/DB_AWS_handler.go's StoreDataToS3/GetDataFromS3/
// DeleteDataFromS3, which upload through aws-sdk-go and hand back a
// presigned GET URL.
package blobstore

import "context"

// Store is the BlobStore contract. Bucket name and region come from the
// environment (config.Config); errors are surfaced to the caller, which
// reports failure to the sender but does not retry (spec §4.1).
type Store interface {
	Put(ctx context.Context, key string, data []byte) (url string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
