package objectstore

import (
	"context"
	"io"
)

type Object interface {
	// Size returns the total size of the object in bytes.
	Size() int64
	Body() io.Reader
}

// ObjectStore stores objects addressed by bucket and key, the way an S3
// compatible service does.
type ObjectStore interface {
	// Put stores the bytes read from body, replacing any existing object. It
	// returns [store.ErrTooLarge] if the body exceeds the store limit.
	Put(ctx context.Context, bucket string, key string, body io.Reader) error
	// Get retrieves the object identified by bucket and key. Returns nil and
	// [store.ErrNotFound] if the object does not exist.
	Get(ctx context.Context, bucket string, key string) (Object, error)
}
