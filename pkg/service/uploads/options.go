package uploads

import (
	"errors"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
)

type options struct {
	bucket    string
	objectKey string
	newID     func() (uuid.UUID, error)
}

type Option func(*options) error

// WithLogLevel changes the log level for the uploads subsystem.
func WithLogLevel(level string) Option {
	return func(o *options) error {
		return logging.SetLogLevel("uploads", level)
	}
}

// WithBucket sets the bucket upload URLs are signed for.
func WithBucket(bucket string) Option {
	return func(o *options) error {
		o.bucket = bucket
		return nil
	}
}

// WithObjectKey sets the key used by [Service.CreateFixedUploadURL].
func WithObjectKey(key string) Option {
	return func(o *options) error {
		if key == "" {
			return errors.New("object key must not be empty")
		}
		o.objectKey = key
		return nil
	}
}

// WithIDGenerator replaces the UUID v4 generator used for object keys.
func WithIDGenerator(newID func() (uuid.UUID, error)) Option {
	return func(o *options) error {
		o.newID = newID
		return nil
	}
}
