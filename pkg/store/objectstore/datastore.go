package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ipfs/go-datastore"
	"github.com/storacha/uploadurl/pkg/store"
)

// DefaultMaxObjectSize is the largest object accepted unless configured
// otherwise.
const DefaultMaxObjectSize = 64 << 20

type DsObject struct {
	bytes []byte
}

func (o DsObject) Size() int64 {
	return int64(len(o.bytes))
}

func (o DsObject) Body() io.Reader {
	return bytes.NewReader(o.bytes)
}

type DsObjectStore struct {
	data    datastore.Datastore
	maxSize int64
}

type Option func(*DsObjectStore)

// WithMaxObjectSize sets the largest object, in bytes, that Put accepts.
func WithMaxObjectSize(size int64) Option {
	return func(d *DsObjectStore) {
		d.maxSize = size
	}
}

// toKey escapes bucket and key into single key segments, so keys that differ
// only in dot or empty segments are not cleaned into the same datastore key.
func toKey(bucket, key string) datastore.Key {
	return datastore.NewKey(escapeSegment(bucket)).ChildString(escapeSegment(key))
}

func escapeSegment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ".", "%2E")
}

// Get implements ObjectStore.
func (d *DsObjectStore) Get(ctx context.Context, bucket string, key string) (Object, error) {
	b, err := d.data.Get(ctx, toKey(bucket, key))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return DsObject{bytes: b}, nil
}

// Put implements ObjectStore.
func (d *DsObjectStore) Put(ctx context.Context, bucket string, key string, body io.Reader) error {
	b, err := io.ReadAll(io.LimitReader(body, d.maxSize+1))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if int64(len(b)) > d.maxSize {
		return store.ErrTooLarge
	}

	err = d.data.Put(ctx, toKey(bucket, key), b)
	if err != nil {
		return fmt.Errorf("putting object: %w", err)
	}
	return nil
}

var _ ObjectStore = (*DsObjectStore)(nil)

// NewDsObjectStore creates an [ObjectStore] backed by an IPFS datastore.
func NewDsObjectStore(ds datastore.Datastore, opts ...Option) *DsObjectStore {
	d := &DsObjectStore{data: ds, maxSize: DefaultMaxObjectSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}
