package uploads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storacha/uploadurl/pkg/presigner"
)

// URLExpiry is the number of seconds an issued upload URL remains valid.
const URLExpiry = 3600

// DefaultObjectKey is the key signed by [Service.CreateFixedUploadURL] unless
// another is configured.
const DefaultObjectKey = "test"

// Service issues presigned upload URLs for a single bucket.
type Service struct {
	presigner presigner.RequestPresigner
	bucket    string
	objectKey string
	newID     func() (uuid.UUID, error)
}

// New creates a Service. A bucket must be configured with [WithBucket].
func New(presigner presigner.RequestPresigner, opts ...Option) (*Service, error) {
	o := &options{
		objectKey: DefaultObjectKey,
		newID:     uuid.NewRandom,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if presigner == nil {
		return nil, errors.New("presigner is required")
	}
	if o.bucket == "" {
		return nil, ErrMissingBucket
	}

	return &Service{
		presigner: presigner,
		bucket:    o.bucket,
		objectKey: o.objectKey,
		newID:     o.newID,
	}, nil
}

// Bucket returns the bucket upload URLs are signed for.
func (s *Service) Bucket() string {
	return s.bucket
}

// ObjectKey builds the key an upload is stored under. The extension is
// appended verbatim, so callers include any leading dot themselves.
func ObjectKey(collectionID string, id uuid.UUID, extension string) string {
	return collectionID + "/" + id.String() + extension
}

// CreateUploadURL validates the request and returns a freshly keyed object
// name with a URL that accepts a PUT of the object for [URLExpiry] seconds.
//
// It returns a [ValidationError] if either field is empty, and an error
// matching [ErrSigningFailed] if no URL could be signed.
func (s *Service) CreateUploadURL(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	if req.Extension == "" || req.CollectionID == "" {
		return UploadResponse{}, NewValidationError(RequiredFieldsMessage, nil)
	}

	id, err := s.newID()
	if err != nil {
		return UploadResponse{}, fmt.Errorf("generating object ID: %w", err)
	}

	key := ObjectKey(req.CollectionID, id, req.Extension)
	signed, err := s.sign(ctx, key)
	if err != nil {
		return UploadResponse{}, err
	}

	log.Infow("issued upload URL", "bucket", s.bucket, "key", key)
	return UploadResponse{ObjectKey: key, UploadURL: signed}, nil
}

// CreateFixedUploadURL signs an upload URL for the configured fixed key. The
// returned GUID is unrelated to the key.
func (s *Service) CreateFixedUploadURL(ctx context.Context) (FixedUploadResponse, error) {
	signed, err := s.sign(ctx, s.objectKey)
	if err != nil {
		return FixedUploadResponse{}, err
	}

	id, err := s.newID()
	if err != nil {
		return FixedUploadResponse{}, fmt.Errorf("generating guid: %w", err)
	}

	log.Infow("issued fixed key upload URL", "bucket", s.bucket, "key", s.objectKey)
	return FixedUploadResponse{Message: signed, GUID: id.String()}, nil
}

func (s *Service) sign(ctx context.Context, key string) (string, error) {
	u, _, err := s.presigner.SignUploadURL(ctx, s.bucket, key, URLExpiry)
	if err != nil {
		log.Errorw("signing upload URL", "bucket", s.bucket, "key", key, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	signed := u.String()
	if signed == "" {
		log.Errorw("presigner returned an empty URL", "bucket", s.bucket, "key", key)
		return "", ErrSigningFailed
	}
	return signed, nil
}
