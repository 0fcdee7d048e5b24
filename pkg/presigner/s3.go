package presigner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const ISO8601BasicFormat = "20060102T150405Z"

// DefaultRegion is used to scope signatures when no region is configured.
const DefaultRegion = "us-east-1"

var (
	// ErrMissingBucket is returned when signing without a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
	// ErrMissingKey is returned when signing without an object key.
	ErrMissingKey = errors.New("missing object key")
	// ErrSignatureMismatch is returned when a URL was not signed by this presigner.
	ErrSignatureMismatch = errors.New("signature verification failed")
	// ErrExpired is returned when a signed URL is past its expiry.
	ErrExpired = errors.New("signed URL has expired")
	// ErrNoEndpoint is returned when verifying with a presigner that was not
	// configured with a path-style endpoint.
	ErrNoEndpoint = errors.New("verification requires a path-style endpoint")
)

type S3RequestPresigner struct {
	endpoint      *url.URL
	presignClient *s3.PresignClient
	now           func() time.Time
}

// Option configures an [S3RequestPresigner].
type Option func(*S3RequestPresigner)

// WithClock overrides the clock used for signing times and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(ss *S3RequestPresigner) {
		ss.now = now
	}
}

func (ss *S3RequestPresigner) SignUploadURL(ctx context.Context, bucket string, key string, ttl uint64) (url.URL, http.Header, error) {
	if bucket == "" {
		return url.URL{}, nil, ErrMissingBucket
	}
	if key == "" {
		return url.URL{}, nil, ErrMissingKey
	}

	signedReq, err := ss.presign(ctx, bucket, key, ttl, ss.now())
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("signing request: %w", err)
	}

	reqURL, err := url.Parse(signedReq.URL)
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("parsing signed URL: %w", err)
	}

	return *reqURL, signedReq.SignedHeader, nil
}

func (ss *S3RequestPresigner) presign(ctx context.Context, bucket string, key string, ttl uint64, signingTime time.Time) (*v4.PresignedHTTPRequest, error) {
	return ss.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Duration(ttl) * time.Second
		opts.Presigner = pointInTimePresigner{signingTime, opts.Presigner}
	})
}

// pointInTimePresigner is a [s3.HTTPPresignerV4] whose signing time is frozen
// to the preconfigured value.
type pointInTimePresigner struct {
	signingTime time.Time
	presigner   s3.HTTPPresignerV4
}

func (pps pointInTimePresigner) PresignHTTP(
	ctx context.Context, credentials aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (url string, signedHeader http.Header, err error) {
	return pps.presigner.PresignHTTP(ctx, credentials, r, payloadHash, service,
		region, pps.signingTime, optFns...)
}

func (ss *S3RequestPresigner) VerifyUploadURL(ctx context.Context, requestURL url.URL, requestHeaders http.Header) (url.URL, http.Header, error) {
	if ss.endpoint == nil {
		return url.URL{}, nil, ErrNoEndpoint
	}

	// keep the request path as sent, dot and empty segments are part of the key
	if !requestURL.IsAbs() {
		requestURL.Scheme = ss.endpoint.Scheme
		requestURL.Host = ss.endpoint.Host
	}
	bucket, key, err := ss.splitPath(requestURL.Path)
	if err != nil {
		return url.URL{}, nil, err
	}

	expires, err := strconv.ParseUint(requestURL.Query().Get("X-Amz-Expires"), 10, 64)
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("parsing X-Amz-Expires parameter: %w", err)
	}

	signingTime, err := time.Parse(ISO8601BasicFormat, requestURL.Query().Get("X-Amz-Date"))
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("parsing X-Amz-Date parameter: %w", err)
	}

	// re-sign as of the original signing time, so the signature is reproducible.
	signedReq, err := ss.presign(ctx, bucket, key, expires, signingTime)
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("signing request: %w", err)
	}

	if requestURL.String() != signedReq.URL {
		return url.URL{}, nil, ErrSignatureMismatch
	}

	if ss.now().After(signingTime.Add(time.Duration(expires) * time.Second)) {
		return url.URL{}, nil, ErrExpired
	}

	u, err := url.Parse(signedReq.URL)
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("parsing signed URL: %w", err)
	}

	return *u, signedReq.SignedHeader, nil
}

// splitPath extracts bucket and key from a path-style request path.
func (ss *S3RequestPresigner) splitPath(p string) (string, string, error) {
	rest := strings.TrimPrefix(p, strings.TrimSuffix(ss.endpoint.Path, "/"))
	bucket, key, ok := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("path %q does not address an object", p)
	}
	return bucket, key, nil
}

var _ RequestPresigner = (*S3RequestPresigner)(nil)

// NewS3RequestPresigner creates a signer that uses the S3 SDK to sign and
// verify requests with static credentials. The region parameter is optional
// and defaults to [DefaultRegion].
//
// Signed upload URLs take the form {endpoint}/{bucket}/{key}
func NewS3RequestPresigner(accessKeyID string, secretAccessKey string, endpoint url.URL, region string, opts ...Option) (*S3RequestPresigner, error) {
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, errors.New("access key ID and secret access key are required")
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", endpoint.String())
	}
	if region == "" {
		region = DefaultRegion
	}

	endpointstr := endpoint.String()
	cfg := aws.Config{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		BaseEndpoint: &endpointstr,
	}

	s3client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		opts.UsePathStyle = true
	})

	ss := &S3RequestPresigner{
		endpoint:      &endpoint,
		presignClient: s3.NewPresignClient(s3client),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(ss)
	}
	return ss, nil
}

// NewS3RequestPresignerFromClient creates a signer from an existing S3 client,
// using whatever credentials the client resolves. Verification is available
// only when the client has a base endpoint and uses path-style addressing.
func NewS3RequestPresignerFromClient(client *s3.Client, opts ...Option) *S3RequestPresigner {
	ss := &S3RequestPresigner{
		presignClient: s3.NewPresignClient(client),
		now:           time.Now,
	}

	clientOpts := client.Options()
	if clientOpts.UsePathStyle && clientOpts.BaseEndpoint != nil {
		if endpoint, err := url.Parse(*clientOpts.BaseEndpoint); err == nil {
			ss.endpoint = endpoint
		}
	}

	for _, opt := range opts {
		opt(ss)
	}
	return ss
}
