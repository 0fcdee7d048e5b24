package presigner

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/storacha/uploadurl/pkg/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestS3Signer(t *testing.T) {
	endpoint, err := url.Parse("http://localhost:3000")
	require.NoError(t, err)

	accessKeyID := testutil.RandomString(10)
	secretAccessKey := testutil.RandomString(20)

	t.Run("sign and verify", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		url, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "abc123/photo.png", 3600)
		require.NoError(t, err)

		require.Equal(t, "localhost:3000", url.Host)
		require.Equal(t, "/uploads/abc123/photo.png", url.Path)
		require.Equal(t, "3600", url.Query().Get("X-Amz-Expires"))
		require.NotEmpty(t, url.Query().Get("X-Amz-Signature"))

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.NoError(t, err)
	})

	t.Run("verify relative request URL", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		signed, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "abc123/photo.png", 3600)
		require.NoError(t, err)

		// servers see only the path and query of the request
		relative := url.URL{Path: signed.Path, RawQuery: signed.RawQuery}
		_, _, err = reqSigner.VerifyUploadURL(context.Background(), relative, headers)
		require.NoError(t, err)
	})

	t.Run("keys with dot and empty segments", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		for _, key := range []string{"a/../b/photo.png", "a//b/photo.png"} {
			signed, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", key, 3600)
			require.NoError(t, err)
			require.Equal(t, "/uploads/"+key, signed.Path)

			relative := url.URL{Path: signed.Path, RawPath: signed.RawPath, RawQuery: signed.RawQuery}
			_, _, err = reqSigner.VerifyUploadURL(context.Background(), relative, headers)
			require.NoError(t, err, key)

			cleaned := url.URL{Path: "/uploads/b/photo.png", RawQuery: signed.RawQuery}
			_, _, err = reqSigner.VerifyUploadURL(context.Background(), cleaned, headers)
			require.ErrorIs(t, err, ErrSignatureMismatch, key)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		url, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "abc123/photo.png", 3600)
		require.NoError(t, err)

		// mess with the url
		url.Path += "/index.html"

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("tampered expiry", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		signed, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "abc123/photo.png", 60)
		require.NoError(t, err)

		q := signed.Query()
		q.Set("X-Amz-Expires", "604800")
		signed.RawQuery = q.Encode()

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), signed, headers)
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("different credentials", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)
		otherSigner, err := NewS3RequestPresigner(accessKeyID, testutil.RandomString(20), *endpoint, "")
		require.NoError(t, err)

		url, headers, err := otherSigner.SignUploadURL(context.Background(), "uploads", "abc123/photo.png", 3600)
		require.NoError(t, err)

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("expired", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "", WithClock(clock))
		require.NoError(t, err)

		url, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "abc123/photo.png", 60)
		require.NoError(t, err)

		now = now.Add(59 * time.Second)
		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.NoError(t, err)

		now = now.Add(2 * time.Second)
		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("endpoint with path prefix", func(t *testing.T) {
		prefixed, err := url.Parse("http://localhost:3000/storage")
		require.NoError(t, err)

		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *prefixed, "eu-west-2")
		require.NoError(t, err)

		url, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "k/v.txt", 900)
		require.NoError(t, err)
		require.Equal(t, "/storage/uploads/k/v.txt", url.Path)
		require.True(t, strings.Contains(url.Query().Get("X-Amz-Credential"), "eu-west-2"))

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.NoError(t, err)
	})

	t.Run("missing bucket or key", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		_, _, err = reqSigner.SignUploadURL(context.Background(), "", "key", 3600)
		require.ErrorIs(t, err, ErrMissingBucket)

		_, _, err = reqSigner.SignUploadURL(context.Background(), "uploads", "", 3600)
		require.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("path without key", func(t *testing.T) {
		reqSigner, err := NewS3RequestPresigner(accessKeyID, secretAccessKey, *endpoint, "")
		require.NoError(t, err)

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url.URL{Path: "/uploads"}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not address an object")
	})

	t.Run("invalid constructor arguments", func(t *testing.T) {
		_, err := NewS3RequestPresigner("", secretAccessKey, *endpoint, "")
		require.Error(t, err)

		_, err = NewS3RequestPresigner(accessKeyID, secretAccessKey, url.URL{Path: "/relative"}, "")
		require.Error(t, err)
	})
}

func TestS3SignerFromClient(t *testing.T) {
	creds := credentials.NewStaticCredentialsProvider(testutil.RandomString(10), testutil.RandomString(20), "")

	t.Run("virtual hosted style cannot verify", func(t *testing.T) {
		client := s3.New(s3.Options{Region: "us-west-2", Credentials: creds})
		reqSigner := NewS3RequestPresignerFromClient(client)

		url, headers, err := reqSigner.SignUploadURL(context.Background(), "jd-tier-list-images", "test", 3600)
		require.NoError(t, err)
		require.Equal(t, "jd-tier-list-images.s3.us-west-2.amazonaws.com", url.Host)
		require.Equal(t, "/test", url.Path)

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.ErrorIs(t, err, ErrNoEndpoint)
	})

	t.Run("path style endpoint verifies", func(t *testing.T) {
		client := s3.New(s3.Options{
			Region:       "us-east-1",
			Credentials:  creds,
			BaseEndpoint: aws.String("http://127.0.0.1:9000"),
			UsePathStyle: true,
		})
		reqSigner := NewS3RequestPresignerFromClient(client)

		url, headers, err := reqSigner.SignUploadURL(context.Background(), "uploads", "abc/def.png", 3600)
		require.NoError(t, err)
		require.Equal(t, "/uploads/abc/def.png", url.Path)

		_, _, err = reqSigner.VerifyUploadURL(context.Background(), url, headers)
		require.NoError(t, err)
	})
}
