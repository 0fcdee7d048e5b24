package presigner

import (
	"context"
	"net/http"
	"net/url"
)

type RequestPresigner interface {
	// SignUploadURL creates and signs a URL that allows a PUT request to upload
	// an object to the given bucket under the given key.
	//
	// The ttl parameter determines the number of seconds the signed URL will be
	// valid for, starting from the time of the call.
	//
	// It returns a signed URL that will accept a PUT request, and a set of HTTP
	// headers that should also be sent with the request.
	SignUploadURL(ctx context.Context, bucket string, key string, ttl uint64) (url.URL, http.Header, error)
	// VerifyUploadURL ensures the upload URL was signed by this service and has
	// not expired. It returns the _signed_ URL and headers or error if the
	// signature is invalid.
	VerifyUploadURL(ctx context.Context, url url.URL, headers http.Header) (url.URL, http.Header, error)
}
