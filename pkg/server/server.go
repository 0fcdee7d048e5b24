package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/uploadurl/pkg/build"
	"github.com/storacha/uploadurl/pkg/service/objects"
	"github.com/storacha/uploadurl/pkg/service/uploads"
)

var log = logging.Logger("server")

// ShutdownTimeout bounds how long in-flight requests are given to complete
// once the server is asked to stop.
const ShutdownTimeout = 5 * time.Second

type config struct {
	uploads       *uploads.Service
	legacyUploads *uploads.Service
	objects       *objects.Server
}

type Option func(*config)

// WithUploadService configures the service backing the upload URL endpoint.
func WithUploadService(service *uploads.Service) Option {
	return func(c *config) {
		c.uploads = service
	}
}

// WithLegacyUploadService configures the service backing the fixed key
// endpoint. Defaults to the upload service.
func WithLegacyUploadService(service *uploads.Service) Option {
	return func(c *config) {
		c.legacyUploads = service
	}
}

// WithObjectServer mounts an object server that accepts uploads made with
// issued URLs.
func WithObjectServer(srv *objects.Server) Option {
	return func(c *config) {
		c.objects = srv
	}
}

// ListenAndServe creates a new upload URL HTTP server and serves it until the
// context is canceled.
func ListenAndServe(ctx context.Context, addr string, opts ...Option) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return Serve(ctx, ln, opts...)
}

// Serve serves requests on the listener until the context is canceled, then
// shuts the server down gracefully.
func Serve(ctx context.Context, ln net.Listener, opts ...Option) error {
	handler, err := NewServer(opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: handler}
	errs := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", ln.Addr())
		errs <- srv.Serve(ln)
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// NewServer creates the HTTP handler for the upload URL service.
func NewServer(opts ...Option) (http.Handler, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}

	uploadsSrv, err := uploads.NewServer(c.uploads, c.legacyUploads)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", getRootHandler())
	uploadsSrv.Serve(mux)
	if c.objects == nil {
		return mux, nil
	}
	c.objects.Serve(mux)
	return c.objects.Wrap(mux), nil
}

// getRootHandler displays version info when a GET request is sent to "/".
func getRootHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fmt.Sprintf("🔥 uploadurl %s\n", build.Version)))
		w.Write([]byte("- https://github.com/storacha/uploadurl\n"))
	}
}
