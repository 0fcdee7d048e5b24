package telemetry

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/uploadurl/pkg/build"
)

var log = logging.Logger("telemetry")

// HTTPError is an error that also has an associated HTTP status code
type HTTPError struct {
	err        error
	statusCode int
}

// Error implements the error interface
func (he HTTPError) Error() string {
	return he.err.Error()
}

// Unwrap returns the underlying error
func (he HTTPError) Unwrap() error {
	return he.err
}

// StatusCode returns the HTTP status code associated with the error
func (he HTTPError) StatusCode() int {
	return he.statusCode
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(err error, statusCode int) HTTPError {
	return HTTPError{err: err, statusCode: statusCode}
}

// ErrorReturningHTTPHandler is a HTTP handler function that returns an error
type ErrorReturningHTTPHandler func(http.ResponseWriter, *http.Request) error

// ErrorWriter writes the response for an error returned by a handler.
type ErrorWriter func(http.ResponseWriter, HTTPError)

// SetupErrorReporting configures the Sentry SDK for error reporting. Without
// a DSN, reporting is disabled and errors are only logged.
func SetupErrorReporting(dsn string, environment string) {
	if dsn == "" {
		log.Info("sentry DSN not configured, error reporting disabled")
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     build.Version,
		Transport:   sentry.NewHTTPSyncTransport(),
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
}

// NewErrorReportingHandler wraps an ErrorReturningHTTPHandler with error
// reporting. Errors that are not an HTTPError are treated as internal server
// errors. Only server errors (5xx) are reported; every error is passed to
// writeError, or to http.Error when writeError is nil.
func NewErrorReportingHandler(errorReturningHandler ErrorReturningHTTPHandler, writeError ErrorWriter) http.Handler {
	if writeError == nil {
		writeError = func(w http.ResponseWriter, e HTTPError) {
			http.Error(w, e.Error(), e.StatusCode())
		}
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := errorReturningHandler(w, r); err != nil {
			var e HTTPError
			if !errors.As(err, &e) {
				e = NewHTTPError(err, http.StatusInternalServerError)
			}
			if e.StatusCode() >= http.StatusInternalServerError {
				ReportError(err)
			}
			writeError(w, e)
		}
	})

	sentryHandler := sentryhttp.New(sentryhttp.Options{})
	return sentryHandler.Handle(handler)
}

// ReportError reports an error to Sentry
func ReportError(err error) {
	sentry.CaptureException(err)
}
