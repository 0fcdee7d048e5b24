package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/uploadurl/internal/telemetry"
)

var log = logging.Logger("uploads")

// MaxBodySize is the largest request body accepted, in bytes.
const MaxBodySize = 64 << 10

const malformedMessage = "Malformed request body. " + RequiredFieldsMessage

type Server struct {
	service *Service
	legacy  *Service
}

// NewServer creates a server for the upload URL endpoints. The legacy service
// backs the fixed key endpoint, and may be nil to use service for both.
func NewServer(service *Service, legacy *Service) (*Server, error) {
	if service == nil {
		return nil, errors.New("service is required")
	}
	if legacy == nil {
		legacy = service
	}
	return &Server{service, legacy}, nil
}

func (srv *Server) Serve(mux *http.ServeMux) {
	mux.Handle("/upload-url", NewUploadURLHandler(srv.service))
	mux.Handle("/legacy-upload-url", NewFixedUploadURLHandler(srv.legacy))
}

// NewUploadURLHandler handles POST requests carrying an [UploadRequest] body
// and responds with an [UploadResponse].
func NewUploadURLHandler(service *Service) http.Handler {
	return newHandler([]string{http.MethodPost}, func(w http.ResponseWriter, r *http.Request) error {
		req, err := decodeRequest(w, r)
		if err != nil {
			return toHTTPError(err)
		}

		res, err := service.CreateUploadURL(r.Context(), req)
		if err != nil {
			return toHTTPError(err)
		}

		writeJSON(w, http.StatusOK, res)
		return nil
	})
}

// NewFixedUploadURLHandler ignores the request and responds with a
// [FixedUploadResponse] for the service's fixed object key.
func NewFixedUploadURLHandler(service *Service) http.Handler {
	return newHandler([]string{http.MethodGet, http.MethodPost}, func(w http.ResponseWriter, r *http.Request) error {
		res, err := service.CreateFixedUploadURL(r.Context())
		if err != nil {
			return toHTTPError(err)
		}

		writeJSON(w, http.StatusOK, res)
		return nil
	})
}

func newHandler(methods []string, handle telemetry.ErrorReturningHTTPHandler) http.Handler {
	reporting := telemetry.NewErrorReportingHandler(handle, writeError)
	allow := strings.Join(append(methods, http.MethodOptions), ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setHeaders(w.Header())

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", allow)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		for _, m := range methods {
			if r.Method == m {
				reporting.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("Allow", allow)
		writeError(w, telemetry.NewHTTPError(fmt.Errorf("method %s is not allowed", r.Method), http.StatusMethodNotAllowed))
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (UploadRequest, error) {
	var req UploadRequest

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		return req, NewValidationError(malformedMessage, err)
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, NewValidationError(malformedMessage, err)
	}
	return req, nil
}

func toHTTPError(err error) error {
	var ve ValidationError
	if errors.As(err, &ve) {
		log.Debugw("rejected upload request", "error", err)
		return telemetry.NewHTTPError(err, http.StatusBadRequest)
	}
	return telemetry.NewHTTPError(err, http.StatusInternalServerError)
}

func setHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Content-Type", "application/json")
}

func writeError(w http.ResponseWriter, e telemetry.HTTPError) {
	msg := e.Error()
	if e.StatusCode() >= http.StatusInternalServerError {
		// internal details stay in the logs and error reports
		msg = http.StatusText(http.StatusInternalServerError)
		if errors.Is(e, ErrSigningFailed) {
			msg = ErrSigningFailed.Error()
		}
	}
	writeJSON(w, e.StatusCode(), ErrorResponse{Error: msg, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	setHeaders(w.Header())
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorw("writing response", "error", err)
	}
}
