package objects

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/uploadurl/pkg/presigner"
	"github.com/storacha/uploadurl/pkg/store"
	"github.com/storacha/uploadurl/pkg/store/objectstore"
)

var log = logging.Logger("objects")

// Server accepts uploads made with presigned URLs and serves the stored
// objects back, standing in for S3 when running locally.
type Server struct {
	objects   objectstore.ObjectStore
	presigner presigner.RequestPresigner
}

func NewServer(presigner presigner.RequestPresigner, objects objectstore.ObjectStore) (*Server, error) {
	if presigner == nil {
		return nil, errors.New("presigner is required")
	}
	if objects == nil {
		return nil, errors.New("object store is required")
	}
	return &Server{objects, presigner}, nil
}

func (srv *Server) Serve(mux *http.ServeMux) {
	mux.Handle("GET /{bucket}/{key...}", srv.getHandler())
	mux.Handle("PUT /{bucket}/{key...}", srv.putHandler())
	mux.Handle("OPTIONS /{bucket}/{key...}", srv.optionsHandler())
}

// Wrap routes object requests whose path ServeMux would clean, such as keys
// with empty or dot segments, straight to the object handlers. S3 stores
// these keys literally, so issued URLs for them must work here too. All other
// requests go to next.
func (srv *Server) Wrap(next http.Handler) http.Handler {
	handlers := map[string]http.Handler{
		http.MethodGet:     srv.getHandler(),
		http.MethodPut:     srv.putHandler(),
		http.MethodOptions: srv.optionsHandler(),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method]
		if !ok || isCleanPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		bucket, key, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if !ok || bucket == "" {
			next.ServeHTTP(w, r)
			return
		}
		r.SetPathValue("bucket", bucket)
		r.SetPathValue("key", key)
		h.ServeHTTP(w, r)
	})
}

// isCleanPath reports whether ServeMux would route p without redirecting.
func isCleanPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	c := path.Clean(p)
	if strings.HasSuffix(p, "/") && c != "/" {
		c += "/"
	}
	return c == p
}

func (srv *Server) getHandler() http.Handler {
	return withCORS(NewObjectGetHandler(srv.objects))
}

func (srv *Server) putHandler() http.Handler {
	return withCORS(NewObjectPutHandler(srv.presigner, srv.objects))
}

func (srv *Server) optionsHandler() http.Handler {
	return withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
}

func NewObjectGetHandler(objects objectstore.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket, key := r.PathValue("bucket"), r.PathValue("key")
		if key == "" {
			http.Error(w, "missing object key", http.StatusBadRequest)
			return
		}

		obj, err := objects.Get(r.Context(), bucket, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "object not found", http.StatusNotFound)
				return
			}
			log.Errorw("getting object", "bucket", bucket, "key", key, "error", err)
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size(), 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, obj.Body()); err != nil {
			log.Warnw("writing object", "bucket", bucket, "key", key, "error", err)
		}
	}
}

func NewObjectPutHandler(reqSigner presigner.RequestPresigner, objects objectstore.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _, err := reqSigner.VerifyUploadURL(r.Context(), *r.URL, r.Header)
		if err != nil {
			if errors.Is(err, presigner.ErrExpired) {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}
			log.Warnw("rejected upload", "path", r.URL.Path, "error", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		bucket, key := r.PathValue("bucket"), r.PathValue("key")
		err = objects.Put(r.Context(), bucket, key, r.Body)
		if err != nil {
			if errors.Is(err, store.ErrTooLarge) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			log.Errorw("writing object", "bucket", bucket, "key", key, "error", err)
			http.Error(w, "write failed", http.StatusInternalServerError)
			return
		}

		log.Infow("stored object", "bucket", bucket, "key", key)
		w.WriteHeader(http.StatusOK)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
