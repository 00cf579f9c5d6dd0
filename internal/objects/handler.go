package objects

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Handler serves GET {PublicPrefix}{bucket}/{name}. Objects from an Opener are
// written directly; a Redirector gets a temporary redirect.
func Handler(s ObjectStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := r.PathValue("bucket")
		name := r.PathValue("name")
		if bucket == "" || name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}

		switch st := s.(type) {
		case Opener:
			obj, err := st.Open(r.Context(), bucket, name)
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			if err != nil {
				slog.Error("opening object", "bucket", bucket, "name", name, "error", err)
				http.Error(w, "failed to read object", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", obj.ContentType)
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Write(obj.Data)
		case Redirector:
			target, err := st.DeliveryURL(bucket, name)
			if err != nil {
				slog.Error("resolving object delivery url", "bucket", bucket, "name", name, "error", err)
				http.Error(w, "failed to resolve object", http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, target, http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	})
}

// Pattern is the ServeMux pattern Handler expects to be mounted at.
const Pattern = "GET " + PublicPrefix + "{bucket}/{name}"
