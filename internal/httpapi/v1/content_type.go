package v1

import (
	"mime"
	"net/http"
)

// requireJSON is middleware rejecting write requests whose Content-Type is
// not application/json (parameters such as charset are allowed) with 415.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
