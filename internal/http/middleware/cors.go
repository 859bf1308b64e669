package middleware

import (
	"net/http"
	"strings"
)

// CORS returns middleware that sets common CORS headers for the configured
// origins. An empty list disables CORS headers. The special value "*" allows
// any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		if o != "" {
			origins = append(origins, o)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case len(origins) == 0:
				// no cors headers
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Credentials", "false")
				setCommonHeaders(w)
			default:
				requestOrigin := r.Header.Get("Origin")
				if requestOrigin != "" && originAllowed(origins, requestOrigin) {
					w.Header().Set("Access-Control-Allow-Origin", requestOrigin)
					w.Header().Set("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					setCommonHeaders(w)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origins []string, requestOrigin string) bool {
	for _, o := range origins {
		if strings.EqualFold(o, requestOrigin) {
			return true
		}
	}
	return false
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
	w.Header().Set("Access-Control-Max-Age", "3600")
}
