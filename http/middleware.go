package http

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestVerifier checks a presigned request.
type RequestVerifier interface {
	Verify(method, path string, query url.Values) error
}

// SignedURLMiddleware rejects requests whose presigned query does not verify.
// The path checked is the decoded URL path with prefix removed.
// Pass nil for public access.
func SignedURLMiddleware(verifier RequestVerifier, prefix string) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimPrefix(r.URL.Path, prefix)

			if err := verifier.Verify(r.Method, path, r.URL.Query()); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
