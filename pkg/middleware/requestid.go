package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/bookcluster/platform/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns a request ID (from the incoming header, if present, or
// freshly generated) and stores it in the request context for downstream
// logging via logger.FromContext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
