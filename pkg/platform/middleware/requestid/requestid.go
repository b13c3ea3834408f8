// Package requestid assigns a correlation ID to every request. Incoming
// X-Request-ID values are honored so the platform's own correlation IDs
// survive into audit records and operator logs.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"chronicle/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware attaches a request ID to the context and echoes it in the
// response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(headerName)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set(headerName, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
