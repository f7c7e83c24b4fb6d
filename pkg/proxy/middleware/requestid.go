package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/notfound/pkg/telemetry/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestIDMiddleware tags every request with an ID. A client supplied
// X-Request-ID is kept when it is at most 128 printable ASCII characters;
// anything else is replaced with a random UUID. The ID reaches log records
// through the context and is echoed on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestID returns the ID assigned by RequestIDMiddleware, or "".
func RequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
