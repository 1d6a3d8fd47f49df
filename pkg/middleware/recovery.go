package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"roomly/pkg/logger"
)

// Recovery turns a handler panic into a 500 that carries the request id, so
// a caller can match the failure to the logged stack.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				requestID := RequestIDFromContext(r.Context())
				if requestID == "" {
					requestID = w.Header().Get(RequestIDHeader)
				}
				log.Error("Panic recovered",
					"request_id", requestID,
					"error", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = fmt.Fprintf(w, `{"error":"Internal server error","code":"INTERNAL_ERROR","request_id":%q}`, requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
