package middleware

import (
	"mime"
	"net/http"
	"strings"

	"roomly/pkg/logger"
)

// ContentTypeValidation rejects request bodies that are not UTF-8 JSON.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r.Method, r.ContentLength) {
				header := r.Header.Get("Content-Type")
				if !acceptsJSON(header) {
					rejectInvalidContentType(w, log, r, header)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Bodiless POSTs such as marking a notification read are allowed through.
func requiresContentType(method string, contentLength int64) bool {
	if contentLength == 0 {
		return false
	}
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func acceptsJSON(header string) bool {
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil || mediaType != "application/json" {
		return false
	}
	charset, ok := params["charset"]
	return !ok || strings.EqualFold(charset, "utf-8")
}

func rejectInvalidContentType(w http.ResponseWriter, log *logger.Logger, r *http.Request, contentType string) {
	log.Warn("Invalid Content-Type header",
		"request_id", RequestIDFromContext(r.Context()),
		"content_type", contentType,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnsupportedMediaType)
	_, _ = w.Write([]byte(`{"error":"Content-Type must be application/json","code":"INVALID_INPUT"}`))
}
