package middleware

import (
	"net/http"

	"homeworkhelper/internal/reqctx"

	"github.com/google/uuid"
)

type ContextKey string

const (
	ContextUserID    ContextKey = "user_id"
	ContextRequestID ContextKey = "request_id"
)

// RequestID assigns every request a uuid, honoring an incoming X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx := reqctx.WithRequestID(r.Context(), rid)
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
