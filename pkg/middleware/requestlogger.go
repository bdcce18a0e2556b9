package middleware

import (
	"log/slog"
	"net/http"

	"github.com/NurulloMahmud/tafakkur/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context carrying
// correlation_id, user_id, trace_id and span_id when they are known.
// Handlers read it back with logger.FromContext.
//
// Mount it after RequestLogging and Tracing. Routes behind Auth should mount
// it again so user_id is picked up.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
