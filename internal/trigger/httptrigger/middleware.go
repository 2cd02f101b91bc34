package httptrigger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"watch-registration/internal/common/logger"
	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
)

const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// requestIDMiddleware propagates the caller's request ID, or assigns one, and
// uses it as the pipeline invocation ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = watchregistration.WithInvocationID(ctx, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func recoverMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("Panic while serving request", map[string]interface{}{
						"path":      r.URL.Path,
						"requestId": requestIDFromContext(r.Context()),
						"panic":     fmt.Sprint(rec),
					})
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", requestIDFromContext(r.Context()))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
