package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/basketfreq/internal/core"
	"github.com/JonMunkholm/basketfreq/internal/web/middleware"
)

// WithRequestMetadata adds the client IP to ctx for the run history.
// The User-Agent is logged by middleware.Logger and not recorded.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClientIP(ctx, middleware.ClientIP(r))
}

// requestMetadata applies WithRequestMetadata to every request.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestMetadata(r.Context(), r)))
	})
}
