package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/requestid"
)

// RequestID reuses a well-formed X-Request-Id from the client or load
// balancer and mints one otherwise. The id is echoed on the response, stamped
// on every log line and carried on the context into outbox events.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestid.Sanitize(r.Header.Get(requestid.Header))
			if id == "" {
				id = requestid.New()
			}
			w.Header().Set(requestid.Header, id)

			ctx := requestid.With(r.Context(), id)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
