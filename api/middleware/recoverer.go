package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type panicRecorder interface {
	IncPanic(route string)
}

// Recoverer turns a handler panic into a 500 envelope, logs the stack once and
// counts the panic against its route. http.ErrAbortHandler is re-raised so the
// server still drops the connection.
func Recoverer(logg *logger.Logger, panics panicRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &headerTracker{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				ctx := r.Context()
				route := routeLabel(r)
				err := fmt.Errorf("panic in %s %s: %v", r.Method, route, rec)
				if panics != nil {
					panics.IncPanic(route)
				}
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"route": route, "stack": string(debug.Stack())})
					logg.Error(ctx, "panic.recovered", err)
				}
				if tracked.wroteHeader {
					// the client already has a status line; nothing more to send
					return
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeInternal, ""))
			}()
			next.ServeHTTP(tracked, r)
		})
	}
}

type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}
