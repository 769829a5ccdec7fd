// Package requestid carries the X-Request-Id of an API call through the
// context so it can follow an order into its outbox events.
package requestid

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Header is the HTTP header clients and proxies use to correlate calls.
const Header = "X-Request-Id"

var valid = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

type ctxKey struct{}

// New returns a fresh request id.
func New() string {
	return uuid.NewString()
}

// Sanitize returns raw trimmed, or "" when it is not safe to echo back or log.
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if !valid.MatchString(raw) {
		return ""
	}
	return raw
}

func With(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the request id stored on ctx, or "".
func From(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
