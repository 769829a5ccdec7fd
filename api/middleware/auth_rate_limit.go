package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type throttleStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(policy, dimension, value string) string
}

// AuthThrottle caps login or registration attempts per client IP and per
// account email within a fixed window. A zero limit disables that dimension.
type AuthThrottle struct {
	Policy   string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (t AuthThrottle) enabled() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerEmail > 0)
}

// AuthRateLimit rejects requests over either limit with 429 and a Retry-After
// header. Emails are hashed before they reach Redis or the logs.
func AuthRateLimit(throttle AuthThrottle, store throttleStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !throttle.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if throttle.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					if !throttle.admit(ctx, logg, w, store, "ip", ip, throttle.PerIP) {
						return
					}
				}
			}

			if throttle.PerEmail > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := emailFromBody(body); email != "" {
					if !throttle.admit(ctx, logg, w, store, "email", hashEmail(email), throttle.PerEmail) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// admit counts one attempt and writes the rejection when the limit is passed.
func (t AuthThrottle) admit(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store throttleStore, dimension, value string, limit int) bool {
	attempts, err := store.IncrWithTTL(ctx, store.RateLimitKey(t.Policy, dimension, value), t.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if attempts <= int64(limit) {
		return true
	}

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    t.Policy,
			"dimension": dimension,
			"key":       value,
			"attempts":  attempts,
			"limit":     limit,
		}), "auth attempt throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts, please try again later"))
	return false
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// emailFromBody reads the email the same way the auth controllers bind it.
func emailFromBody(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return users.NormalizeEmail(payload.Email)
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:12])
}
