package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
		delete(f.ttls, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(userID, route, key string) string {
	return userID + "|" + route + "|" + key
}

func requestWithPattern(method, url, pattern, userID string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if userID != "" {
		ctx = WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func checkoutRequest(userID, key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/orders", "/api/v1/orders", userID, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Errors struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Errors.Code
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, checkoutRequest("user-1", "", `{"shippingAddress":"1 Main St"}`))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", rec.Code)
		}
	}
	if calls != 2 || len(store.data) != 0 {
		t.Fatalf("expected two untracked calls, got %d calls and %v", calls, store.data)
	}
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(okHandler())

	req := requestWithPattern(http.MethodPost, "/api/v1/auth/login", "/api/v1/auth/login", "", strings.NewReader(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.data) != 0 {
		t.Fatalf("login must not be tracked, got %v", store.data)
	}
}

func TestIdempotencyReplaysPlacedOrder(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderNumber":"ORD-1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("user-1", "abc", `{"shippingAddress":"1 Main St"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if first.Header().Get(ReplayedHeader) != "" {
		t.Fatalf("first response must not be marked replayed")
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, checkoutRequest("user-1", "abc", `{"shippingAddress":"1 Main St"}`))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", replay.Code)
	}
	if replay.Header().Get(ReplayedHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type preserved")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"orderNumber":"ORD-1"}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("checkout ran %d times, expected 1", calls)
	}
	if ttl := store.ttls["user-1|POST /api/v1/orders|abc"]; ttl != 7*24*time.Hour {
		t.Fatalf("expected checkout replay window of 7 days, got %v", ttl)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("user-1", "shared", `{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("user-2", "shared", `{}`))

	if calls != 2 || rec.Header().Get(ReplayedHeader) != "" {
		t.Fatalf("second shopper must place their own order, calls=%d", calls)
	}
}

func TestIdempotencyRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var duplicate *httptest.ResponseRecorder
	var handler http.Handler
	calls := 0
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// a double submit arrives before the first checkout finishes
			duplicate = httptest.NewRecorder()
			handler.ServeHTTP(duplicate, checkoutRequest("user-1", "abc", `{}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("user-1", "abc", `{}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected first checkout to succeed, got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("duplicate reached checkout, calls=%d", calls)
	}
	if duplicate.Code != http.StatusConflict || errorCode(t, duplicate) != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected 409 for in-flight duplicate, got %d %s", duplicate.Code, duplicate.Body.String())
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("user-1", "abc", `{}`))
	if len(store.data) != 0 {
		t.Fatalf("failed checkout must release its key, got %v", store.data)
	}

	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, checkoutRequest("user-1", "abc", `{}`))
	if retry.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to run checkout again, got %d calls=%d", retry.Code, calls)
	}
}

func TestIdempotencyStoresClientErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("user-1", "abc", `{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("user-1", "abc", `{}`))

	if rec.Code != http.StatusBadRequest || calls != 1 {
		t.Fatalf("expected stored 400 replay, got %d calls=%d", rec.Code, calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(okHandler())

	register := func(body string) *httptest.ResponseRecorder {
		req := requestWithPattern(http.MethodPost, "/api/v1/auth/register", "/api/v1/auth/register", "", strings.NewReader(body))
		req.Header.Set(IdempotencyKeyHeader, "xyz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	register(`{"email":"a@example.com"}`)
	rec := register(`{"email":"b@example.com"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, code)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected one stored record, got %v", store.data)
	}
}
