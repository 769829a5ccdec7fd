package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubProducts struct {
	products.Service
	listed int
}

func (s *stubProducts) ListProducts(context.Context, products.ListProductsInput) (*products.ProductListResult, error) {
	s.listed++
	return &products.ProductListResult{Products: []products.ProductDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: config.AppEnvDev},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 30},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, productsSvc products.Service, gatherer prometheus.Gatherer, observer requestObserver) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Config:    testConfig(),
		Gatherer:  gatherer,
		Observer:  observer,
		Sessions:  stubSessions{},
		Readiness: map[string]controllers.Pinger{"database": stubPinger{}, "redis": stubPinger{}},
		Products:  productsSvc,
	})
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubProducts{}, nil, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if got := rec.Header().Get("X-Storefront-Env"); got != config.AppEnvDev {
			t.Fatalf("%s: expected env header, got %q", path, got)
		}
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	svc := &stubProducts{}
	router := newTestRouter(t, svc, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?sort=rating", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.listed != 1 {
		t.Fatalf("expected list to be called once, got %d", svc.listed)
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Fatal("expected success envelope")
	}
}

func TestCartRequiresToken(t *testing.T) {
	router := newTestRouter(t, &stubProducts{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminRoutesRejectShoppers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, &stubProducts{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleUser))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminRoutesValidatePayload(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, &stubProducts{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"title":""}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpointRecordsRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	router := newTestRouter(t, &stubProducts{}, reg, httpMetrics)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/api/v1/products"`) {
		t.Fatalf("expected route label in metrics output:\n%s", rec.Body.String())
	}
}

func TestMetricsEndpointAbsentWithoutGatherer(t *testing.T) {
	router := newTestRouter(t, &stubProducts{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
