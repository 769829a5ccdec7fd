package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/newsletter"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type rateLimiter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(policy, dimension, value string) string
}

type requestObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
	IncPanic(route string)
}

// Dependencies bundles everything the HTTP surface needs. Optional
// infrastructure (rate limiter, idempotency store, observer, gatherer) may be nil.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Observer requestObserver

	Sessions    session.AccessSessionChecker
	RateLimiter rateLimiter
	Idempotency pkgredis.IdempotencyStore
	Readiness   map[string]controllers.Pinger

	Auth       auth.Service
	Products   products.Service
	Categories categories.Service
	Cart       cart.Service
	Checkout   checkout.Service
	Orders     orders.Service
	Reviews    reviews.Service
	Wishlist   wishlist.Service
	Newsletter newsletter.Service
}

func NewRouter(d Dependencies) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, d.Observer),
		middleware.Recoverer(logg, d.Observer),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	limits := cfg.AuthRateLimit
	loginThrottle := middleware.AuthThrottle{Policy: "login", Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit}
	registerThrottle := middleware.AuthThrottle{Policy: "register", Window: limits.RegisterWindow, PerIP: limits.RegisterIPLimit, PerEmail: limits.RegisterEmailLimit}

	authenticate := middleware.Auth(cfg.JWT, d.Sessions, logg)
	requireAdmin := middleware.RequireRole(string(enums.UserRoleAdmin), logg)
	idempotent := middleware.Idempotency(d.Idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Readiness))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginThrottle, d.RateLimiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(registerThrottle, d.RateLimiter, logg), idempotent).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(authenticate).Get("/me", controllers.AuthMe(d.Auth, logg))
			r.With(authenticate).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Products, logg))
		r.Get("/categories", controllers.CategoryList(d.Categories, logg))
		r.Post("/newsletter", controllers.NewsletterSubscribe(d.Newsletter, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate, idempotent)

			r.Post("/products/{productId}/reviews", controllers.ReviewCreate(d.Reviews, logg))

			r.Get("/cart", controllers.CartFetch(d.Cart, logg))
			r.Post("/cart", controllers.CartAddItem(d.Cart, logg))
			r.Put("/cart", controllers.CartUpdateItem(d.Cart, logg))
			r.Delete("/cart", controllers.CartRemoveItem(d.Cart, logg))

			r.Get("/orders", controllers.OrderList(d.Orders, logg))
			r.Post("/orders", controllers.OrderCreate(d.Checkout, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(d.Orders, logg))
			r.Put("/orders/{orderId}", controllers.OrderUpdateStatus(d.Orders, logg))

			r.Get("/wishlist", controllers.WishlistFetch(d.Wishlist, logg))
			r.Post("/wishlist", controllers.WishlistAdd(d.Wishlist, logg))
			r.Delete("/wishlist/{productId}", controllers.WishlistRemove(d.Wishlist, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, requireAdmin)

			r.Post("/products", controllers.ProductCreate(d.Products, logg))
			r.Put("/products/{productId}", controllers.ProductUpdate(d.Products, logg))
			r.Delete("/products/{productId}", controllers.ProductDelete(d.Products, logg))
			r.Post("/categories", controllers.CategoryCreate(d.Categories, logg))
		})
	})

	return r
}
