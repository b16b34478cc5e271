package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgastelum/freshmart-backend/api/controllers"
	"github.com/mgastelum/freshmart-backend/api/middleware"
	authsvc "github.com/mgastelum/freshmart-backend/internal/auth"
	captchasvc "github.com/mgastelum/freshmart-backend/internal/captcha"
	cartsvc "github.com/mgastelum/freshmart-backend/internal/cart"
	catalogsvc "github.com/mgastelum/freshmart-backend/internal/catalog"
	checkoutsvc "github.com/mgastelum/freshmart-backend/internal/checkout"
	ordersvc "github.com/mgastelum/freshmart-backend/internal/orders"
	"github.com/mgastelum/freshmart-backend/pkg/auth/session"
	"github.com/mgastelum/freshmart-backend/pkg/config"
	"github.com/mgastelum/freshmart-backend/pkg/db"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	"github.com/mgastelum/freshmart-backend/pkg/logger"
	"github.com/mgastelum/freshmart-backend/pkg/metrics"
	"github.com/mgastelum/freshmart-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionManager session.AccessSessionChecker
	AuthService    authsvc.Service
	CaptchaService captchasvc.Service
	CatalogService catalogsvc.Service
	CartService    cartsvc.Service
	CheckoutSvc    checkoutsvc.Service
	OrdersService  ordersvc.Service
	HTTPMetrics    *metrics.HTTPMetrics
	PromGatherer   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.SessionID(logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, deps.CartService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).
			Post("/register", controllers.AuthRegister(deps.AuthService, deps.CartService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	r.Post("/api/v1/captcha", controllers.CaptchaNew(deps.CaptchaService, logg))

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.CatalogService, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.CatalogService, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.SessionID(logg))
		r.Get("/", controllers.CartFetch(deps.CartService, logg))
		r.Get("/summary", controllers.CartSummary(deps.CartService, logg))
		r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
		r.Patch("/items/{productId}", controllers.CartUpdateItem(deps.CartService, logg))
		r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.CartService, logg))
		r.Delete("/", controllers.CartClear(deps.CartService, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Post("/api/v1/checkout", controllers.Checkout(deps.CheckoutSvc, logg))
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderId}/status", controllers.OrderChangeStatus(deps.OrdersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.MemberRoleManager), logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProductList(deps.CatalogService, logg))
			r.Post("/", controllers.AdminProductCreate(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(deps.CatalogService, logg))
			r.Delete("/{productId}", controllers.AdminProductDeactivate(deps.CatalogService, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderId}/status", controllers.OrderChangeStatus(deps.OrdersService, logg))
		})
	})

	return r
}
