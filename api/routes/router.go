package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shivanand-vn/SVPharma-sub000/api/controllers"
	"github.com/shivanand-vn/SVPharma-sub000/api/middleware"
	internalauth "github.com/shivanand-vn/SVPharma-sub000/internal/auth"
	internalorders "github.com/shivanand-vn/SVPharma-sub000/internal/orders"
	internalpayments "github.com/shivanand-vn/SVPharma-sub000/internal/payments"
	"github.com/shivanand-vn/SVPharma-sub000/internal/wallets"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/config"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/logger"
	pkgredis "github.com/shivanand-vn/SVPharma-sub000/pkg/redis"
)

// Deps carries everything the HTTP layer needs. Optional entries may be nil
// and the affected routes degrade rather than panic.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          *pkgredis.Client
	AuthService    internalauth.Service
	OrdersService  internalorders.Service
	WalletsService wallets.Service
	Payments       internalpayments.Service
	MetricsHandler http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["database"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
	})

	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleCustomer.String(), logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Payments.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrdersCreate(deps.OrdersService, logg))
			r.Get("/", controllers.OrdersList(deps.OrdersService, logg))
			r.Get("/{orderID}", controllers.OrdersGet(deps.OrdersService, logg))
		})

		r.Get("/wallet", controllers.WalletGet(deps.WalletsService, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentsSubmit(deps.Payments, logg))
			r.Get("/", controllers.PaymentsList(deps.Payments, logg))
			r.Post("/{paymentID}/reupload", controllers.PaymentsReupload(deps.Payments, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin.String(), logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Payments.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderID}", controllers.AdminOrderGet(deps.OrdersService, logg))
			r.Post("/{orderID}/status", controllers.AdminOrderTransition(deps.OrdersService, logg))
			r.Post("/{orderID}/returns", controllers.AdminOrderReturn(deps.OrdersService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/offline", controllers.AdminPaymentOffline(deps.Payments, logg))
			r.Post("/{paymentID}/approve", controllers.AdminPaymentApprove(deps.Payments, logg))
			r.Post("/{paymentID}/reject", controllers.AdminPaymentReject(deps.Payments, logg))
		})
	})

	return r
}
