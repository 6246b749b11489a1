package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rogermolina/residencia-backend/api/controllers"
	webhookcontrollers "github.com/rogermolina/residencia-backend/api/controllers/webhooks"
	"github.com/rogermolina/residencia-backend/api/middleware"
	"github.com/rogermolina/residencia-backend/internal/auth"
	"github.com/rogermolina/residencia-backend/internal/bills"
	"github.com/rogermolina/residencia-backend/internal/payments"
	stripewebhook "github.com/rogermolina/residencia-backend/internal/webhooks/stripe"
	"github.com/rogermolina/residencia-backend/pkg/config"
	"github.com/rogermolina/residencia-backend/pkg/enums"
	"github.com/rogermolina/residencia-backend/pkg/logger"
	"github.com/rogermolina/residencia-backend/pkg/stripe"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       pinger
	RedisPinger    pinger
	Registry       *prometheus.Registry
	AuthService    auth.Service
	BillService    *bills.Service
	PaymentService *payments.Service
	StripeClient   *stripe.Client
	WebhookService *stripewebhook.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.RedisPinger))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.WebhookService, params.StripeClient, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(params.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/bills", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Post("/", controllers.CreateBill(params.BillService, logg))
			r.Get("/", controllers.ListMyBills(params.BillService, logg))
			r.Get("/{billID}/payment-status", controllers.BillPaymentStatus(params.BillService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intents", controllers.CreatePaymentIntent(params.PaymentService, logg))
		})
	})

	return r
}
