package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oficinaflow/oficinaflow-backend/api/controllers"
	webhookcontrollers "github.com/oficinaflow/oficinaflow-backend/api/controllers/webhooks"
	"github.com/oficinaflow/oficinaflow-backend/api/middleware"
	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	stripewebhook "github.com/oficinaflow/oficinaflow-backend/internal/webhooks/stripe"
	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
	"github.com/oficinaflow/oficinaflow-backend/pkg/metrics"
	"github.com/oficinaflow/oficinaflow-backend/pkg/redis"
)

// NewRouter wires the public onboarding API. redisP and stripeWebhookGuard are
// nil when redis is not configured.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gatherer prometheus.Gatherer,
	onboardingService controllers.OnboardingService,
	gateway payments.Gateway,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	stripeHandler := webhookcontrollers.StripeWebhook(stripeWebhookService, gateway, nil, webhookMetrics, logg)
	if stripeWebhookGuard != nil {
		stripeHandler = webhookcontrollers.StripeWebhook(stripeWebhookService, gateway, stripeWebhookGuard, webhookMetrics, logg)
	}

	r.Route("/onboarding", func(r chi.Router) {
		r.Post("/register", controllers.OnboardingRegister(onboardingService, logg))
		r.Post("/check-status", controllers.OnboardingCheckStatus(onboardingService, logg))
		r.Post("/checkout", controllers.OnboardingCheckout(onboardingService, logg))
		r.Post("/webhooks/stripe", stripeHandler)
	})

	return r
}
