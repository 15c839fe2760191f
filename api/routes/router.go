package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sokoyetu/payments-backend/api/controllers"
	"github.com/sokoyetu/payments-backend/api/middleware"
	"github.com/sokoyetu/payments-backend/internal/notifications"
	"github.com/sokoyetu/payments-backend/internal/payments"
	"github.com/sokoyetu/payments-backend/pkg/config"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface depends on. Pingers are
// optional; nil skips the matching readiness check.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Payments      payments.Service
	Notifications notifications.Service
	Metrics       prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.CreatePayment(params.Payments, logg))
			r.Get("/", controllers.ListPayments(params.Payments, logg))
			r.Get("/methods", controllers.PaymentMethods(logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Get("/statistics", controllers.GetStatistics(params.Payments, logg))
			r.Post("/check-phone", controllers.CheckPhone(params.Payments, logg))

			r.Route("/{paymentId}", func(r chi.Router) {
				r.Get("/", controllers.GetPayment(params.Payments, logg))
				r.Post("/verify", controllers.VerifyPayment(params.Payments, logg))
				r.Post("/cancel", controllers.CancelPayment(params.Payments, logg))
				r.Post("/retry", controllers.RetryPayment(params.Payments, logg))
				r.Get("/retry-options", controllers.GetRetryOptions(params.Payments, logg))
				r.Get("/receipt", controllers.GetReceipt(params.Payments, logg))
				r.Get("/timeline", controllers.GetTimeline(params.Payments, logg))
				r.Get("/delivery", controllers.TrackDelivery(params.Payments, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
		})
	})

	return r
}
