package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mandisetu/mandisetu-backend/api/controllers"
	"github.com/mandisetu/mandisetu-backend/api/handlers"
	"github.com/mandisetu/mandisetu-backend/api/middleware"
	"github.com/mandisetu/mandisetu-backend/internal/groupbuys"
	"github.com/mandisetu/mandisetu-backend/internal/hubs"
	"github.com/mandisetu/mandisetu-backend/internal/notifications"
	"github.com/mandisetu/mandisetu-backend/internal/orders"
	"github.com/mandisetu/mandisetu-backend/pkg/config"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]handlers.Pinger,
	metricsRegistry *prometheus.Registry,
	groupBuysService groupbuys.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
	hubsRepo hubs.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", handlers.HealthLive(cfg))
		r.Get("/ready", handlers.HealthReady(cfg, logg, readiness))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/group-buys", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, string(enums.UserRoleVendor))).
				Get("/", controllers.ListGroupBuys(groupBuysService, logg))
			r.With(middleware.RequireRole(logg, string(enums.UserRoleSupplier))).
				Get("/supplier", controllers.ListSupplierGroupBuys(groupBuysService, logg))
			r.With(middleware.RequireRole(logg, string(enums.UserRoleVendor))).
				Post("/{groupBuyId}/join", controllers.JoinGroupBuy(groupBuysService, logg))
			r.With(middleware.RequireRole(logg, string(enums.UserRoleSupplier))).
				Post("/{groupBuyId}/accept", controllers.AcceptGroupBuy(groupBuysService, logg))
			r.With(middleware.RequireRole(logg, string(enums.UserRoleSupplier), string(enums.UserRoleAdmin))).
				Patch("/{groupBuyId}/status", controllers.UpdateGroupBuyStatus(groupBuysService, logg))
		})

		r.Get("/hubs", controllers.ListHubs(hubsRepo, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
