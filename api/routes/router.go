package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cmoscoso25/flujosdigitales-api/api/controllers"
	"github.com/cmoscoso25/flujosdigitales-api/api/middleware"
	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	"github.com/cmoscoso25/flujosdigitales-api/internal/dispatch"
	"github.com/cmoscoso25/flujosdigitales-api/internal/orders"
	"github.com/cmoscoso25/flujosdigitales-api/internal/pendingtokens"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/flow"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	ordersService orders.Service,
	confirmService confirmation.Service,
	gateway *flow.Client,
	tracker pendingtokens.Tracker,
	queue *dispatch.Dispatcher,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	createPolicy := middleware.NewRateLimitPolicy(
		"create",
		cfg.RateLimit.CreateWindow,
		cfg.RateLimit.CreateIPLimit,
		cfg.RateLimit.CreateEmailLimit,
	)

	r.Get("/health", controllers.Health())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/flow", func(r chi.Router) {
		r.With(
			middleware.RateLimit(createPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/create", controllers.CreateFlowOrder(ordersService, cfg, logg))

		r.With(middleware.ClientSecret(cfg.ClientAuth.Secret, logg)).
			Post("/confirm", controllers.ConfirmFlowPayment(confirmService, logg))

		// Flow drives the payer's browser back with a POST, but payers
		// also reload and bookmark this page.
		r.HandleFunc("/return", controllers.FlowReturn(gateway, queue, tracker, logg))
	})

	// The gateway's server-to-server callback. It must accept whatever
	// method and shape the provider sends.
	r.HandleFunc("/webhook/flow", controllers.FlowWebhook(queue, logg))

	r.Post("/track/click", controllers.TrackClick(tracker, logg))
	r.Get("/download/{token}", controllers.DownloadProduct(ordersService, cfg.Product.FilePath, logg))

	return r
}
