package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-funnel/internal/infra/http/middleware"
)

type routes struct {
	Telegram *handlers.TelegramHandler
	Webhook  *handlers.WebhookHandler
	Admin    *handlers.AdminHandler
	Health   *handlers.HealthHandler
}

func newRouter(h routes, adminKey string, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.AdminKeyHeader},
	}))

	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhook/telegram/{token}", h.Telegram.Handle)
	r.Post("/webhook/pix", h.Webhook.Handle)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AdminKey(adminKey))

		r.Post("/sweeper/run", h.Admin.RunSweeper)

		r.Post("/remarketing/send", h.Admin.SendCampaign)
		r.Get("/remarketing/status/{campaignId}", h.Admin.CampaignStatus)
		r.Get("/remarketing/history/{botId}", h.Admin.CampaignHistory)
		r.Delete("/remarketing/history/{id}", h.Admin.DeleteHistory)
		r.Post("/remarketing/send-individual", h.Admin.SendIndividual)

		r.Get("/bots/{botId}/audience/{segment}", h.Admin.Audience)
		r.Post("/bots/{botId}/webhook", h.Admin.RegisterWebhook)
	})

	return r
}
