package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-funnel/internal/config"
	"github.com/xavierca1/ligue-funnel/internal/infra/database"
	"github.com/xavierca1/ligue-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-funnel/internal/infra/integration/mercadopago"
	"github.com/xavierca1/ligue-funnel/internal/infra/integration/pushinpay"
	"github.com/xavierca1/ligue-funnel/internal/infra/integration/telegram"
	"github.com/xavierca1/ligue-funnel/internal/infra/lock"
	"github.com/xavierca1/ligue-funnel/internal/infra/mail"
	"github.com/xavierca1/ligue-funnel/internal/infra/queue"
	"github.com/xavierca1/ligue-funnel/internal/infra/worker"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

// paymentProvider é o gateway que também sabe consultar o status de uma cobrança.
type paymentProvider interface {
	usecase.PaymentGateway
	usecase.ChargeStatusChecker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ [CONFIG] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Falha ao conectar no banco: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// 1. Repositórios
	botRepo := database.NewBotRepository(db)
	adminRepo := database.NewAdminRepository(db)
	planRepo := database.NewPlanRepository(db)
	flowRepo := database.NewFlowRepository(db)
	bumpRepo := database.NewOrderBumpRepository(db)
	leadRepo := database.NewLeadRepository(db)
	orderRepo := database.NewOrderRepository(db)
	campaignRepo := database.NewCampaignRepository(db)

	// 2. Gateways e Adapters
	messenger := telegram.NewClient(cfg.TelegramAPIURL)

	gateway, err := newPaymentProvider(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	var notifier usecase.OperatorNotifier
	if cfg.MailEnabled() {
		notifier = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.OperatorEmail)
	}

	var (
		locker usecase.Locker = lock.NewLocalLocker()
		rdb    *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
	}

	var rabbitMQ *queue.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer rabbitMQ.Close()
	}

	// 3. UseCases
	expiry := usecase.NewExpiryResolver(planRepo)
	tracker := usecase.NewProgressTracker()

	provisioner := usecase.NewAccessProvisioner(orderRepo, botRepo, bumpRepo, messenger, notifier)
	deliver := middleware.InstrumentGranter(provisioner)

	checkout := usecase.NewCheckoutOrderManager(orderRepo, planRepo, leadRepo, gateway, locker)

	repos := usecase.FunnelRepos{
		Bots:      botRepo,
		Leads:     leadRepo,
		Orders:    orderRepo,
		Plans:     planRepo,
		Flows:     flowRepo,
		Campaigns: campaignRepo,
		Bumps:     bumpRepo,
	}

	var (
		granter   usecase.AccessGranter = deliver
		scheduler usecase.StepScheduler
		timers    *worker.TimerScheduler
	)
	if rabbitMQ != nil {
		producer := queue.NewProducer(rabbitMQ.Ch)
		granter, scheduler = producer, producer
	} else {
		timers = worker.NewTimerScheduler()
		defer timers.Stop()
		scheduler = timers
	}

	funnel := usecase.NewFunnelUseCase(repos, checkout, messenger, scheduler, tracker)
	if timers != nil {
		timers.Bind(funnel)
	}

	reconciler := usecase.NewPaymentReconciler(orderRepo, expiry, granter)
	reconciler.Checker = gateway

	sweeper := usecase.NewAccessLifecycleSweeper(orderRepo, botRepo, adminRepo, messenger)
	gatekeeper := usecase.NewChannelGatekeeper(orderRepo, adminRepo, expiry, messenger)
	segmenter := usecase.NewAudienceSegmenter(leadRepo, orderRepo)

	campaigns := usecase.NewCampaignDispatcher(botRepo, planRepo, campaignRepo, segmenter, messenger, tracker, cfg.CampaignRatePerSecond)
	campaigns.OnDelivery = middleware.RecordCampaignDelivery

	// 4. Workers
	if rabbitMQ != nil {
		consumer := queue.NewWorker(rabbitMQ.Ch, deliver, funnel)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Printf("❌ [WORKER] %v", err)
				stop()
			}
		}()
	}

	sweepWorker := worker.NewSweeperWorker(sweeper, cfg.SweepInterval)
	sweepWorker.OnResult = func(res usecase.SweepResult) {
		middleware.RecordRevocations("sweeper", res.Revoked)
	}
	go sweepWorker.Start(ctx)

	// 5. Handlers
	h := routes{
		Telegram: handlers.NewTelegramHandler(funnel, gatekeeper),
		Webhook:  handlers.NewWebhookHandler(reconciler),
		Admin: &handlers.AdminHandler{
			Sweeper:       sweeper,
			Campaigns:     campaigns,
			Segmenter:     segmenter,
			BotRepo:       botRepo,
			Registrar:     messenger,
			PublicBaseURL: cfg.PublicBaseURL,
		},
		Health: handlers.NewHealthHandler(db, healthChecks(rdb, rabbitMQ)),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(h, cfg.AdminAPIKey, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🔥 Server Funnel rodando na porta %s (pagamentos: %s)", cfg.Port, cfg.PaymentProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("⚠️ Encerrando...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Shutdown: %v", err)
	}
}

func newPaymentProvider(cfg *config.Config) (paymentProvider, error) {
	if cfg.PaymentProvider == config.ProviderMercadoPago {
		return mercadopago.NewGateway(cfg.MercadoPagoAccessToken, cfg.PayerEmail, cfg.WebhookURL())
	}
	return pushinpay.NewClient(cfg.PushinPayToken, cfg.PushinPayURL, cfg.WebhookURL()), nil
}

func healthChecks(rdb *redis.Client, mq *queue.RabbitMQ) map[string]handlers.Checker {
	checks := map[string]handlers.Checker{"redis": nil, "rabbitmq": nil}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if mq != nil {
		checks["rabbitmq"] = func(ctx context.Context) error {
			if !mq.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}
