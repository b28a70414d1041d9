package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bookiovoice/config"
	"bookiovoice/cron"
	"bookiovoice/handlers"
	"bookiovoice/metrics"
	"bookiovoice/middleware"
	"bookiovoice/routes"
	"bookiovoice/services/assistant"
	"bookiovoice/services/availability"
	"bookiovoice/services/bookio"
	"bookiovoice/services/catalog"
	"bookiovoice/services/requests"
	"bookiovoice/services/voice"
	"bookiovoice/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	logger := utils.InitializeLogger(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	// Upstream client. Slot data always goes to the network.
	client := bookio.NewClient(bookio.Options{
		BaseURL:    cfg.BookioBaseURL,
		Facility:   cfg.BookioFacility,
		Lang:       cfg.BookioLang,
		Timeout:    cfg.BookioTimeout,
		RatePerSec: cfg.BookioRatePerSec,
		Burst:      cfg.BookioBurst,
	}, logger.Named("bookio"))

	// Catalog cache with the optional Redis tier.
	cacheOpts := []catalog.Option{catalog.WithTTL(cfg.CatalogTTL)}
	cacheClient := utils.NewCacheClient(cfg, logger)
	if cacheClient != nil {
		cacheOpts = append(cacheOpts, catalog.WithStore(catalog.NewRedisStore(cacheClient, cfg.BookioFacility, 0)))
	}
	catalogCache := catalog.New(client, logger.Named("catalog"), cacheOpts...)
	go catalogCache.Warm(context.Background(), cfg.PopularCategories)
	refresh, err := cron.StartCatalogRefresh(cfg.CatalogRefresh, cfg.Location(), catalogCache, cfg.PopularCategories, cfg.WebhookTimeout, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("main: catalog refresh", zap.Error(err))
	}

	// Booking request hand-off: asynq queue plus worker when Redis is up.
	var (
		queue       requests.Queue = requests.NewLogQueue(logger.Named("requests"))
		asynqClient *asynq.Client
		worker      *cron.Worker
	)
	if queueClient := utils.NewQueueClient(cfg, logger); queueClient != nil {
		asynqClient = asynq.NewClient(cron.RedisOpt(cfg))
		queue = requests.NewTaskQueue(asynqClient, logger.Named("requests"))
		worker = cron.StartBookingRequestWorker(cfg, requests.NewRedisInbox(queueClient), logger.Named("worker"))
	}

	composer := voice.Composer{SalonName: cfg.SalonName, Phone: cfg.SalonPhone}
	hours := make([]voice.DayHours, 0, len(cfg.OpeningHours))
	for _, h := range cfg.OpeningHours {
		hours = append(hours, voice.DayHours{Day: h.Day, Hours: h.Hours})
	}
	asst := assistant.New(assistant.Deps{
		Catalog:  catalogCache,
		Slots:    availability.NewScanner(client, logger.Named("scanner"), cfg.ScanMaxDays),
		Booker:   client,
		Requests: queue,
		Voice:    composer,
	}, assistant.Options{
		Locations:       cfg.Locations,
		DefaultWorkerID: cfg.DefaultWorkerID,
		OpeningHours:    hours,
		OverviewDays:    cfg.OverviewDays,
		Location:        cfg.Location(),
	}, logger.Named("assistant"))

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	health := utils.NewHealthMonitor(cacheClient, func(ctx context.Context) error {
		_, err := client.FetchCategories(ctx)
		return err
	})
	health.Start(monitorCtx, time.Minute)

	// Create the Gin router.
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(utils.ErrorHandler(composer.Apology()))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, composer.Apology()))
	router.Use(middleware.Timeout(cfg.WebhookTimeout))

	webhook := handlers.NewWebhookHandler(asst, composer)
	handlerBundle := &handlers.HandlerBundle{
		ElevenLabsHandler:     webhook.ElevenLabs,
		ElevenLabsTextHandler: webhook.ElevenLabsText,
		ToolHandler:           webhook.Tool,
		HealthHandler:         handlers.Health(health),
		MetricsHandler:        gin.WrapH(promhttp.Handler()),
	}
	routes.RegisterRoutes(router, handlerBundle, cfg.WebhookSecret)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WebhookTimeout + 5*time.Second,
	}

	logger.Info("Starting server",
		zap.String("addr", srv.Addr),
		zap.String("facility", cfg.BookioFacility),
		zap.Int("scanMaxDays", cfg.ScanMaxDays))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.WebhookTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	refresh.Stop()
	worker.Shutdown()
	if asynqClient != nil {
		_ = asynqClient.Close()
	}
	logger.Info("main: server stopped gracefully")
}
