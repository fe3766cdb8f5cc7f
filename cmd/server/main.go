package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/config"
	appmodel "github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	apprepository "github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	appserver "github.com/ClipsonBusiness/tracking-system-sub000/internal/app/server"
	appservice "github.com/ClipsonBusiness/tracking-system-sub000/internal/app/service"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/geo"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/logger"
	infraNATS "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/nats"
	infraPostgres "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/postgres"
	infraPrometheus "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/prometheus"
	infraRedis "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "tracking-system",
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("environment", cfg.App.Environment),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Tenant{},
		&appmodel.Campaign{},
		&appmodel.Link{},
		&appmodel.Click{},
		&appmodel.Conversion{},
		&appmodel.WebhookEvent{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	idGen, err := ids.New(cfg.App.NodeID)
	if err != nil {
		log.Fatal("Failed to initialise id generator", zap.Error(err))
	}

	tenantRepo := apprepository.NewTenantRepository(gormDB)
	linkRepo := apprepository.NewLinkRepository(gormDB)
	clickRepo := apprepository.NewClickRepository(gormDB)
	conversionRepo := apprepository.NewConversionRepository(gormDB)
	webhookEventRepo := apprepository.NewWebhookEventRepository(gormDB)
	orphanRepo := apprepository.NewOrphanRepository(pool)

	slugs, err := linkRepo.AllSlugs(ctx)
	if err != nil {
		log.Fatal("Failed to load slugs for the negative cache", zap.Error(err))
	}
	log.Info("Seeded slug filter", zap.Int("slugs", len(slugs)))

	resolver := appservice.NewResolverService(tenantRepo, linkRepo, slugs, log)

	clicks := appservice.NewClickService(
		clickRepo,
		geo.NewLocator(cfg.Geo),
		appservice.NewIPHasher(cfg.Clicks.IPHashSecret),
		idGen,
		log,
	)

	webhooks := appservice.NewWebhookService(
		tenantRepo,
		webhookEventRepo,
		idGen,
		cfg.Webhook.DefaultSecret,
		time.Duration(cfg.Webhook.ToleranceSeconds)*time.Second,
		log,
	)

	publisher := appservice.NewConversionPublisher(js)
	attribution := appservice.NewAttributionService(tenantRepo, linkRepo, conversionRepo, publisher, idGen, log)
	orphans := appservice.NewOrphanService(orphanRepo, conversionRepo, clickRepo, log)
	links := appservice.NewLinkService(linkRepo, idGen, resolver)

	consumer := appservice.NewConversionConsumer(js, redisClient, log)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start conversion stats consumer", zap.Error(err))
	}

	backlogChecker := appservice.NewWebhookBacklogChecker(log, webhookEventRepo, time.Hour)
	backlogChecker.Start()
	defer backlogChecker.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:        log,
		Redis:         redisClient,
		Resolver:      resolver,
		Clicks:        clicks,
		Webhooks:      webhooks,
		Attribution:   attribution,
		Orphans:       orphans,
		Links:         links,
		Tenants:       tenantRepo,
		IDs:           idGen,
		CookieDomain:  cfg.App.CookieDomain,
		SecureCookies: cfg.App.Production(),
	})

	if err := server.Listen(cfg.App.ListenAddr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
