package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-match-service/config"
	"quiz-match-service/handlers"
	"quiz-match-service/middleware"
	"quiz-match-service/services"
	"quiz-match-service/storage"
	"quiz-match-service/utils"
	"quiz-match-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Access-Token, X-User-ID, X-User-Name",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	db, err := storage.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	catalog := storage.NewCatalog(db)
	if cfg.SeedCatalog {
		if _, err := storage.SeedFlashcards(ctx, catalog); err != nil {
			log.Fatal("failed to seed flashcards: ", err)
		}
	}
	store := storage.NewMatchStore(db)

	// --- Event sinks: in-process SSE hub, then whatever brokers are configured ---
	hub := services.NewEventHub()
	notifiers := services.MultiNotifier{hub, services.LogNotifier{}}

	if cfg.Redis.Addr != "" {
		rdb, err := utils.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Printf("⚠️ Redis disabled: %v", err)
		} else {
			defer rdb.Close()
			notifiers = append(notifiers, services.NewRedisNotifier(rdb))
		}
	}

	if cfg.MQ.URL != "" {
		conn, ch, err := utils.DialAMQP(cfg.MQ)
		if err != nil {
			log.Printf("⚠️ MQ disabled: %v", err)
		} else {
			defer conn.Close()
			mq, err := services.NewAMQPNotifier(ch, cfg.MQ.QueueName,
				services.EventMatchCreated, services.EventGameStarted, services.EventMatchEnded)
			if err != nil {
				log.Printf("⚠️ MQ disabled: %v", err)
			} else {
				notifiers = append(notifiers, mq)
			}
		}
	}

	var archiver services.ResultArchiver
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Archiver(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		archiver = r2
	}

	aggregator := services.NewResultAggregator(store, archiver)
	matchHandlers := &handlers.MatchHandlers{
		Matches:   services.NewMatchService(store, catalog, aggregator, notifiers, cfg.DefaultQuestions),
		Lifecycle: services.NewMatchStateMachine(store, aggregator, notifiers),
		Arbiter:   services.NewAnswerArbiter(store, services.LenientMatcher{}, notifiers),
		Hub:       hub,
	}

	backfill := services.NewResultBackfill(store, aggregator, cfg.BackfillInterval)
	sched, err := backfill.Start(ctx)
	if err != nil {
		log.Fatal("failed to start result backfill: ", err)
	}

	if cfg.Catalog.SyncURL != "" {
		workers.NewCatalogSyncWorker(catalog, cfg.Catalog.SyncURL, cfg.Catalog.SyncPath,
			cfg.GameServiceToken, cfg.Catalog.SyncInterval).Start(ctx)
	}

	handlers.SetupMatchRoutes(app, matchHandlers, middleware.NewTokenVerifier(cfg.JWTSecret))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Result backfill running (every %s)", backfill.Interval)
	log.Println("✅ GatewayAuthMiddleware enforced globally, all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", cfg.Origins())

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Printf("⚠️ Scheduler shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
}
