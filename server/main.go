package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seatkeeper/api/routes"
	"seatkeeper/internal/ledger"
	"seatkeeper/internal/payments"
	"seatkeeper/internal/seats"
	"seatkeeper/internal/shared/config"
	"seatkeeper/internal/shared/database"
	"seatkeeper/internal/shared/middleware"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"
	"seatkeeper/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to initialize databases", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	seatStore, err := buildStore(cfg, db)
	if err != nil {
		appLogger.Error("Failed to initialize seat store", slog.Any("error", err))
		os.Exit(1)
	}

	// Transition ledger
	var ledgerRepo ledger.Repository
	seatOpts := seats.DefaultOptions()
	seatOpts.LockTTL = cfg.Seats.LockTTL
	seatOpts.ReclaimExpired = cfg.Seats.ReclaimExpired
	seatOpts.Logger = appLogger
	if db.PostgreSQL != nil {
		ledgerRepo = ledger.NewRepository(db.PostgreSQL)
		seatOpts.Recorder = ledger.NewRecorder(ledgerRepo)
		appLogger.Info("Seat transition ledger enabled")
	}

	seatRepo := seats.NewRepository(seatStore)
	seatService := seats.NewService(seatRepo, seatOpts)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Orphaned hold sweeper
	if cfg.Seats.SweepEnabled {
		sweeper := seats.NewSweeper(seatRepo, seatOpts, cfg.Seats.SweepInterval)
		if err := sweeper.Start(rootCtx); err != nil {
			appLogger.Error("Failed to start seat sweeper", slog.Any("error", err))
		} else {
			defer func() {
				if err := sweeper.Stop(); err != nil {
					appLogger.Error("Error stopping seat sweeper", slog.Any("error", err))
				}
			}()
		}
	}

	// Payment result ingress
	ingress, closeIngress, err := buildIngress(cfg, seatService, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize payment ingress", slog.Any("error", err))
		os.Exit(1)
	}
	if ingress != nil {
		if err := ingress.Start(rootCtx); err != nil {
			appLogger.Error("Failed to start payment ingress", slog.Any("error", err))
			os.Exit(1)
		}
		defer closeIngress()
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, cfg.RateLimit)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("lock_requests", cfg.RateLimit.LockRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	deps := routes.Dependencies{
		Store:  seatStore,
		Seats:  seatService,
		Ledger: ledgerRepo,
		Logger: appLogger,
	}
	if ingress != nil {
		deps.Ingress = ingress
	}
	router := setupRouter(cfg, db, deps, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.String("seat_store", cfg.Seats.Store),
			slog.String("payment_ingress", cfg.Payments.Ingress),
			slog.Bool("ledger", ledgerRepo != nil),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, deps routes.Dependencies, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := deps.Logger

	engine.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter := routes.NewRouter(cfg, db, deps)
	appRouter.SetupRoutes(engine)

	return engine
}

// buildStore selects the seat store backend
func buildStore(cfg *config.Config, db *database.DB) (store.Store, error) {
	switch cfg.Seats.Store {
	case "redis":
		if db.Redis == nil {
			return nil, fmt.Errorf("redis seat store selected but no redis connection is open")
		}
		return store.NewRedisStore(db.Redis), nil
	case "memory":
		logger.GetDefault().Warn("Using in-process seat store; locks are not shared between instances")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown seat store %q", cfg.Seats.Store)
	}
}

// buildIngress creates the configured payment consumer. The returned close
// function stops the consumer and any dead letter producer.
func buildIngress(cfg *config.Config, reconciler payments.SeatReconciler, log *logger.Logger) (payments.PaymentConsumer, func(), error) {
	kc := cfg.Payments.Kafka
	processor := payments.NewProcessor(reconciler, payments.ProcessorConfig{
		MaxRetries:   kc.MaxRetries,
		RetryBackoff: kc.RetryBackoff,
	}, log)

	switch cfg.Payments.Ingress {
	case "none", "":
		log.Info("Payment ingress disabled")
		return nil, func() {}, nil

	case "rabbitmq":
		consumer := payments.NewRabbitPaymentConsumer(payments.RabbitConsumerConfig{
			URL:      cfg.Payments.Rabbit.URL,
			Queue:    cfg.Payments.Rabbit.Queue,
			Prefetch: cfg.Payments.Rabbit.Prefetch,
		}, processor, log)
		return consumer, func() {
			if err := consumer.Stop(); err != nil {
				log.Error("Error stopping RabbitMQ consumer", slog.Any("error", err))
			}
		}, nil

	case "kafka":
		var deadLetters payments.DeadLetterPublisher
		var producer *payments.KafkaPaymentProducer
		if kc.DeadLetterTopic != "" {
			pcfg := payments.DefaultKafkaProducerConfig()
			pcfg.Brokers = kc.Brokers
			pcfg.ResultTopic = kc.Topic
			pcfg.DeadLetterTopic = kc.DeadLetterTopic
			p, err := payments.NewKafkaPaymentProducer(pcfg, log)
			if err != nil {
				return nil, nil, fmt.Errorf("dead letter producer: %w", err)
			}
			producer = p
			deadLetters = p
		}

		ccfg := payments.DefaultConsumerConfig()
		ccfg.Brokers = kc.Brokers
		ccfg.GroupID = kc.GroupID
		ccfg.Topics = []string{kc.Topic}
		ccfg.Workers = kc.Workers
		ccfg.OffsetOldest = kc.OffsetOldest

		consumer, err := payments.NewKafkaPaymentConsumer(ccfg, processor, deadLetters, log)
		if err != nil {
			if producer != nil {
				_ = producer.Close()
			}
			return nil, nil, err
		}
		return consumer, func() {
			if err := consumer.Stop(); err != nil {
				log.Error("Error stopping Kafka consumer", slog.Any("error", err))
			}
			if producer != nil {
				if err := producer.Close(); err != nil {
					log.Error("Error closing dead letter producer", slog.Any("error", err))
				}
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown payment ingress %q", cfg.Payments.Ingress)
	}
}
