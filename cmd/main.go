package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/auth"
	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/adapter/memory"
	"github.com/YelzhanWeb/foodorder/internal/adapter/paygate"
	"github.com/YelzhanWeb/foodorder/internal/adapter/postgres"
	"github.com/YelzhanWeb/foodorder/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/foodorder/internal/adapter/redis"
	"github.com/YelzhanWeb/foodorder/internal/app"
	"github.com/YelzhanWeb/foodorder/internal/config"

	amqpAdapter "github.com/YelzhanWeb/foodorder/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/foodorder/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "api", "Service mode: api, notification-subscriber")
	port := flag.Int("port", 3000, "HTTP port")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	store := flag.String("store", "postgres", "Persistence backend: postgres, memory")
	prefetch := flag.Int("prefetch", 10, "RabbitMQ prefetch count for the mail queue")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lgr := logger.New(*mode)

	switch *mode {
	case "api":
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("auth.jwt_secret (or JWT_SECRET) is required in api mode")
		}
		runAPI(ctx, cfg, lgr, *store, *port)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, cfg, lgr, *prefetch)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, lgr logger.Logger, store string, port int) {
	var (
		repos app.Repositories
		ext   app.Externals
	)
	ext.Gateway = paygate.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout())

	switch store {
	case "memory":
		s := memory.NewStore()
		s.SeedDemo(time.Now())
		outbox := memory.NewOutbox()

		repos = memoryRepositories(s)
		ext.Publisher = outbox
		ext.Mailer = outbox
		ext.Guard = memory.NewWebhookGuard()

		lgr.Info("store_ready", "Using in-memory store with demo data", "startup", nil)

	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})

		mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mqConn.Close()
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})

		repos = postgresRepositories(db)
		ext.Publisher = rabbitmq.NewPublisher(mqConn)
		ext.Mailer = rabbitmq.NewMailer(mqConn)

		// Redis is optional: without it menu reads hit the database and webhook
		// deduplication relies on the payment row alone.
		if client, err := redis.Connect(ctx, cfg.Redis); err != nil {
			lgr.Error("redis_unavailable", "Continuing without Redis", "startup", map[string]interface{}{
				"addr": cfg.Redis.Addr,
			}, err)
		} else {
			defer client.Close()
			repos.Menu = redis.NewMenuCache(client, repos.Menu, cfg.Redis.MenuTTL(), lgr)
			ext.Guard = redis.NewWebhookGuard(client, cfg.Redis.WebhookTTL())
			lgr.Info("redis_connected", "Connected to Redis", "startup", map[string]interface{}{
				"addr": cfg.Redis.Addr,
			})
		}

	default:
		log.Fatalf("Invalid store: %s", store)
	}

	svc := app.New(repos, ext, cfg, lgr, nil)

	handler := httpAdapter.NewRouter(httpAdapter.Services{
		Accounts:      svc.Accounts,
		Cart:          svc.Cart,
		Promotions:    svc.Promotions,
		Orders:        svc.Orders,
		Payments:      svc.Payments,
		Ledger:        svc.Ledger,
		Notifications: svc.Notifications,
		Auth:          auth.NewJWTProvider(cfg.Auth.JWTSecret, repos.Users),
	}, httpAdapter.RouterConfig{
		Production:    cfg.App.IsProduction(),
		RatePerSecond: cfg.HTTP.RatePerSecond,
		Burst:         cfg.HTTP.Burst,
	}, lgr)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("API started on port %d", port), "startup", map[string]interface{}{
		"port":  port,
		"store": store,
		"env":   cfg.App.Env,
	})

	go func() {
		<-ctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger, prefetch int) {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, prefetch, lgr)
	notifications := amqpAdapter.NewNotificationHandler(lgr)
	mail := amqpAdapter.NewMailHandler(lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"prefetch": prefetch,
	})

	go func() {
		if err := consumer.ConsumeNotifications(ctx, notifications.HandleNotification); err != nil {
			lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
		}
	}()
	go func() {
		if err := consumer.ConsumeMail(ctx, mail.HandleMail); err != nil {
			lgr.Error("consumer_error", "Error consuming mail", "runtime", nil, err)
		}
	}()

	<-ctx.Done()
	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
}

func memoryRepositories(s *memory.Store) app.Repositories {
	return app.Repositories{
		Tx:            memory.NewTxManager(s),
		Users:         memory.NewUserRepository(s),
		Orders:        memory.NewOrderRepository(s),
		Payments:      memory.NewPaymentRepository(s),
		Points:        memory.NewPointRepository(s),
		Referrals:     memory.NewReferralRepository(s),
		Promotions:    memory.NewPromotionRepository(s),
		Notifications: memory.NewNotificationRepository(s),
		Menu:          memory.NewMenuCatalog(s),
	}
}

func postgresRepositories(db postgres.DB) app.Repositories {
	return app.Repositories{
		Tx:            postgres.NewTxManager(db),
		Users:         postgres.NewUserRepository(db),
		Orders:        postgres.NewOrderRepository(db),
		Payments:      postgres.NewPaymentRepository(db),
		Points:        postgres.NewPointRepository(db),
		Referrals:     postgres.NewReferralRepository(db),
		Promotions:    postgres.NewPromotionRepository(db),
		Notifications: postgres.NewNotificationRepository(db),
		Menu:          postgres.NewMenuCatalog(db),
	}
}
