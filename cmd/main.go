package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/coordinator"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Sync()
	zap.ReplaceGlobals(l)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()

	// Credential store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		l.Fatal("Redis connection failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	l.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Checkout journal
	repo, err := journal.NewRepository(cfg.JournalPath)
	if err != nil {
		l.Fatal("Failed to open journal", zap.String("path", cfg.JournalPath), zap.Error(err))
	}
	defer repo.Close()
	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}
	l.Info("Journal migrations completed")

	client := backend.New(cfg.BackendURL,
		backend.WithLogger(l.Named("backend")),
		backend.WithTimeout(cfg.RequestTimeout),
	)

	payments, err := newPaymentGateway(cfg, l)
	if err != nil {
		l.Fatal("Failed to configure payments", zap.Error(err))
	}

	instanceID := uuid.NewString()

	var sink notify.Sink
	var kafkaSink *notify.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink = notify.NewKafkaSink(cfg.KafkaTopic, instanceID, l.Named("kafka"), cfg.KafkaBrokers...)
		defer kafkaSink.Close()
		sink = kafkaSink
		l.Info("Publishing cart changes to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
			zap.String("instance_id", instanceID))
	}

	sessions := session.NewManager(session.Deps{
		Backend:     client,
		Payments:    payments,
		Credentials: credentials.NewRedisStore(redisClient, cfg.SessionTTL),
		Journal:     repo,
		Sink:        sink,
		Logger:      l,
	}, session.Options{
		FinalizeStatus: cfg.FinalizeStatus,
		SuccessDelay:   cfg.SuccessRedirectDelay,
		IdleTimeout:    cfg.SessionTTL,
	})
	defer sessions.Close()

	var wg sync.WaitGroup
	workersCtx, workersCancel := context.WithCancel(context.Background())
	defer workersCancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.Run(workersCtx, cfg.SessionSweepInterval)
	}()

	// Cart changes made through other instances
	if kafkaSink != nil {
		listener := notify.NewKafkaListener(cfg.KafkaTopic, instanceID, sessions.Deliver, l.Named("kafka"), cfg.KafkaBrokers...)
		defer listener.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(workersCtx)
		}()
	}

	handler := h.NewHandler(sessions, client, client, cfg.RequestTimeout, l)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(handler, l, cfg.RequestTimeout+5*time.Second),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info("Storefront starting", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
	}

	workersCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
	case <-shutdownCtx.Done():
		l.Warn("background workers did not stop in time")
	}

	l.Info("server exited")
}

func newPaymentGateway(cfg *config.Config, l *zap.Logger) (coordinator.PaymentGateway, error) {
	switch cfg.PaymentProvider {
	case "vnpay", "":
		return payment.NewHTTPGateway(cfg.PaymentServiceURL, cfg.RequestTimeout, l.Named("payment")), nil
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required for the stripe provider")
		}
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeCurrency, cfg.ReturnURL, l.Named("payment")), nil
	default:
		return nil, errors.New("unknown PAYMENT_PROVIDER " + cfg.PaymentProvider)
	}
}
