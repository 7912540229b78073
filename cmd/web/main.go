package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"sslrelay.com/app/internal/config"
	"sslrelay.com/app/internal/database"
	apphttp "sslrelay.com/app/internal/http"
	"sslrelay.com/app/internal/modules/payments"
	"sslrelay.com/app/internal/modules/payments/sslcommerz"
	"sslrelay.com/app/internal/storage"
)

// revision is stamped by `mage build`.
var revision = "dev"

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	store, err := openStore(cfg.DB, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	client := sslcommerz.New(sslcommerz.Config{
		StoreID:       cfg.Processor.StoreID,
		StorePassword: cfg.Processor.StorePassword,
		Live:          cfg.Processor.Live,
		BaseURL:       cfg.Processor.BaseURL,
		Timeout:       cfg.Processor.Timeout,
	})
	coord := payments.NewCoordinator(store, sslcommerz.NewInstrumented("sslcommerz", client), cfg.Processor.Timeout)
	coord.SetLogger(logger)

	archive, err := storage.FromConfig(context.Background(), cfg.Archive)
	if err != nil {
		log.Fatalf("failed to init callback archive: %v", err)
	}
	logger.Info("callback archive ready", "driver", archive.Driver)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:      logger,
		Payments:    coord,
		FrontendURL: cfg.FrontendURL,
		Archive:     archive.Storage,
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.Processor.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "revision", revision, "port", cfg.Port, "live", cfg.Processor.Live, "store", cfg.DB.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited")
}

func openStore(cfg config.DB, logger *slog.Logger) (payments.Store, error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory transaction store, records are lost on restart")
		return payments.NewMemoryStore(), nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := payments.Migrate(db); err != nil {
		return nil, err
	}
	return payments.NewGormStore(db), nil
}

func logLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
