package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medwise-api/internal/config"
	"medwise-api/internal/events"
	"medwise-api/internal/grpcapi"
	"medwise-api/internal/grpcweb"
	"medwise-api/internal/handler"
	"medwise-api/internal/logger"
	"medwise-api/internal/middleware"
	"medwise-api/internal/service"
	"medwise-api/internal/store"
	"medwise-api/internal/store/memory"
	"medwise-api/internal/store/mongo"
	"medwise-api/internal/store/postgres"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return postgres.New(ctx, cfg.DatabaseURL)
	}
}

// originChecker admits the configured dashboard origins to the websocket.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.Close()
	log.Info("store ready", "driver", cfg.StoreDriver)

	hub := events.NewHub(log, originChecker(cfg.AllowedOrigins))
	go hub.Run(ctx)

	var pub events.Publisher = hub
	if cfg.RabbitMQ.URL != "" {
		broker, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer broker.Close()
		pub = events.Multi{hub, broker}
		log.Info("publishing events to rabbitmq", "queue", cfg.RabbitMQ.Queue)
	}

	authn := service.NewAuthenticator(st, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, log)
	appts := service.NewAppointments(st, pub, log)
	limiter := middleware.NewRateLimiter(ctx, cfg.AuthRateLimit, cfg.AuthRateBurst)

	// grpc
	grpcSrv := grpcapi.NewGRPCServer(grpcapi.NewServer(authn, appts, log), limiter)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		log.Info("grpc server listening", "port", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc server", "error", err)
		}
	}()
	defer grpcSrv.GracefulStop()

	bridge, err := grpcweb.Dial("localhost:"+cfg.GRPCPort, log)
	if err != nil {
		return err
	}
	defer bridge.Close()

	// http
	h := handler.New(handler.Deps{
		Auth:                 authn,
		Appointments:         appts,
		Dashboard:            service.NewDashboard(st, log),
		Support:              service.NewSupport(pub, log),
		Hub:                  hub,
		Store:                st,
		Limiter:              limiter,
		GRPCWeb:              bridge,
		AllowedOrigins:       cfg.AllowedOrigins,
		TrustIdentityHeaders: cfg.TrustIdentityHeaders,
		RequestTimeout:       cfg.RequestTimeout,
		Log:                  log,
	})
	if cfg.TrustIdentityHeaders {
		log.Warn("legacy role/userId identity headers are trusted")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("http server stopped")
	return nil
}
