package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/auth"
	"mwas-backend/internal/config"
	"mwas-backend/internal/handler"
	"mwas-backend/internal/health"
	"mwas-backend/internal/middleware"
	"mwas-backend/internal/service"
	"mwas-backend/internal/store"
	"mwas-backend/internal/store/memory"
	"mwas-backend/internal/store/mongo"
	"mwas-backend/internal/store/postgres"
	rstore "mwas-backend/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger := setupLogger(cfg.Env)
	if cfg.InsecureSecret {
		logger.Warn("JWT_SECRET not set, using insecure development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "db_type", cfg.DBType, "error", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())
	logger.Info("store ready", "db_type", cfg.DBType)

	var revoked store.Revocations
	if cfg.RedisURL != "" {
		r, err := rstore.NewRevocations(cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer r.Close()
		revoked = r
	} else {
		r := memory.NewRevocations()
		go r.Sweep(ctx, 10*time.Minute)
		revoked = r
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		logger.Error("Invalid BCRYPT_COST", "error", err)
		os.Exit(1)
	}
	signer := auth.NewSigner(cfg.JWTSecret, auth.DefaultTTL)

	h := handler.New(st, handler.Services{
		Auth:         service.NewAuthService(st, revoked, hasher, signer, logger),
		Appointments: service.NewAppointmentService(st, logger),
		Therapists:   service.NewTherapistService(st, logger),
		Users:        service.NewUserService(st, logger),
		Chat:         service.NewChatService(st, service.CannedResponder{}, logger),
	}, logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := h.Router(handler.RouterConfig{
		Gate:           middleware.NewGate(signer, revoked, st, logger),
		AuthLimiter:    middleware.NewRateLimiter(ctx, cfg.AuthRateRPS, cfg.AuthRateBurst),
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// grpc health
	checker := health.New(st, logger)
	go checker.Run(ctx, 15*time.Second)
	grpcSrv := health.NewServer(checker, logger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Error("Failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc health on", "port", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc", "error", err)
		}
	}()

	go func() {
		logger.Info("Starting MWAS API", "port", cfg.Port, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	checker.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	grpcSrv.GracefulStop()
}

// openStore connects the backend named by DB_TYPE and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBType {
	case "mongo":
		st, err := mongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return st, nil
	case "postgres":
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		return postgres.Connect(ctx, cfg.DatabaseURL)
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case "development":
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return logger
}
