package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/adminapi"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/bus"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/config"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/janitor"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/logging"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/matchstore"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/middleware"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/profilestore"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/ratelimit"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/reconciler"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/tracing"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/transport"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "lobby-server"

func main() {
	envPaths := []string{".env", "../../.env", "../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	logger := logging.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracer(ctx, serviceName, cfg.OtelCollectorAddr)
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	var redisClient *redis.Client
	var busService types.Bus
	if cfg.RedisEnabled {
		svc, err := bus.NewService(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("failed to connect to redis bus", zap.Error(err))
		}
		redisClient = svc.Client()
		busService = svc
		defer svc.Close()
	}

	limiter, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		logger.Fatal("failed to construct rate limiter", zap.Error(err))
	}

	profiles := profilestore.NewClient(cfg.NocodeBackendURL, cfg.NocodeBackendAPIKey)
	matches := matchstore.NewClient(cfg.NocodeBackendURL, cfg.NocodeBackendAPIKey)

	reg := registry.New(busService)
	rec := reconciler.New(reg, profiles)

	jan := janitor.New(reg, rec)
	jan.Start(ctx)
	defer jan.Shutdown()

	allowedOrigins := allowedOriginsFromEnv(cfg)
	hub := transport.NewHub(rec, limiter, allowedOrigins)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Profile-Id", "X-Correlation-ID")
	router.Use(cors.New(corsConfig))

	router.Use(limiter.GlobalMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/:roomId", hub.ServeWs)

	admin := adminapi.New(reg, profiles, matches, rec, cfg.GoEnv)
	admin.RegisterRoutes(router, limiter.RoomsMiddleware())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("lobby server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited with error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("hub shutdown error", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// allowedOriginsFromEnv builds the CORS/websocket-origin allowlist from
// CLIENT_URL and ALLOWED_ORIGINS (comma-separated), falling back to the
// local dev origin when neither is set.
func allowedOriginsFromEnv(cfg *config.Config) []string {
	var origins []string
	if cfg.ClientURL != "" {
		origins = append(origins, cfg.ClientURL)
	}
	if cfg.AllowedOrigins != "" {
		for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}
