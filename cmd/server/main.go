package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arbor/internal/auth"
	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/handler"
	"arbor/internal/middleware"
	"arbor/internal/repository/postgres"
	postgresTree "arbor/internal/repository/postgres/tree"
	serviceTree "arbor/internal/service/tree"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"auth_mode", cfg.AuthMode,
	)

	// Tenant resolution: JWKS-verified tokens, plus the X-Tenant-ID header outside prod
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWTVerifier(cfg.JWKSURL, cfg.TenantClaim, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer v.Close()
		jwtVerifier = v
	}
	allowHeaderTenant := cfg.HeaderAuthAllowed()
	if jwtVerifier == nil && !allowHeaderTenant {
		log.Fatalf("No tenant resolution configured: set JWKS_URL or AUTH_MODE=header (non-prod only)")
	}
	if allowHeaderTenant {
		logger.Warn("header auth enabled: X-Tenant-ID is trusted (NEVER use in production!)")
	}

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	logger.Info("database connected", "nodes_table", tables.Nodes, "closure_table", tables.Closure)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	nodeStore := postgresTree.NewNodeStore(repoConfig)
	closureIndex := postgresTree.NewClosureIndex(repoConfig)
	treeReader := postgresTree.NewTreeReader(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	healthChecks := map[string]handler.HealthCheck{
		"database": pool.Ping,
	}

	// Subtree cache: off unless a shared backend is configured
	var subtreeCache cache.SubtreeCache = cache.Noop{}
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		if cfg.RedisAddr == "" {
			log.Fatalf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
		redisCache := cache.NewRedisCache(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), cfg.CacheTTL, logger)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, reads fall through to postgres", "addr", cfg.RedisAddr, "error", err)
		}
		healthChecks["cache"] = redisCache.Ping
		subtreeCache = redisCache
		logger.Info("subtree cache enabled", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	case config.CacheBackendMemory:
		subtreeCache = cache.NewMemoryCache(cfg.CacheTTL)
		logger.Warn("subtree cache enabled", "backend", "memory", "ttl", cfg.CacheTTL,
			"note", "per-process cache; run a single instance")
	case config.CacheBackendNone:
		logger.Info("subtree cache disabled")
	default:
		log.Fatalf("Unknown CACHE_BACKEND %q (want none, redis or memory)", cfg.CacheBackend)
	}

	metrics := serviceTree.NewMetrics(prometheus.DefaultRegisterer)

	treeService, projectService := serviceTree.NewServices(serviceTree.Dependencies{
		Nodes:     nodeStore,
		Closure:   closureIndex,
		Reader:    treeReader,
		TxManager: txManager,
		Cache:     subtreeCache,
		Metrics:   metrics,
		Logger:    logger,
	})

	projectHandler := handler.NewProjectHandler(projectService, treeService, logger)
	nodeHandler := handler.NewNodeHandler(treeService, logger)
	healthHandler := handler.NewHealthHandler(healthChecks)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, projectHandler, nodeHandler, healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier, allowHeaderTenant)(h)
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TenantHeader, middleware.UserHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Shut down on SIGINT/SIGTERM, letting in-flight requests finish
	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-shutdownCtx.Done():
		logger.Info("server shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
