package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/lead-finder/internal/api"
	"github.com/ignite/lead-finder/internal/auth"
	"github.com/ignite/lead-finder/internal/awsutil"
	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/pkg/distlock"
	"github.com/ignite/lead-finder/internal/pkg/logger"
	"github.com/ignite/lead-finder/internal/service/bulk"
	"github.com/ignite/lead-finder/internal/service/lookup"
	"github.com/ignite/lead-finder/internal/storage"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.ShouldRedact())
	srvLog := logger.Named("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsutil.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	health := api.NewHealthChecker()

	// Query backend
	backend, closeBackend, err := buildBackend(cfg, awsCfg, health)
	if err != nil {
		log.Fatalf("Failed to initialize query backend: %v", err)
	}
	defer closeBackend()
	resolver, err := buildResolver(cfg, backend)
	if err != nil {
		log.Fatalf("Failed to initialize query resolver: %v", err)
	}

	// Redis is shared by the cache and the duplicate-upload guard.
	redisClient := connectRedis(ctx, cfg.Cache.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	gateway, err := buildCache(cfg, awsCfg, redisClient, health)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	// Results store
	blob, basePrefix, err := storage.New(cfg.Storage, awsCfg)
	if err != nil {
		log.Fatalf("Failed to initialize results storage: %v", err)
	}
	if p, ok := blob.(api.Pinger); ok {
		health.Register("storage", p, true)
	}
	history := storage.NewHistory(blob, basePrefix)

	verifier := buildVerifier(cfg, awsCfg)

	lookupSvc := lookup.NewService(resolver, gateway, history)
	bulkSvc := bulk.NewService(lookupSvc, verifier, history,
		distlock.NewLocker(redisClient, cfg.Bulk.LockTTL()),
		bulk.Config{
			ChunkSize:          cfg.Bulk.ChunkSize,
			DailyLimit:         cfg.Bulk.DailyLimit,
			MaxPageSize:        cfg.Bulk.MaxPageSize,
			RetryBypassesCache: cfg.Lookup.RetryBypassesCache,
			FinalizeTimeout:    cfg.Bulk.FinalizeTimeout(),
		})

	handlers := api.NewHandlers(lookupSvc, bulkSvc, verifier, api.Options{
		MaxUploadBytes:  cfg.Bulk.MaxUploadMB << 20,
		RequestTimeout:  cfg.Lookup.RequestTimeout(),
		DefaultPageSize: cfg.Bulk.DefaultPageSize,
	})
	authn := auth.NewAuthenticator(cfg.Auth)
	if cfg.Auth.JWTSecret == "" && cfg.Auth.TrustedHeader == "" {
		srvLog.Warn("no auth.jwt_secret or auth.trusted_header configured; every /api request will be rejected")
	}

	router := api.SetupRoutes(handlers, health, authn, cfg.Server.AllowedOrigins)
	server := api.NewServer(cfg.Server, router)

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("%v", err)
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		srvLog.Info("starting server", "addr", addr, "backend", cfg.Query.Backend,
			"cache", cfg.Cache.Backend, "storage", cfg.Storage.Type, "verification", cfg.Verification.Provider)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	srvLog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		srvLog.Error("server shutdown error", "error", err)
	}
	srvLog.Info("server stopped")
}
