package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-finder/internal/api"
	"github.com/ignite/lead-finder/internal/athena"
	"github.com/ignite/lead-finder/internal/cache"
	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/pkg/httpretry"
	"github.com/ignite/lead-finder/internal/pkg/logger"
	"github.com/ignite/lead-finder/internal/query"
	"github.com/ignite/lead-finder/internal/ses"
	"github.com/ignite/lead-finder/internal/snowflake"
	"github.com/ignite/lead-finder/internal/verification"
)

var wlog = logger.Named("wire")

// buildBackend returns the configured data lake backend and its closer.
func buildBackend(cfg *config.Config, awsCfg aws.Config, health *api.HealthChecker) (query.Backend, func(), error) {
	switch cfg.Query.Backend {
	case "athena":
		if cfg.Athena.OutputLocation == "" {
			return nil, nil, fmt.Errorf("athena.output_location is required")
		}
		return athena.NewClient(awsCfg, cfg.Athena), func() {}, nil
	case "snowflake":
		sf := snowflake.Resolve(cfg.Snowflake)
		if sf.Account == "" {
			return nil, nil, fmt.Errorf("snowflake account is required (snowflake.account or SNOWFLAKE_CONNECTION_STRING)")
		}
		client, err := snowflake.NewClient(sf)
		if err != nil {
			return nil, nil, err
		}
		health.Register("snowflake", client, true)
		return client, func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown query backend %q", cfg.Query.Backend)
	}
}

func buildResolver(cfg *config.Config, backend query.Backend) (*query.Resolver, error) {
	return query.NewResolver(backend, query.Config{
		Table:          cfg.Query.Table,
		OutputLocation: cfg.Athena.OutputLocation,
		Policy: query.Policy{
			SubmitAttempts: cfg.Query.SubmitAttempts,
			PollAttempts:   cfg.Query.PollAttempts,
			PollInitial:    time.Duration(cfg.Query.PollInitialMillis) * time.Millisecond,
			PollMax:        time.Duration(cfg.Query.PollMaxMillis) * time.Millisecond,
		},
		NotFoundTemplate: cfg.Query.NotFoundTemplate,
	})
}

// connectRedis returns a client for url, or nil when url is empty or the
// server is unreachable.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	var client *redis.Client
	opts, err := redis.ParseURL(url)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: url})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		wlog.Warn("redis unreachable, continuing without it", "error", err)
		client.Close()
		return nil
	}
	return client
}

func buildCache(cfg *config.Config, awsCfg aws.Config, redisClient *redis.Client, health *api.HealthChecker) (*cache.Gateway, error) {
	var store cache.Store
	switch cfg.Cache.Backend {
	case "dynamodb":
		ds := cache.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Cache.DynamoDBTable)
		health.Register("cache", ds, false)
		store = ds
	case "redis":
		if redisClient == nil {
			wlog.Warn("redis cache configured but unavailable; caching disabled")
			health.Register("cache", nil, false)
			break
		}
		rs := cache.NewRedisStore(redisClient, cfg.Cache.KeyPrefix)
		health.Register("cache", rs, false)
		store = rs
	case "memory":
		store = cache.NewMemoryStore()
	case "none":
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return cache.NewGateway(store, cfg.Cache.TTL()), nil
}

// SES reports confirmed identities, letting the verifier skip re-requests.
var _ verification.StatusChecker = (*ses.Verifier)(nil)

func buildVerifier(cfg *config.Config, awsCfg aws.Config) *verification.Service {
	if !cfg.Verification.Enabled {
		wlog.Info("email verification disabled")
		return verification.NewService(nil, 0)
	}
	var provider verification.Provider
	switch cfg.Verification.Provider {
	case "http":
		httpClient := &http.Client{Timeout: cfg.Verification.Timeout()}
		provider = verification.NewHTTPVerifier(
			httpretry.NewRetryClient(httpClient, 3),
			cfg.Verification.Endpoint,
			cfg.Verification.APIKey(),
		)
	default:
		provider = ses.NewVerifier(awsCfg)
	}
	return verification.NewService(provider, cfg.Verification.RatePerSecond)
}
