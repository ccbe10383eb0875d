package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/cache"
	"vcbridge/pkg/config"
	"vcbridge/pkg/connector"
	"vcbridge/pkg/inventory"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/log"
	"vcbridge/pkg/server"
	"vcbridge/pkg/vsphere"
)

const startupTimeout = 5 * time.Minute

func main() {
	addr := flag.String("addr", ":8000", "API listen address")
	configDir := flag.String("config-dir", "config/vcenters", "Directory with one YAML file per vCenter endpoint")
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for liveness records and the response cache")
	offline := flag.Bool("offline", false, "Run against in-memory fake endpoints instead of real vCenters")
	debug := flag.Bool("debug", false, "Enable debug logging")

	settings := config.DefaultSettings()
	flag.DurationVar(&settings.ConnectTimeout, "connect-timeout", settings.ConnectTimeout, "Per-endpoint connect/read timeout")
	flag.DurationVar(&settings.RetryInterval, "retry-interval", settings.RetryInterval, "Wait between reconnect attempts")
	flag.IntVar(&settings.MaxRetries, "max-retries", settings.MaxRetries, "Reconnect attempts before dead-marking an endpoint")
	flag.DurationVar(&settings.PoolTimeout, "pool-timeout", settings.PoolTimeout, "Idle timeout of backend connections")
	flag.IntVar(&settings.MaxWorkers, "max-workers", settings.MaxWorkers, "Concurrent fan-out workers")
	flag.DurationVar(&settings.LivenessTTL, "liveness-ttl", settings.LivenessTTL, "TTL of alive/dead records")
	flag.IntVar(&settings.PerEndpointCap, "per-endpoint-cap", settings.PerEndpointCap, "Objects fetched per endpoint before merging")
	flag.DurationVar(&settings.CacheTTL, "cache-ttl", settings.CacheTTL, "Response cache TTL, 0 disables caching")

	flag.Parse()
	settings.ApplyEnv()

	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	endpoints, err := config.LoadEndpoints(*configDir)
	if err != nil {
		log.Fatal().Err(err).Str("config_dir", *configDir).Msg("Failed to load endpoint configuration")
	}
	if endpoints.Len() == 0 {
		log.Fatal().Str("config_dir", *configDir).Msg("No vCenter endpoints configured")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	store := liveness.New(redisClient, settings.LivenessTTL)

	var dialer vsphere.Dialer
	if *offline {
		log.Warn().Msg("Offline mode: serving fake inventory, no vCenter is contacted")
		dialer = vsphere.NewFakeDialer()
	} else {
		dialer = vsphere.NewDialer(settings)
	}

	pool := connector.New(endpoints, dialer, store, settings)

	// Connect everything once up front. Bad credentials are fatal here;
	// unreachable endpoints are dead-marked and retried later.
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	sessions, err := pool.AcquireSessions(ctx)
	cancel()
	if err != nil {
		if errors.Is(err, connector.ErrAuthFailure) {
			log.Fatal().Err(err).Msg("Endpoint rejected the configured credentials")
		}
		log.Fatal().Err(err).Msg("Initial session setup failed")
	}
	log.Info().
		Int("configured", endpoints.Len()).
		Int("connected", len(sessions)).
		Msg("Session pool initialized")

	svc := inventory.New(aggregate.New(pool, settings), dialer)
	responseCache := cache.New(redisClient, settings.CacheTTL)

	srv := server.New(svc, pool, responseCache, settings)
	if err := srv.Start(*addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}
