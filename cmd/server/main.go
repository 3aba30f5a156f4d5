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

	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/adapter/httpserver"
	"github.com/pscheid92/votepulse/internal/adapter/memory"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/adapter/postgres"
	"github.com/pscheid92/votepulse/internal/adapter/redis"
	"github.com/pscheid92/votepulse/internal/adapter/websocket"
	"github.com/pscheid92/votepulse/internal/app"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/platform/config"
	"github.com/pscheid92/votepulse/internal/platform/logging"
	"github.com/pscheid92/votepulse/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

type metricSets struct {
	store     *metrics.StoreMetrics
	vote      *metrics.VoteMetrics
	detector  *metrics.DetectorMetrics
	http      *metrics.HTTPMetrics
	websocket *metrics.WebSocketMetrics
}

// guardStores are the fast-path stores; Redis-backed when REDIS_URL is set, in-process otherwise.
type guardStores struct {
	guard    domain.GuardStore
	bus      domain.Bus
	activity domain.ActivityLog
	redis    *goredis.Client
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, storeMetrics *metrics.StoreMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, storeMetrics)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupGuardStores(ctx context.Context, cfg *config.Config, clock clockwork.Clock, storeMetrics *metrics.StoreMetrics) guardStores {
	if cfg.SingleInstance() {
		slog.Warn("REDIS_URL not set, using in-process guard store and bus (single instance only)")
		guard := memory.NewGuardStore(clock)
		go guard.RunSweeper(ctx, sweepInterval)
		return guardStores{guard: guard, bus: memory.NewBus()}
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := redis.NewClient(connectCtx, cfg.RedisURL, storeMetrics)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return guardStores{
		guard:    redis.NewGuardStore(client),
		bus:      redis.NewBus(client),
		activity: redis.NewActivityLog(client),
		redis:    client,
	}
}

func setupWebsocket(ctx context.Context, cfg *config.Config, bus domain.Bus, wsMetrics *metrics.WebSocketMetrics) (*centrifuge.Node, http.Handler) {
	node, err := websocket.NewNode(wsMetrics, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create websocket node", "error", err)
		os.Exit(1)
	}
	if err := node.Run(); err != nil {
		slog.Error("Failed to start websocket node", "error", err)
		os.Exit(1)
	}

	relay := websocket.NewRelay(bus, websocket.NewNodePublisher(node), wsMetrics)
	go func() {
		if err := relay.Run(ctx); err != nil {
			slog.Error("Websocket relay stopped", "error", err)
		}
	}()

	handler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(websocket.OriginPolicy{
			AppURL:         cfg.AppURL,
			EmbedOrigins:   cfg.WebsocketOrigins,
			AllowLocalhost: cfg.IsDevelopment(),
		}, wsMetrics),
	})
	return node, handler
}

func healthChecks(pool *pgxpool.Pool, ledger *postgres.BreakerLedger, rdb *goredis.Client) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "ledger", Check: ledger.Healthy},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func runGracefulShutdown(srv *httpserver.Server, node *centrifuge.Node, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()

		if err := node.Shutdown(shutdownCtx); err != nil {
			slog.Error("Websocket node shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", append([]any{"env", cfg.AppEnv, "port", cfg.Port}, version.Get().LogAttrs()...)...)

	reg := metrics.NewRegistry()
	ms := metricSets{
		store:     metrics.NewStoreMetrics(reg),
		vote:      metrics.NewVoteMetrics(reg),
		detector:  metrics.NewDetectorMetrics(reg),
		http:      metrics.NewHTTPMetrics(reg),
		websocket: metrics.NewWebSocketMetrics(reg),
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	pool := setupDB(cfg, ms.store)
	defer pool.Close()

	stores := setupGuardStores(bgCtx, cfg, clock, ms.store)
	if stores.redis != nil {
		defer func() { _ = stores.redis.Close() }()
	}

	pgLedger := postgres.NewLedger(pool)
	ledger := postgres.NewBreakerLedger(pgLedger, ms.store)
	voting := app.NewVotingService(app.VotingDeps{
		Ideas:    postgres.NewIdeaRepo(pool),
		Profiles: postgres.NewProfileRepo(pool),
		Guard:    stores.guard,
		History:  pgLedger,
		Ledger:   ledger,
		Activity: stores.activity,
		Bus:      stores.bus,
	}, app.VotingConfig{
		Limits: app.Limits{
			VoterPerWindow:  int64(cfg.VoterHourlyLimit),
			OriginPerWindow: int64(cfg.OriginHourlyLimit),
		},
		StoreTimeout:     cfg.StoreTimeout,
		BroadcastTimeout: cfg.BroadcastTimeout,
	}, clock, ms.vote, ms.detector)

	node, wsHandler := setupWebsocket(bgCtx, cfg, stores.bus, ms.websocket)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Voting:           voting,
		WebsocketHandler: wsHandler,
		Registry:         reg,
		HTTPMetrics:      ms.http,
		HealthChecks:     healthChecks(pool, ledger, stores.redis),
		Clock:            clock,
	})

	done := runGracefulShutdown(srv, node, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
