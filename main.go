package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/attribution"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/checkout"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/graph"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/repo"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/tenants"
	"github.com/Chative-core-poc-v1/orderbot/internal/core"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	"github.com/Chative-core-poc-v1/orderbot/internal/middleware"
	"github.com/Chative-core-poc-v1/orderbot/internal/webhook"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	"github.com/Chative-core-poc-v1/orderbot/pkg/metrics"
	pkgpostgres "github.com/Chative-core-poc-v1/orderbot/pkg/postgres"
	pkgredis "github.com/Chative-core-poc-v1/orderbot/pkg/redis"
)

// Store drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig defines all configurable parameters of the bot server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// STORE_DRIVER=redis keeps sessions in Redis and everything else in
	// Postgres; postgres keeps everything in Postgres; memory runs the demo
	// catalog in process.
	StoreDriver     string  `envconfig:"STORE_DRIVER" default:"memory"`
	PostgresMigrate bool    `envconfig:"POSTGRES_MIGRATE" default:"true"`
	DemoPageID      string  `envconfig:"DEMO_PAGE_ID" default:"demo-page"`
	DeliveryFlatFee float64 `envconfig:"DELIVERY_FLAT_FEE"`

	// Infrastructure
	Server   ServerConfig
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// Messaging
	Messenger messenger.Config
	Webhook   webhook.Config

	// Bot
	Conversation model.ConversationConfig
	Attribution  model.AttributionConfig
	Tenants      model.TenantConfig
}

type orderStore interface {
	model.OrderCreator
	model.OrderRepository
}

// stores bundles the repositories picked by STORE_DRIVER.
type stores struct {
	sessions model.SessionRepository
	catalog  model.CatalogRepository
	orders   orderStore
	tenants  model.TenantRepository
	closers  []io.Closer
	checks   []func(context.Context) error
}

// Ping runs the readiness checks of the open backends.
func (s *stores) Ping(ctx context.Context) error {
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// healthHandler reports 200 when every backend answers, otherwise the status
// carried by the backend error.
func healthHandler(st *stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := st.Ping(r.Context()); err != nil {
			logx.Warn().Err(err).Msg("health check failed")
			w.WriteHeader(errx.StatusOf(err))
			io.WriteString(w, "unavailable")
			return
		}
		io.WriteString(w, "ok")
	}
}

func (s *stores) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logx.Warn().Err(err).Msg("failed to close store")
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing environment config: %w", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: cfg.LogLevel})
	logx.Info().
		Str("environment", env.String()).
		Str("store_driver", cfg.StoreDriver).
		Str("port", cfg.Server.Port).
		Msg("configuration loaded")

	ctx := context.Background()
	st, err := openStores(ctx, cfg, env)
	if err != nil {
		return fmt.Errorf("opening stores: %w", err)
	}
	defer st.Close()

	sender := messenger.NewClient(cfg.Messenger, &http.Client{Timeout: cfg.Messenger.SendTimeout})

	var quoter model.DeliveryQuoter
	if cfg.DeliveryFlatFee > 0 {
		quoter = checkout.FlatQuoter{Fee: cfg.DeliveryFlatFee}
	}

	runner, err := graph.BuildRunner(ctx, &graph.Config{
		Sessions:     st.sessions,
		Catalog:      st.catalog,
		Orders:       st.orders,
		Quoter:       quoter,
		Sender:       sender,
		Conversation: cfg.Conversation,
	})
	if err != nil {
		return fmt.Errorf("building turn graph: %w", err)
	}

	h := webhook.New(cfg.Messenger, cfg.Webhook,
		tenants.NewResolver(st.tenants, cfg.Tenants, env),
		runner,
		attribution.NewResolver(st.orders, sender, cfg.Attribution, cfg.Conversation),
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", healthHandler(st))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.Chain(middleware.RequestID, middleware.Recovery, middleware.Logging)(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", server.Addr).Msg("server starting")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logx.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logx.Info().Msg("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg AppConfig, env core.Environment) (*stores, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		if env.IsProduction() {
			logx.Warn().Msg("memory store in production: sessions and orders are lost on restart")
		}
		m := repo.NewMemoryStore()
		repo.SeedDemo(m, cfg.DemoPageID, cfg.Messenger.PageAccessToken)
		logx.Info().Str("page_id", cfg.DemoPageID).Msg("demo catalog loaded")
		return &stores{sessions: m, catalog: m, orders: m, tenants: m}, nil

	case DriverPostgres, DriverRedis:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		st := &stores{
			sessions: repo.NewPostgresSessionRepository(db),
			catalog:  repo.NewPostgresCatalogRepository(db),
			orders:   repo.NewPostgresOrderRepository(db),
			tenants:  repo.NewPostgresTenantRepository(db),
			closers:  []io.Closer{db},
			checks: []func(context.Context) error{
				func(ctx context.Context) error { return errx.WrapPostgres(db.PingContext(ctx)) },
			},
		}
		if cfg.StoreDriver == DriverRedis {
			rdb, err := cfg.Redis.New()
			if err != nil {
				st.Close()
				return nil, fmt.Errorf("initialising redis client: %w", err)
			}
			st.sessions = repo.NewRedisSessionRepository(rdb, cfg.Conversation.SessionTTL)
			st.closers = append(st.closers, rdb)
			st.checks = append(st.checks, func(ctx context.Context) error {
				return errx.WrapRedis(rdb.Ping(ctx).Err())
			})
			logx.Info().Msg("connected to redis")
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, cfg AppConfig) (*sql.DB, error) {
	db, err := cfg.Postgres.New()
	if err != nil {
		return nil, fmt.Errorf("initialising postgres: %w", err)
	}
	logx.Info().Msg("connected to postgres")

	if cfg.PostgresMigrate {
		if err := repo.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}
	return db, nil
}
