package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/aegis-modelplan/internal/api"
	"github.com/af-corp/aegis-modelplan/internal/auth"
	"github.com/af-corp/aegis-modelplan/internal/catalog"
	"github.com/af-corp/aegis-modelplan/internal/config"
	"github.com/af-corp/aegis-modelplan/internal/lock"
	"github.com/af-corp/aegis-modelplan/internal/mcp"
	"github.com/af-corp/aegis-modelplan/internal/planconfig"
	"github.com/af-corp/aegis-modelplan/internal/planner"
	"github.com/af-corp/aegis-modelplan/internal/policy"
	"github.com/af-corp/aegis-modelplan/internal/preferences"
	"github.com/af-corp/aegis-modelplan/internal/ratelimit"
	"github.com/af-corp/aegis-modelplan/internal/router"
	"github.com/af-corp/aegis-modelplan/internal/signals"
	"github.com/af-corp/aegis-modelplan/internal/telemetry"
)

var version = "dev"

const (
	modeHTTP     = "http"
	modeMCPStdio = "mcp-stdio"
)

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	mode := flag.String("mode", modeHTTP, "run mode: http or mcp-stdio")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// stdout carries the protocol in stdio mode
	var logOut io.Writer = os.Stdout
	if *mode == modeMCPStdio {
		logOut = os.Stderr
	}
	// the logger is settled before the loader captures it; a broken file
	// is reported by loader.Load below
	boot := config.DefaultConfig()
	_ = config.LoadFile(filepath.Join(*configDir, config.FileName), boot)
	level := new(slog.LevelVar)
	level.Set(parseLevel(boot.Telemetry.LogLevel))
	logger := newLogger(logOut, boot.Telemetry.LogFormat, level)
	slog.SetDefault(logger)

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	level.Set(parseLevel(cfg.Telemetry.LogLevel))

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	ctx := context.Background()

	var dbPool *pgxpool.Pool
	if cfg.Database.Enabled {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			logger.Error("invalid database configuration", "error", err)
			os.Exit(1)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		dbPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Warn("database not reachable (signals and admin keys will fail)", "error", err)
		} else {
			logger.Info("database connected")
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable (local locks, no key cache, no rate limiting)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics()

	evaluator := policy.NewEvaluator(func() config.PolicyConfig { return loader.Config().Policy })
	loadPolicy := func() {
		if !evaluator.Enabled() {
			return
		}
		if err := evaluator.Load(); err != nil {
			logger.Error("failed to load admission policy, rejecting all candidates", "error", err)
		}
	}
	loadPolicy()
	loader.OnReload(func() {
		level.Set(parseLevel(loader.Config().Telemetry.LogLevel))
		loadPolicy()
	})

	catalogs, locator := catalogSources(cfg.Catalog, logger)
	svc := planner.New(planner.Options{
		Catalogs: catalogs,
		Signals:  signalSources(cfg.Signals, dbPool),
		Admitter: evaluator,
		Install:  func() config.InstallConfig { return loader.Config().Install },
		Metrics:  metrics,
		Logger:   logger,
	})

	prefsPath := cfg.Preferences.ConfigPath
	if prefsPath == "" {
		prefsPath = planconfig.DefaultPath(planconfig.DefaultDir())
	}
	store := preferences.NewFileStore(prefsPath)
	tool := preferences.NewTool(store, lock.New(rdb, cfg.Preferences.LockTTL), nil)
	mcpSrv := mcp.New(tool, svc, metrics, logger, version)

	if *mode == modeMCPStdio {
		logger.Info("mcp stdio server starting", "version", version, "preferences", prefsPath)
		if err := mcpserver.ServeStdio(mcpSrv.MCPServer()); err != nil {
			logger.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}
	if *mode != modeHTTP {
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}

	health := router.NewHealthTracker(cfg.Routing.CircuitBreaker.FailureThreshold, cfg.Routing.CircuitBreaker.RecoveryProbeInterval)

	var admin func(http.Handler) http.Handler
	if cfg.Auth.RequireAdminKey {
		authMW := auth.Middleware(auth.NewCachedKeyStore(dbPool, rdb))
		rateMW := ratelimit.Middleware(ratelimit.NewLimiter(rdb), cfg.RateLimit.AdminRPM, metrics)
		admin = func(next http.Handler) http.Handler { return authMW(rateMW(next)) }
	} else {
		logger.Warn("admin key requirement disabled; mutating endpoints are open")
	}

	opts := api.Options{
		Planner: svc,
		Tool:    tool,
		Store:   store,
		Health:  health,
		Metrics: metrics,
		Version: version,
		Admin:   admin,
	}
	if locator != nil {
		opts.CatalogVersion = locator.Version
	}
	handler := api.NewHandler(opts)
	r := api.NewRouter(handler, api.Mounts{
		Metrics: promhttp.Handler(),
		MCP:     mcpserver.NewStreamableHTTPServer(mcpSrv.MCPServer()),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("modelplan starting", "addr", addr, "version", version, "preferences", prefsPath)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("modelplan stopped")
}

// catalogSources lists the file source first so its entries win the merge.
// The locator is nil when the binary source is off.
func catalogSources(cfg config.CatalogConfig, logger *slog.Logger) ([]catalog.Source, *catalog.Locator) {
	var (
		sources []catalog.Source
		locator *catalog.Locator
	)
	if cfg.File != "" {
		sources = append(sources, catalog.NewFileSource(cfg.File))
	}
	if cfg.Binary {
		locator = catalog.NewLocator(cfg.BinaryCandidates, nil)
		sources = append(sources, catalog.NewBinarySource(locator, cfg.Args, cfg.Timeout))
	}
	if len(sources) == 0 {
		logger.Warn("no catalog source configured; every plan will be empty")
	}
	return sources, locator
}

func signalSources(cfg config.SignalsConfig, db *pgxpool.Pool) []signals.Source {
	var sources []signals.Source
	if cfg.File != "" {
		sources = append(sources, signals.NewFileSource(cfg.File))
	}
	if cfg.Database && db != nil {
		sources = append(sources, signals.NewPostgresStore(db))
	}
	return sources
}

// newLogger builds the process logger. format "text" selects the text
// handler; anything else is JSON.
func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
