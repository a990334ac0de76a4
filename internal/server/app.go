// Package server wires configuration, storage, services and the HTTP and
// gRPC listeners into a runnable application.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/auth"
	"github.com/dmitrijs2005/any2json/internal/server/config"
	"github.com/dmitrijs2005/any2json/internal/server/convert"
	"github.com/dmitrijs2005/any2json/internal/server/httpapi"
	"github.com/dmitrijs2005/any2json/internal/server/poolsource"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/any2json/internal/server/services"
	"github.com/dmitrijs2005/any2json/internal/server/twofactor"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/any2json/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

// overridable in tests
var (
	openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
		return repomanager.OpenPostgres(ctx, dsn)
	}
	newRedisClient = func(cfg *config.Config) redisClient {
		return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	}
)

type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	redis     redisClient
	gateway   *services.Gateway
	addresses *services.AddressService
	router    *httpapi.Router
}

// NewApp opens the configured backend, prepares its schema, imports the
// address pool seed and builds the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger.With("module", "app")}

	repos, err := app.openRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	app.repos = repos

	if err := repos.RunMigrations(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	guard, err := app.replayGuard(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.TokenTTL)
	if err != nil {
		app.Close()
		return nil, err
	}

	accounts := services.NewAccountService(repos.Accounts(), logger)
	app.addresses = services.NewAddressService(repos.Addresses(), repos.Accounts(), c.Networks, logger)
	tf := twofactor.NewService(repos.Accounts(), twofactor.Options{Issuer: c.TOTPIssuer, Skew: c.TOTPSkew, Guard: guard}, logger)

	app.gateway = services.NewGateway(services.GatewayDeps{
		Accounts:  accounts,
		Addresses: app.addresses,
		Tokens:    tokens,
		TwoFactor: tf,
		Engine:    convert.NewMockEngine(),
		Billing:   c.Billing(),
	}, logger)

	if err := app.seedPools(ctx); err != nil {
		app.Close()
		return nil, err
	}

	app.router = httpapi.NewRouter(app.gateway, c.AdminToken, logger)
	return app, nil
}

func (app *App) openRepositories(ctx context.Context) (repomanager.RepositoryManager, error) {
	switch app.config.Backend {
	case config.BackendPostgres:
		return openPostgres(ctx, app.config.DatabaseDSN)
	case config.BackendPebble:
		return repomanager.OpenPebble(app.config.PebblePath)
	case config.BackendMemory:
		app.logger.Warn(ctx, "using in-memory storage; data is lost on restart")
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", app.config.Backend)
}

// replayGuard picks Redis when an address is configured so several
// instances share accepted codes; otherwise a process-local guard.
func (app *App) replayGuard(ctx context.Context) (twofactor.ReplayGuard, error) {
	if !app.config.TOTPReplayProtection {
		app.logger.Warn(ctx, "totp replay protection is disabled")
		return nil, nil
	}
	if app.config.RedisAddr == "" {
		return twofactor.NewMemoryGuard(), nil
	}

	client := newRedisClient(app.config)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.redis = client
	return twofactor.NewRedisGuard(client), nil
}

func (app *App) seedPools(ctx context.Context) error {
	if app.config.PoolSeed == "" {
		return nil
	}
	seed, err := poolsource.Load(ctx, app.config.PoolSeed, app.config.PoolS3())
	if err != nil {
		return fmt.Errorf("pool seed error: %w", err)
	}
	if err := app.addresses.SeedPools(ctx, seed); err != nil {
		return fmt.Errorf("pool seed error: %w", err)
	}
	app.logger.Info(ctx, "address pools seeded", "source", app.config.PoolSeed, "pools", len(seed.Pools))
	return nil
}

// Handler exposes the HTTP API, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.router.Handler()
}

// Close releases the storage backend and the Redis client.
func (app *App) Close() {
	ctx := context.Background()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if app.repos != nil {
		if err := app.repos.Close(); err != nil {
			app.logger.Error(ctx, "storage close error", "error", err)
		}
	}
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}

func (app *App) runHTTPServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(context.Background(), "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) runGRPCServer(ctx context.Context) error {
	return gs.NewServer(app.config.EndpointAddrGRPC, app.logger).Run(ctx)
}

// Run serves HTTP and gRPC until ctx is cancelled or a signal arrives. A
// listener failure stops the other one too.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := app.initSignalHandler(ctx)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Backend)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" server error", "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
			}
		}()
	}

	run("http", app.runHTTPServer)
	run("grpc", app.runGRPCServer)

	wg.Wait()
	app.logger.Info(context.Background(), "app stopped")
	return firstErr
}
