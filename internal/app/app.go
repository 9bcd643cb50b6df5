// Package app wires configuration, storage, services and transport into the
// runnable server and batch processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/beautyshelf-backend/internal/adapter/postgres"
	catalogrepo "github.com/heartmarshall/beautyshelf-backend/internal/adapter/postgres/catalog"
	"github.com/heartmarshall/beautyshelf-backend/internal/adapter/postgres/owned"
	"github.com/heartmarshall/beautyshelf-backend/internal/auth"
	"github.com/heartmarshall/beautyshelf-backend/internal/config"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/catalog"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/inventory"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/quantity"
	"github.com/heartmarshall/beautyshelf-backend/internal/transport/dataloader"
	"github.com/heartmarshall/beautyshelf-backend/internal/transport/middleware"
	"github.com/heartmarshall/beautyshelf-backend/internal/transport/rest"
)

// ServerOptions controls startup behaviour of the API process.
type ServerOptions struct {
	// Migrate applies pending migrations before serving.
	Migrate bool
	// MigrateOnly applies migrations and exits.
	MigrateOnly bool
}

// services holds the wired domain layer shared by the server and batch jobs.
type services struct {
	catalogRepo *catalogrepo.Repo
	ownedRepo   *owned.Repo
	tx          *postgres.TxManager
	catalog     *catalog.Service
	reconciler  *quantity.Reconciler
	inventory   *inventory.Service
}

// database is satisfied by *pgxpool.Pool.
type database interface {
	postgres.Querier
	postgres.Beginner
}

func newServices(cfg *config.Config, pool database, logger *slog.Logger) *services {
	s := &services{
		catalogRepo: catalogrepo.New(pool),
		ownedRepo:   owned.New(pool),
		tx:          postgres.NewTxManager(pool),
	}
	inferrer := expiry.New(cfg.Inventory.DefaultShelfLifeMonths)

	s.catalog = catalog.NewService(logger, s.catalogRepo, s.tx, inferrer)
	s.reconciler = quantity.NewReconciler(logger, s.ownedRepo, quantity.NewNameBrandSize(cfg.Inventory.SizeTolerance))
	s.inventory = inventory.NewService(logger, s.catalog, s.ownedRepo, s.reconciler, inferrer, s.tx, inventory.Options{
		MaxOwnedPerUser: cfg.Inventory.MaxOwnedPerUser,
	})
	return s
}

// Run is the API server entry point. It blocks until ctx is cancelled and
// the server has drained.
func Run(ctx context.Context, opts ServerOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log, os.Stderr)
	logger.InfoContext(ctx, "starting server",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if opts.Migrate || opts.MigrateOnly {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if opts.MigrateOnly {
			return nil
		}
	}

	svc := newServices(cfg, pool, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.CleanupInterval)
	defer limiter.Stop()

	handler := newHTTPHandler(cfg, logger, svc, pool, limiter)
	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return serve(ctx, srv, cfg.Server, logger)
}

func newHTTPHandler(cfg *config.Config, logger *slog.Logger, svc *services, pool rest.Pinger, limiter *middleware.RateLimiter) http.Handler {
	router := rest.NewRouter(rest.Handlers{
		Health:  rest.NewHealthHandler(map[string]rest.Pinger{"database": pool}, BuildVersion()),
		Owned:   rest.NewOwnedHandler(svc.inventory, logger),
		Catalog: rest.NewCatalogHandler(svc.catalog, logger),
	})

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		middleware.Auth(auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)),
		limiter.Limit(cfg.RateLimit.RequestsPerMinute),
		dataloader.Middleware(svc.catalogRepo),
	)(middleware.Route(router))
}

func serve(ctx context.Context, srv *http.Server, cfg config.ServerConfig, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// RunRecount recomputes quantity for every similarity group once and exits.
func RunRecount(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log, os.Stderr)
	logger.InfoContext(ctx, "starting recount", slog.String("version", BuildVersion()))

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	svc := newServices(cfg, pool, logger)
	recounter := quantity.NewRecounter(logger, svc.ownedRepo, svc.reconciler, svc.tx,
		cfg.Inventory.RecountPageSize, cfg.Inventory.RecountConcurrency)

	res, err := recounter.Run(ctx)
	if err != nil {
		return fmt.Errorf("recount: %w", err)
	}

	logger.InfoContext(ctx, "recount finished",
		slog.Int("instances", res.Instances),
		slog.Int("groups", res.Groups),
	)
	return nil
}
