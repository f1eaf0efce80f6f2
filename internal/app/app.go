// Package app wires configuration, storage and transport into the two
// runnable processes: the link API and the dashboard.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	delivery "github.com/linkly/url-shortener/internal/adapter/delivery/http"
	"github.com/linkly/url-shortener/internal/adapter/delivery/web"
	postgresrepo "github.com/linkly/url-shortener/internal/adapter/repository/postgres"
	sqliterepo "github.com/linkly/url-shortener/internal/adapter/repository/sqlite"
	"github.com/linkly/url-shortener/internal/client"
	"github.com/linkly/url-shortener/internal/config"
	"github.com/linkly/url-shortener/internal/entity"
	"github.com/linkly/url-shortener/internal/session"
	"github.com/linkly/url-shortener/internal/usecase"
	"github.com/linkly/url-shortener/migrations"
	"github.com/linkly/url-shortener/pkg/postgres"
	"github.com/linkly/url-shortener/pkg/sqlite"
)

var quietRoutes = []string{"/healthz", "/metrics"}

type linkRepository interface {
	Save(ctx context.Context, link *entity.Link) (*entity.Link, error)
	List(ctx context.Context, search string) ([]entity.Link, error)
	RetrieveByCode(ctx context.Context, code string) (*entity.Link, error)
	IncrementClicks(ctx context.Context, code string, at time.Time) (*entity.Link, error)
	Remove(ctx context.Context, code string) error
}

// NewLogger builds the process logger. Output is JSON in prod and concise
// text elsewhere.
func NewLogger(name string, cfg *config.Config, w io.Writer) *httplog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	prod := cfg.Env == config.EnvProd

	return httplog.NewLogger(name, httplog.Options{
		JSON:            prod,
		Concise:         !prod,
		LogLevel:        level,
		RequestHeaders:  prod,
		QuietDownRoutes: quietRoutes,
		QuietDownPeriod: 10 * time.Second,
		Tags: map[string]string{
			"version": cfg.Version,
			"env":     cfg.Env,
		},
		Writer: w,
	})
}

// RunAPI serves the link API until ctx is canceled.
func RunAPI(ctx context.Context, cfg *config.Config) error {
	const op = "app.RunAPI"

	if err := cfg.ValidateAPI(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger := NewLogger("url-shortener", cfg, os.Stdout)

	ln, err := net.Listen("tcp", cfg.HTTPServer.Addr())
	if err != nil {
		return fmt.Errorf("%s: failed to listen on %s: %w", op, cfg.HTTPServer.Addr(), err)
	}

	if err := runAPI(ctx, cfg, logger, ln); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func runAPI(ctx context.Context, cfg *config.Config, logger *httplog.Logger, ln net.Listener) error {
	db, linkRepo, err := openStore(ctx, cfg, logger.Logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer db.Close()

	router := delivery.NewRouter(delivery.RouterConfig{
		Version:        cfg.Version,
		StartedAt:      time.Now(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, logger, usecase.New(linkRepo))

	return serve(ctx, logger.Logger, cfg.HTTPServer, ln, router)
}

// RunDashboard serves the dashboard pages until ctx is canceled. The API is
// reached over HTTP at cfg.Dashboard.APIBaseURL.
func RunDashboard(ctx context.Context, cfg *config.Config) error {
	const op = "app.RunDashboard"

	if err := cfg.ValidateDashboard(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger := NewLogger("dashboard", cfg, os.Stdout)

	ln, err := net.Listen("tcp", cfg.Dashboard.Addr())
	if err != nil {
		return fmt.Errorf("%s: failed to listen on %s: %w", op, cfg.Dashboard.Addr(), err)
	}

	if err := runDashboard(ctx, cfg, logger, ln); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func runDashboard(ctx context.Context, cfg *config.Config, logger *httplog.Logger, ln net.Listener) error {
	links, err := client.New(cfg.Dashboard.APIBaseURL)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to create api client: %w", err)
	}

	var sessionOpts []session.Option
	if cfg.Dashboard.SecureCookie {
		sessionOpts = append(sessionOpts, session.WithSecureCookie())
	}

	router, err := web.NewRouter(web.RouterConfig{
		Version:   cfg.Version,
		StartedAt: time.Now(),
	}, logger, links, session.NewStore(cfg.Dashboard.SessionTTL, sessionOpts...))
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to create router: %w", err)
	}

	return serve(ctx, logger.Logger, cfg.HTTPServer, ln, router)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlx.DB, linkRepository, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()

		db, err := postgres.New(
			ctx,
			dsn,
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(migrations.FS, migrations.PostgresDir, dsn); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("database ready", slog.String("driver", cfg.Storage.Driver), slog.String("host", cfg.Postgres.Host))

		return db, postgresrepo.NewLinkRepository(db), nil
	case config.DriverSQLite:
		db, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := sqlite.RunMigrations(db, migrations.FS, migrations.SQLiteDir); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("database ready", slog.String("driver", cfg.Storage.Driver), slog.String("path", cfg.SQLite.Path))

		return db, sqliterepo.NewLinkRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// serve runs an HTTP server on ln until ctx is canceled, then shuts it down
// within cfg.ShutdownTimeout. TLS is used when both cert and key are set.
func serve(ctx context.Context, logger *slog.Logger, cfg config.HTTPServer, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		if cfg.CertFile != "" && cfg.KeyFile != "" {
			logger.Info("starting https server", slog.String("addr", ln.Addr().String()))
			err = server.ServeTLS(ln, cfg.CertFile, cfg.KeyFile)
		} else {
			logger.Info("starting http server", slog.String("addr", ln.Addr().String()))
			err = server.Serve(ln)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error occurred: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		return nil
	})

	return g.Wait()
}
