package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"authsrv-go/internal/action"
	"authsrv-go/internal/auth"
	"authsrv-go/internal/config"
	"authsrv-go/internal/handler"
	"authsrv-go/internal/metrics"
	"authsrv-go/internal/middleware"
	"authsrv-go/internal/resolver"
	"authsrv-go/internal/resource"
	"authsrv-go/internal/server"
	"authsrv-go/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("authsrv"),
		kong.Description("Minimal TCP file server with Basic or cookie authentication."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newCredentialStore,
			newAuthenticator,
			newResourceStore,
			newActionRegistry,
			newResolver,
			service.NewEngine,
			newServer,
			func(s *server.Server) handler.ConnectionStats { return s },
			handler.NewHealthHandler,
			newAdminEcho,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startServer, startAdmin),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func newCredentialStore(cfg *config.Config, logger *slog.Logger) auth.Store {
	if len(cfg.Auth.Users) == 0 {
		logger.Warn("no users configured; every protected request will be rejected")
	}
	return auth.NewStore(cfg.Auth.Users)
}

func newAuthenticator(cfg *config.Config, store auth.Store) (*auth.Authenticator, error) {
	scheme, err := auth.ParseScheme(cfg.Auth.Scheme)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(scheme, store), nil
}

func newResourceStore(cfg *config.Config) (resource.Store, error) {
	return resource.NewDirStore(cfg.Resources.Root)
}

func newActionRegistry(authn *auth.Authenticator, store auth.Store) (*action.Registry, error) {
	return action.NewDefaultRegistry(authn.Scheme(), store, time.Now)
}

func newResolver(cfg *config.Config, reg *action.Registry, store resource.Store) *resolver.Resolver {
	return resolver.New(reg, store, cfg.Resources.RootPage)
}

func newServer(cfg *config.Config, engine *service.Engine, logger *slog.Logger, m *metrics.Metrics) *server.Server {
	return server.New(cfg, engine, logger, m)
}

func newAdminEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.Server.ReadHeaderTimeout = 5 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.MetricsMiddleware(m))
	e.Use(echomw.BodyLimit("1K"))
	e.Use(middleware.SecurityHeaders())

	if cfg.Admin.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Admin.RateLimit))
		logger.Info("admin rate limiter enabled", "rps", cfg.Admin.RateLimit.ConnectionsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, srv *server.Server, cfg *config.Config, reg *action.Registry, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := srv.Listen(ctx)
			if err != nil {
				return err
			}
			logger.Info("starting server",
				"addr", srv.Addr(),
				"scheme", cfg.Auth.Scheme,
				"root", cfg.Resources.Root,
				"actions", reg.Len(),
				"keep_alive", cfg.Server.KeepAlive,
				"missing_resource", cfg.Server.MissingResource,
			)
			if cfg.Server.RateLimit.Enabled {
				logger.Info("connection rate limiter enabled", "cps", cfg.Server.RateLimit.ConnectionsPerSecond)
			}
			go func() {
				if err := srv.Serve(ln); err != nil {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return srv.Shutdown(ctx)
		},
	})
}

func startAdmin(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	if !cfg.Admin.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Admin.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind admin %s: %w", addr, err)
			}
			logger.Info("starting admin server", "addr", addr, "metrics_path", cfg.Admin.MetricsPath)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("admin server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down admin server")
			return e.Shutdown(ctx)
		},
	})
}
