package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/erazemk/noleggio/internal/admin"
	"github.com/erazemk/noleggio/internal/api"
	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/objects"
	"github.com/erazemk/noleggio/internal/ratelimit"
	"github.com/erazemk/noleggio/internal/realtime"
	"github.com/erazemk/noleggio/internal/store"
	"github.com/erazemk/noleggio/internal/web"
)

const (
	addrFlag      = "addr"
	baseURLFlag   = "base-url"
	storageFlag   = "storage"
	redisAddrFlag = "redis"
)

// sessionPruneInterval is how often expired admin sessions are dropped.
const sessionPruneInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	flags := dbFlags()
	flags[addrFlag] = &cobraflags.StringFlag{
		Name:  addrFlag,
		Value: "",
		Usage: "listen address (default: :8080)",
	}
	flags[baseURLFlag] = &cobraflags.StringFlag{
		Name:  baseURLFlag,
		Value: "",
		Usage: "public URL of this server, used in image URLs (default: http://localhost:8080)",
	}
	flags[storageFlag] = &cobraflags.StringFlag{
		Name:  storageFlag,
		Value: "",
		Usage: "object storage backend: db or cloudinary (default: db)",
	}
	flags[redisAddrFlag] = &cobraflags.StringFlag{
		Name:  redisAddrFlag,
		Value: "",
		Usage: "Redis address for realtime fan-out and login throttling (default: disabled)",
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin panel and API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()

	database, err := openDatabase(cfg, cfg.DB.AutoMigrate)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	slog.Info("database ready", "driver", cfg.DB.Driver, "migrated", cfg.DB.AutoMigrate)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Generated and stored on first run.
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("getting JWT secret: %w", err)
		}
	}
	issuer := auth.NewIssuer(secret, cfg.Auth.TokenTTL)

	objs, err := openObjectStore(cfg, database)
	if err != nil {
		return err
	}
	slog.Info("object storage ready", "backend", cfg.Storage.Backend)

	svc := newCatalogService(cfg, database, objs)

	var hub realtime.Hub = realtime.NewLocalHub()
	var limiter, contactLimiter *ratelimit.Limiter
	if rdb := newRedisClient(cfg); rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		hub = realtime.NewRedisHub(rdb)
		limiter = ratelimit.New(rdb, "ratelimit:login:", ratelimit.DefaultLimit, ratelimit.DefaultWindow)
		contactLimiter = ratelimit.New(rdb, "ratelimit:contact:", ratelimit.ContactLimit, ratelimit.ContactWindow)
		slog.Info("redis ready", "addr", cfg.Redis.Addr)
	}

	sessions := admin.NewSessions(svc)
	go sessions.PruneEvery(ctx, sessionPruneInterval)

	apiRouter := api.NewRouter(api.Deps{
		DB:             database,
		Catalog:        svc,
		Hub:            hub,
		Issuer:         issuer,
		Limiter:        limiter,
		ContactLimiter: contactLimiter,
	})
	webRouter, err := web.NewRouter(web.Deps{
		DB:            database,
		Catalog:       svc,
		Sessions:      sessions,
		Hub:           hub,
		Issuer:        issuer,
		Limiter:       limiter,
		SecureCookies: strings.HasPrefix(cfg.BaseURL, "https://"),
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle(objects.Pattern, objects.Handler(objs))
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Cancelling ctx also ends open event streams, so Shutdown can finish.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	return serve(ctx, server)
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

