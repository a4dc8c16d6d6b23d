package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/enrichman/httpgrace"

	"github.com/opencomp/recordcache/internal/api/route"
	appctx "github.com/opencomp/recordcache/internal/app"
	"github.com/opencomp/recordcache/internal/cache"
	"github.com/opencomp/recordcache/internal/config"
	"github.com/opencomp/recordcache/internal/fetch"
	"github.com/opencomp/recordcache/internal/logger"
	"github.com/opencomp/recordcache/internal/store"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	logger.SetLevel(cfg.Misc.LogLevel)
	config.WatchLogLevel()
	logger.WithComponent("main").Infof("refresh interval: %v, snapshot path: %s", cfg.Data.RefreshInterval, cfg.Data.SnapshotPath)
	logger.WithComponent("main").Infof("server will run on port: %d", cfg.Server.Port)

	snapStore, err := store.NewSnapshotStore(cfg.Data.SnapshotPath)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init snapshot store: %v", err)
	}

	fetcher, err := fetch.NewHTTPFetcher(cfg.Source.URL, cfg.Source.Timeout, cfg.Source.RetryMax)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init fetcher: %v", err)
	}

	view := cache.NewView()

	app, err := appctx.New(cfg, view, snapStore, fetcher)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	// The cache must be servable before the HTTP server accepts requests:
	// either the persisted snapshot or a synchronous first fetch. Failure here
	// means there is no data at all, so it is fatal.
	if err := app.StartRefresher(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start refresher: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := route.SetupRoutes(app, logger.Logger)
	srv := createGraceHTTPServer(app.BaseCtx, cfg.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Fatal(err)
	}
}

func createGraceHTTPServer(ctx context.Context, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	return httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Info("shutting down server....")
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), "[server] ", log.LstdFlags)
			},
		),
	)
}
