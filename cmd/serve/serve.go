// Package serve starts the HTTP API server.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/obralens/obralens/internal/api"
	"github.com/obralens/obralens/internal/conf"
	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/logging"
	"github.com/obralens/obralens/internal/media"
	"github.com/obralens/obralens/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}
}

func run(settings *conf.Settings) error {
	logging.Init()
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	logger := logging.ForService("server")
	if settings.Logging.Dir != "" {
		fileLogger, closer, err := logging.NewFileLogger(
			filepath.Join(settings.Logging.Dir, "obralens.log"), "server", slog.LevelInfo)
		if err != nil {
			logger.Warn("file logging disabled", "error", err)
		} else {
			defer closer()
			logger = fileLogger
		}
	}

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	mediaStore, err := media.NewStore(settings.Uploads.Root, logger)
	if err != nil {
		return fmt.Errorf("initializing uploads store: %w", err)
	}

	metrics := observability.NewMetrics()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: settings.Server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodHead},
	}))
	if settings.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(settings.Server.BodyLimit))
	}
	e.Use(requestMetrics(metrics))

	e.Static("/uploads", mediaStore.Root())
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api.New(e, ds, settings, mediaStore, metrics, logger)

	addr := settings.Server.Host + ":" + strconv.Itoa(settings.Server.Port)
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// requestMetrics counts requests by method and status class.
func requestMetrics(metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)
			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			class := strconv.Itoa(status/100) + "xx"
			metrics.HTTPRequests.WithLabelValues(ctx.Request().Method, class).Inc()
			return err
		}
	}
}
