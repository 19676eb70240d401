// Package serve implements the HTTP service command.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snapwatch/snapwatch/internal/api"
	"github.com/snapwatch/snapwatch/internal/conf"
	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/detection"
	"github.com/snapwatch/snapwatch/internal/logging"
	"github.com/snapwatch/snapwatch/internal/notification"
	"github.com/snapwatch/snapwatch/internal/observability"
)

// shutdownTimeout bounds graceful HTTP shutdown and in-flight notification sends.
const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the event matching and notification service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		cobra.CheckErr(fmt.Errorf("error binding flags: %w", err))
	}

	return cmd
}

func runServer(settings *conf.Settings) error {
	logging.Init()
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	log := logging.ForService("server")

	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no database backend enabled")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Error("closing database failed", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	dispatcher := notification.NewDispatcher(ds, settings, metrics)
	processor := detection.NewProcessor(ds, dispatcher, settings, metrics)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	api.New(e, ds, settings, processor, metrics)

	port := settings.WebServer.Port
	if port == "" {
		port = "8080"
	}

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Info("server started", "port", port)
	logging.HumanReadable().Info("snapwatch listening", "port", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	// Let in-flight notification sends drain
	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("timed out waiting for notification sends")
	}

	return nil
}
