// Package serve implements the serve subcommand, running the full
// identification service.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verdanthq/plantid-go/internal/api"
	"github.com/verdanthq/plantid-go/internal/camera"
	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/history"
	"github.com/verdanthq/plantid-go/internal/httpclient"
	"github.com/verdanthq/plantid-go/internal/logging"
	"github.com/verdanthq/plantid-go/internal/mqttpub"
	"github.com/verdanthq/plantid-go/internal/notification"
	"github.com/verdanthq/plantid-go/internal/observability"
	"github.com/verdanthq/plantid-go/internal/plantid"
)

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the plant identification service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p",
		settings.WebServer.Port, "Port for the web server")

	return cmd
}

func run(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("serve")

	if err := conf.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLogger, err := logging.NewFileLogger(settings.Main.Log.Path, "serve", level)
		if err != nil {
			logger.Warn("service log file unavailable, logging to console only",
				"path", settings.Main.Log.Path, "error", err)
		} else {
			defer func() { _ = closeLogger() }()
			logger = fileLogger
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	notifications := notification.NewService(nil)
	defer notifications.Stop()
	notifications.ConnectErrorReporting()

	store, err := history.Open(settings, metrics.History)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	cfg := httpclient.DefaultConfig()
	cfg.DefaultTimeout = settings.AI.Timeout
	hc := httpclient.New(&cfg)
	defer hc.Close()

	identifier := plantid.New(settings, hc, metrics.Identification)
	cameraManager := camera.NewManager(settings, metrics.Camera)

	var publisher *mqttpub.Client
	if settings.MQTT.Enabled {
		publisher = mqttpub.NewClient(settings, metrics.MQTT)
		if err := publisher.Connect(ctx); err != nil {
			logger.Warn("MQTT connection failed, continuing without publishing", "error", err)
		}
		defer publisher.Disconnect()
	}

	controller := api.New(settings, identifier, cameraManager, store,
		notifications, publisher, metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := controller.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context cancelled")
	}

	cameraManager.Stop()
	return controller.Shutdown()
}
