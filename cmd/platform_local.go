//go:build !gcloud

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/medplan/reminder-engine/internal/config"
	"github.com/medplan/reminder-engine/internal/infra/alertsurface"
	"github.com/medplan/reminder-engine/internal/observability"
	"github.com/medplan/reminder-engine/internal/observability/logging"
)

func initAlertSurface(_ context.Context, cfg *config.Config) (alertsurface.AlertSurface, func() error, error) {
	if cfg.AlertSurface.NotifierURL == "" {
		slog.Warn("ALERT_NOTIFIER_URL not set, alerts will be written to the log")

		return alertsurface.NewLogSurface(), nil, nil
	}

	surface := alertsurface.NewNotifierClient(
		cfg.AlertSurface.NotifierURL,
		cfg.AlertSurface.MaxRetries,
	)

	slog.Info("alert surface initialized",
		slog.String("type", "notifier"),
		slog.String("url", cfg.AlertSurface.NotifierURL),
	)

	return surface, nil, nil
}

func initObservability(ctx context.Context, cfg *config.Config) (*observability.Resources, error) {
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "reminder-engine"
	}

	env := logging.EnvDev
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: "",
		},
		Environment:   env,
		GCPProjectID:  "",
		SamplingRate:  1.0,
		DefaultModule: logging.Module("reminder-engine"),
		LogLevel:      cfg.LogLevel,
	})
	if err != nil {
		return nil, err
	}

	return obs, nil
}
