//go:build gcloud

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

func initAlertSurface(ctx context.Context, cfg *config.Config) (alertsurface.AlertSurface, func() error, error) {
	surface, err := alertsurface.NewCloudTasksSurface(ctx, alertsurface.CloudTasksConfig{
		ProjectID:  cfg.AlertSurface.GCloudProjectID,
		LocationID: cfg.AlertSurface.GCloudLocationID,
		QueueID:    cfg.AlertSurface.GCloudQueueID,
		TargetURL:  cfg.AlertSurface.GCloudTargetURL,
		MaxRetries: cfg.AlertSurface.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("alert surface initialized",
		slog.String("type", "cloud_tasks"),
		slog.String("project", cfg.AlertSurface.GCloudProjectID),
		slog.String("location", cfg.AlertSurface.GCloudLocationID),
		slog.String("queue", cfg.AlertSurface.GCloudQueueID),
	)

	cleanup := func() error {
		if err := surface.Close(); err != nil {
			slog.Warn("failed to close cloud tasks surface", slog.String("error", err.Error()))

			return err
		}

		return nil
	}

	return surface, cleanup, nil
}

func initObservability(ctx context.Context, cfg *config.Config) (*observability.Resources, error) {
	serviceName := os.Getenv("K_SERVICE")
	if serviceName == "" {
		serviceName = "reminder-engine"
	}

	env := logging.EnvProd
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GCLOUD_PROJECT_ID")
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: os.Getenv("K_REVISION"),
		},
		Environment:   env,
		GCPProjectID:  projectID,
		SamplingRate:  1.0,
		DefaultModule: logging.Module("reminder-engine"),
		LogLevel:      cfg.LogLevel,
	})
	if err != nil {
		return nil, err
	}

	return obs, nil
}
