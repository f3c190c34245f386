package config

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	MedicationManagementURL string
	Port                    string
	LogLevel                slog.Level
	AlertSurface            AlertSurfaceConfig
	Redis                   *RedisConfig
	Engine                  *EngineConfig
}

type AlertSurfaceConfig struct {
	NotifierURL string

	GCloudProjectID  string
	GCloudLocationID string
	GCloudQueueID    string
	GCloudTargetURL  string

	MaxRetries int
}

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		MedicationManagementURL: os.Getenv("MEDICATION_MANAGEMENT_URL"),
		Port:                    port,
		LogLevel:                parseLogLevel(os.Getenv("LOG_LEVEL")),
		AlertSurface: AlertSurfaceConfig{
			NotifierURL: os.Getenv("ALERT_NOTIFIER_URL"),

			GCloudProjectID:  os.Getenv("GCLOUD_PROJECT_ID"),
			GCloudLocationID: os.Getenv("GCLOUD_LOCATION_ID"),
			GCloudQueueID:    os.Getenv("GCLOUD_QUEUE_ID"),
			GCloudTargetURL:  os.Getenv("GCLOUD_TARGET_URL"),

			MaxRetries: positiveIntEnv("ALERT_NOTIFIER_MAX_RETRIES", 3),
		},
		Redis:  redisConfig,
		Engine: LoadEngineConfig(),
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
