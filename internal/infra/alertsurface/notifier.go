//go:build !gcloud

package alertsurface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
)

// NotifierClient delivers alerts to a local notifier service over HTTP.
type NotifierClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewNotifierClient(baseURL string, maxRetries int) *NotifierClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &NotifierClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: maxRetries,
	}
}

func (c *NotifierClient) Display(ctx context.Context, reminder *domain.PendingReminder) error {
	reqBody, err := json.Marshal(AlertRequest{
		Tag:        reminder.Payload.DedupTag,
		Title:      reminder.Payload.Title,
		Body:       reminder.Payload.Body,
		Actions:    reminder.Payload.Actions,
		TargetTime: reminder.TargetTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert request: %w", err)
	}

	url := fmt.Sprintf("%s/alerts", c.baseURL)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying alert display",
				slog.String("reminder_id", reminder.ID),
				slog.String("rule_id", reminder.RuleID),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := c.doDisplay(ctx, url, reqBody, reminder.ID)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for alert display",
		slog.String("reminder_id", reminder.ID),
		slog.Int("max_retries", c.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to display alert after %d retries: %w", c.maxRetries, lastErr)
}

func (c *NotifierClient) doDisplay(ctx context.Context, url string, reqBody []byte, reminderID string) error {
	slog.Debug("displaying alert via notifier",
		slog.String("url", url),
		slog.String("reminder_id", reminderID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("failed to send request to notifier",
			slog.String("reminder_id", reminderID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.Warn("unexpected status code from notifier",
			slog.String("reminder_id", reminderID),
			slog.Int("status_code", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var alertResp AlertResponse
	if err := json.NewDecoder(resp.Body).Decode(&alertResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	slog.Info("alert displayed via notifier",
		slog.String("alert_name", alertResp.Name),
		slog.String("reminder_id", reminderID),
	)

	return nil
}

func (c *NotifierClient) Dismiss(ctx context.Context, dedupTag string) error {
	url := fmt.Sprintf("%s/alerts/%s", c.baseURL, dedupTag)

	slog.Debug("dismissing alert via notifier",
		slog.String("url", url),
		slog.String("tag", dedupTag),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("failed to send dismiss request to notifier",
			slog.String("tag", dedupTag),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Info("alert not found on notifier (may have been dismissed by the user)",
			slog.String("tag", dedupTag),
		)
		return nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		slog.Warn("unexpected status code when dismissing alert",
			slog.String("tag", dedupTag),
			slog.Int("status_code", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	slog.Info("alert dismissed via notifier",
		slog.String("tag", dedupTag),
	)

	return nil
}
