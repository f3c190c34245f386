//go:build gcloud

package alertsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/medplan/reminder-engine/internal/domain"
)

// CloudTasksSurface delivers alerts through a Cloud Tasks queue whose target
// pushes to the user's devices. The task name carries the dedup tag, so a
// duplicate display attempt collides with the existing task.
type CloudTasksSurface struct {
	client     *cloudtasks.Client
	projectID  string
	locationID string
	queueID    string
	targetURL  string
	maxRetries int
}

type CloudTasksConfig struct {
	ProjectID  string
	LocationID string
	QueueID    string
	TargetURL  string
	MaxRetries int
}

func NewCloudTasksSurface(ctx context.Context, cfg CloudTasksConfig) (*CloudTasksSurface, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &CloudTasksSurface{
		client:     client,
		projectID:  cfg.ProjectID,
		locationID: cfg.LocationID,
		queueID:    cfg.QueueID,
		targetURL:  cfg.TargetURL,
		maxRetries: maxRetries,
	}, nil
}

func (s *CloudTasksSurface) Display(ctx context.Context, reminder *domain.PendingReminder) error {
	queuePath := fmt.Sprintf("projects/%s/locations/%s/queues/%s",
		s.projectID, s.locationID, s.queueID)

	payload, err := json.Marshal(AlertRequest{
		Tag:        reminder.Payload.DedupTag,
		Title:      reminder.Payload.Title,
		Body:       reminder.Payload.Body,
		Actions:    reminder.Payload.Actions,
		TargetTime: reminder.TargetTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert request: %w", err)
	}

	task := &taskspb.Task{
		Name: s.taskPath(reminder.Payload.DedupTag),
		MessageType: &taskspb.Task_HttpRequest{
			HttpRequest: &taskspb.HttpRequest{
				HttpMethod: taskspb.HttpMethod_POST,
				Url:        s.targetURL,
				Headers: map[string]string{
					"Content-Type": "application/json",
				},
				Body: payload,
			},
		},
	}
	if reminder.TargetTime.After(time.Now()) {
		task.ScheduleTime = timestamppb.New(reminder.TargetTime)
	}

	req := &taskspb.CreateTaskRequest{
		Parent: queuePath,
		Task:   task,
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
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

		err := s.createTask(ctx, req, reminder.ID)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for alert display",
		slog.String("reminder_id", reminder.ID),
		slog.Int("max_retries", s.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to display alert after %d retries: %w", s.maxRetries, lastErr)
}

func (s *CloudTasksSurface) createTask(ctx context.Context, req *taskspb.CreateTaskRequest, reminderID string) error {
	slog.Debug("registering alert to Cloud Tasks",
		slog.String("queue_path", req.Parent),
		slog.String("reminder_id", reminderID),
	)

	createdTask, err := s.client.CreateTask(ctx, req)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			slog.Info("alert task already registered, treating as delivered",
				slog.String("reminder_id", reminderID),
			)
			return nil
		}

		slog.Warn("failed to create alert task",
			slog.String("reminder_id", reminderID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create alert task: %w", err)
	}

	slog.Info("alert registered to Cloud Tasks",
		slog.String("task_name", createdTask.Name),
		slog.String("reminder_id", reminderID),
	)

	return nil
}

func (s *CloudTasksSurface) Dismiss(ctx context.Context, dedupTag string) error {
	taskPath := s.taskPath(dedupTag)

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying alert dismissal",
				slog.String("tag", dedupTag),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := s.deleteTask(ctx, taskPath, dedupTag)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for alert dismissal",
		slog.String("tag", dedupTag),
		slog.Int("max_retries", s.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to dismiss alert after %d retries: %w", s.maxRetries, lastErr)
}

func (s *CloudTasksSurface) deleteTask(ctx context.Context, taskPath, dedupTag string) error {
	slog.Debug("deleting alert task from Cloud Tasks",
		slog.String("task_path", taskPath),
		slog.String("tag", dedupTag),
	)

	err := s.client.DeleteTask(ctx, &taskspb.DeleteTaskRequest{
		Name: taskPath,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Info("alert task not found in Cloud Tasks (may have been processed)",
				slog.String("tag", dedupTag),
			)
			return nil
		}

		slog.Warn("failed to delete alert task",
			slog.String("tag", dedupTag),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete alert task: %w", err)
	}

	slog.Info("alert task deleted from Cloud Tasks",
		slog.String("tag", dedupTag),
	)
	return nil
}

func (s *CloudTasksSurface) taskPath(dedupTag string) string {
	// Task IDs only allow letters, digits, hyphens and underscores.
	taskID := strings.ReplaceAll(dedupTag, ":", "-")
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s/tasks/%s",
		s.projectID, s.locationID, s.queueID, taskID)
}

func (s *CloudTasksSurface) Close() error {
	return s.client.Close()
}
