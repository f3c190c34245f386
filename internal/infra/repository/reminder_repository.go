package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medplan/reminder-engine/internal/domain"
)

const (
	pendingReminderKeyPrefix = "reminder:pending:"
	ruleIndexKeyPrefix       = "reminder:rule:"

	// Covers the arming horizon plus the staleness threshold with margin, so
	// entries the engine failed to clean up age out on their own.
	reminderTTL = 48 * time.Hour
)

type reminderRecord struct {
	ID              string    `json:"id"`
	RuleID          string    `json:"rule_id"`
	DoseDate        string    `json:"dose_date"`
	DoseTimeMinutes int       `json:"dose_time_minutes"`
	TargetTime      time.Time `json:"target_time"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	DedupTag        string    `json:"dedup_tag"`
	Actions         []string  `json:"actions,omitempty"`
	State           string    `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
	DeliveredAt     time.Time `json:"delivered_at,omitzero"`
}

type reminderRepository struct {
	client *redis.Client
}

func NewReminderRepository(client *redis.Client) domain.ReminderStore {
	return &reminderRepository{
		client: client,
	}
}

func (r *reminderRepository) Put(ctx context.Context, reminder *domain.PendingReminder) error {
	if reminder == nil || reminder.ID == "" {
		return ErrInvalidReminderData
	}

	data, err := json.Marshal(toRecord(reminder))
	if err != nil {
		return ErrInvalidReminderData
	}

	indexKey := ruleIndexKeyPrefix + reminder.RuleID

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, pendingReminderKeyPrefix+reminder.ID, data, reminderTTL)
	pipe.SAdd(ctx, indexKey, reminder.ID)
	pipe.Expire(ctx, indexKey, reminderTTL)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *reminderRepository) Get(ctx context.Context, id string) (*domain.PendingReminder, error) {
	data, err := r.client.Get(ctx, pendingReminderKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, err
	}

	var record reminderRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, ErrInvalidReminderData
	}

	return fromRecord(&record)
}

func (r *reminderRepository) GetAll(ctx context.Context) ([]*domain.PendingReminder, error) {
	reminders := make([]*domain.PendingReminder, 0)

	iter := r.client.Scan(ctx, 0, pendingReminderKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(pendingReminderKeyPrefix):]

		reminder, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrReminderNotFound) {
				continue
			}
			return nil, err
		}
		reminders = append(reminders, reminder)
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return reminders, nil
}

func (r *reminderRepository) GetByRule(ctx context.Context, ruleID string) ([]*domain.PendingReminder, error) {
	ids, err := r.client.SMembers(ctx, ruleIndexKeyPrefix+ruleID).Result()
	if err != nil {
		return nil, err
	}

	reminders := make([]*domain.PendingReminder, 0, len(ids))
	for _, id := range ids {
		reminder, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrReminderNotFound) {
				// Index entry outlived the reminder key; drop it.
				r.client.SRem(ctx, ruleIndexKeyPrefix+ruleID, id)
				continue
			}
			return nil, err
		}
		reminders = append(reminders, reminder)
	}

	return reminders, nil
}

func (r *reminderRepository) Delete(ctx context.Context, id string) error {
	reminder, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReminderNotFound) {
			return nil // Already deleted
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, pendingReminderKeyPrefix+id)
	pipe.SRem(ctx, ruleIndexKeyPrefix+reminder.RuleID, id)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *reminderRepository) DeleteByRule(ctx context.Context, ruleID string) error {
	indexKey := ruleIndexKeyPrefix + ruleID

	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, pendingReminderKeyPrefix+id)
	}
	pipe.Del(ctx, indexKey)

	_, err = pipe.Exec(ctx)
	return err
}

func toRecord(reminder *domain.PendingReminder) *reminderRecord {
	return &reminderRecord{
		ID:              reminder.ID,
		RuleID:          reminder.RuleID,
		DoseDate:        domain.DateKey(reminder.DoseDate),
		DoseTimeMinutes: reminder.DoseTime.Minutes(),
		TargetTime:      reminder.TargetTime,
		Title:           reminder.Payload.Title,
		Body:            reminder.Payload.Body,
		DedupTag:        reminder.Payload.DedupTag,
		Actions:         reminder.Payload.Actions,
		State:           reminder.State.String(),
		CreatedAt:       reminder.CreatedAt,
		DeliveredAt:     reminder.DeliveredAt,
	}
}

func fromRecord(record *reminderRecord) (*domain.PendingReminder, error) {
	doseDate, err := domain.ParseDateKey(record.DoseDate)
	if err != nil {
		return nil, ErrInvalidReminderData
	}

	return &domain.PendingReminder{
		ID:         record.ID,
		RuleID:     record.RuleID,
		DoseDate:   doseDate,
		DoseTime:   domain.TimeOfDay(record.DoseTimeMinutes),
		TargetTime: record.TargetTime,
		Payload: domain.AlertPayload{
			Title:    record.Title,
			Body:     record.Body,
			DedupTag: record.DedupTag,
			Actions:  record.Actions,
		},
		State:       domain.ReminderState(record.State),
		CreatedAt:   record.CreatedAt,
		DeliveredAt: record.DeliveredAt,
	}, nil
}
