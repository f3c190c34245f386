package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/engine"
)

type ReminderHandler struct {
	engine *engine.Engine
}

func NewReminderHandler(eng *engine.Engine) *ReminderHandler {
	return &ReminderHandler{
		engine: eng,
	}
}

// HandleSchedule admits a rule's doses for a date.
func (h *ReminderHandler) HandleSchedule(c *gin.Context) {
	ctx := c.Request.Context()

	var req ScheduleRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "request validation failed",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	rule, err := req.Rule.toDomain()
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	date, err := domain.ParseDateKey(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	admitted, err := h.engine.AdmitRule(ctx, rule, date)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWindow) || errors.Is(err, domain.ErrInvalidCount) {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		slog.ErrorContext(ctx, "failed to schedule reminders",
			slog.String("rule_id", rule.ID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "processing_error", "failed to schedule reminders")
		return
	}

	slog.InfoContext(ctx, "reminders scheduled",
		slog.String("rule_id", rule.ID),
		slog.Int("admitted", admitted),
	)

	c.JSON(http.StatusOK, ScheduleRemindersResponse{Admitted: admitted})
}

// HandleCancel withdraws a single reminder or every reminder of a rule.
func (h *ReminderHandler) HandleCancel(c *gin.Context) {
	ctx := c.Request.Context()

	var req CancelRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "request validation failed",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	switch {
	case req.ReminderID != "":
		if err := h.engine.CancelReminder(ctx, req.ReminderID); err != nil {
			if errors.Is(err, domain.ErrReminderNotFound) {
				// Cancelling an id no longer present is a no-op.
				c.JSON(http.StatusOK, CancelRemindersResponse{Success: true, Message: "reminder already gone"})
				return
			}
			slog.ErrorContext(ctx, "failed to cancel reminder",
				slog.String("reminder_id", req.ReminderID),
				slog.String("error", err.Error()),
			)
			respondError(c, http.StatusInternalServerError, "processing_error", "failed to cancel reminder")
			return
		}
		c.JSON(http.StatusOK, CancelRemindersResponse{Success: true, Message: "reminder cancelled"})

	case req.RuleID != "":
		if err := h.engine.CancelRule(ctx, req.RuleID); err != nil {
			slog.ErrorContext(ctx, "failed to cancel rule reminders",
				slog.String("rule_id", req.RuleID),
				slog.String("error", err.Error()),
			)
			respondError(c, http.StatusInternalServerError, "processing_error", "failed to cancel reminders")
			return
		}
		c.JSON(http.StatusOK, CancelRemindersResponse{Success: true, Message: "rule reminders cancelled"})

	default:
		respondError(c, http.StatusBadRequest, "validation_error", "reminder_id or rule_id is required")
	}
}
