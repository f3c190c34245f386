package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplan/reminder-engine/internal/service/engine"
)

type RuleEventHandler struct {
	engine *engine.Engine
	clock  engine.Clock
}

func NewRuleEventHandler(eng *engine.Engine, clock engine.Clock) *RuleEventHandler {
	if clock == nil {
		clock = engine.NewRealClock()
	}
	return &RuleEventHandler{
		engine: eng,
		clock:  clock,
	}
}

// HandleRuleEvent applies an upstream rule lifecycle event. Activated rules
// are (re)admitted for today; deleted or deactivated rules lose their
// reminders.
func (h *RuleEventHandler) HandleRuleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req RuleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "request validation failed",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	slog.InfoContext(ctx, "processing rule event",
		slog.String("event_type", req.EventType),
		slog.String("rule_id", req.RuleID),
	)

	switch req.EventType {
	case "rule_activated":
		if req.Rule == nil {
			respondError(c, http.StatusBadRequest, "validation_error", "rule payload is required for "+req.EventType)
			return
		}
		rule, err := req.Rule.toDomain()
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		// Activation replaces any prior schedule wholesale, so a window
		// change does not leave stale dose times behind.
		if err := h.engine.CancelRule(ctx, rule.ID); err != nil {
			slog.WarnContext(ctx, "failed to clear prior schedule",
				slog.String("rule_id", rule.ID),
				slog.String("error", err.Error()),
			)
		}

		admitted, err := h.engine.AdmitRule(ctx, rule, h.clock.Now())
		if err != nil {
			slog.ErrorContext(ctx, "failed to admit rule",
				slog.String("rule_id", rule.ID),
				slog.String("error", err.Error()),
			)
			respondError(c, http.StatusInternalServerError, "processing_error", "failed to admit rule")
			return
		}
		c.JSON(http.StatusOK, RuleEventResponse{Success: true, Admitted: admitted})

	case "rule_deleted", "rule_deactivated":
		ruleID := req.RuleID
		if ruleID == "" && req.Rule != nil {
			ruleID = req.Rule.ID
		}
		if ruleID == "" {
			respondError(c, http.StatusBadRequest, "validation_error", "rule_id is required for "+req.EventType)
			return
		}
		if err := h.engine.CancelRule(ctx, ruleID); err != nil {
			slog.ErrorContext(ctx, "failed to cancel rule reminders",
				slog.String("rule_id", ruleID),
				slog.String("error", err.Error()),
			)
			respondError(c, http.StatusInternalServerError, "processing_error", "failed to cancel reminders")
			return
		}
		c.JSON(http.StatusOK, RuleEventResponse{Success: true})

	default:
		respondError(c, http.StatusBadRequest, "validation_error", "unknown event type: "+req.EventType)
	}
}
