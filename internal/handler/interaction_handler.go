package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/engine"
)

type InteractionHandler struct {
	engine *engine.Engine
}

func NewInteractionHandler(eng *engine.Engine) *InteractionHandler {
	return &InteractionHandler{
		engine: eng,
	}
}

// HandleInteraction forwards a user's response to a displayed alert.
func (h *InteractionHandler) HandleInteraction(c *gin.Context) {
	ctx := c.Request.Context()

	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "request validation failed",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.engine.HandleInteraction(ctx, req.ReminderID, req.Action); err != nil {
		switch {
		case errors.Is(err, domain.ErrReminderNotFound):
			respondError(c, http.StatusNotFound, "not_found", "reminder not found")
		case errors.Is(err, engine.ErrUnknownAction):
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, domain.ErrRuleNotFound):
			respondError(c, http.StatusConflict, "rule_unknown", "rule is no longer known to the engine")
		default:
			slog.ErrorContext(ctx, "failed to process interaction",
				slog.String("reminder_id", req.ReminderID),
				slog.String("action", req.Action),
				slog.String("error", err.Error()),
			)
			respondError(c, http.StatusInternalServerError, "processing_error", "failed to process interaction")
		}
		return
	}

	slog.InfoContext(ctx, "interaction processed",
		slog.String("reminder_id", req.ReminderID),
		slog.String("action", req.Action),
	)

	c.JSON(http.StatusOK, InteractionResponse{Success: true})
}

// HandlePermission records the alert surface's permission state. While denied
// the engine neither admits nor delivers.
func (h *InteractionHandler) HandlePermission(c *gin.Context) {
	ctx := c.Request.Context()

	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Granted == nil {
		slog.WarnContext(ctx, "request validation failed",
			slog.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, "validation_error", "granted is required")
		return
	}

	h.engine.SetPermission(*req.Granted)

	slog.InfoContext(ctx, "alert permission updated",
		slog.Bool("granted", *req.Granted),
	)

	c.JSON(http.StatusOK, InteractionResponse{Success: true})
}
