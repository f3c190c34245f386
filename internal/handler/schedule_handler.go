package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/materialize"
	"github.com/medplan/reminder-engine/internal/service/partition"
	"github.com/medplan/reminder-engine/internal/service/recalc"
)

type ScheduleHandler struct {
	partitioner  *partition.Partitioner
	recalculator *recalc.Recalculator
	materializer *materialize.Materializer
}

func NewScheduleHandler(partitioner *partition.Partitioner, recalculator *recalc.Recalculator, materializer *materialize.Materializer) *ScheduleHandler {
	return &ScheduleHandler{
		partitioner:  partitioner,
		recalculator: recalculator,
		materializer: materializer,
	}
}

// HandleGenerate computes the dose times for a window. A non-zero delay
// produces the delayed-start schedule instead of the even partition.
func (h *ScheduleHandler) HandleGenerate(c *gin.Context) {
	ctx := c.Request.Context()

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "request validation failed",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	windowStart, err := domain.ParseTimeOfDay(req.WindowStart)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	windowEnd, err := domain.ParseTimeOfDay(req.WindowEnd)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var times []domain.TimeOfDay
	if req.DelayMinutes > 0 {
		times, err = h.recalculator.GenerateDelayed(windowStart, windowEnd, req.Count, req.DelayMinutes)
	} else {
		times, err = h.partitioner.Partition(windowStart, windowEnd, req.Count)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWindow) || errors.Is(err, domain.ErrInvalidCount) {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		slog.ErrorContext(ctx, "failed to generate schedule",
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "processing_error", "failed to generate schedule")
		return
	}

	resp := GenerateResponse{
		Times: make([]string, 0, len(times)),
		Count: len(times),
	}
	for _, tod := range times {
		resp.Times = append(resp.Times, tod.String())
	}

	c.JSON(http.StatusOK, resp)
}

// HandleMaterialize turns a rule and a date into concrete dose instants.
func (h *ScheduleHandler) HandleMaterialize(c *gin.Context) {
	ctx := c.Request.Context()

	var req MaterializeRequest
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

	doses, err := h.materializer.Materialize(rule, date)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWindow) || errors.Is(err, domain.ErrInvalidCount) {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		slog.ErrorContext(ctx, "failed to materialize doses",
			slog.String("rule_id", rule.ID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "processing_error", "failed to materialize doses")
		return
	}

	resp := MaterializeResponse{
		Doses: make([]DoseResponse, 0, len(doses)),
		Count: len(doses),
	}
	for _, dose := range doses {
		resp.Doses = append(resp.Doses, DoseResponse{
			RuleID:     dose.RuleID,
			Date:       domain.DateKey(dose.Date),
			Time:       dose.Time.String(),
			ReminderID: dose.ReminderID(),
			TargetTime: dose.At(),
		})
	}

	c.JSON(http.StatusOK, resp)
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, ErrorResponse{
		Error:   errType,
		Message: message,
	})
}
