package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// PomodoroHandler exposes the focus timer.
type PomodoroHandler struct {
	service *service.PomodoroService
}

// NewPomodoroHandler constructs a pomodoro handler.
func NewPomodoroHandler(svc *service.PomodoroService) *PomodoroHandler {
	return &PomodoroHandler{service: svc}
}

type timerAction func(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error)

func (h *PomodoroHandler) run(c *gin.Context, action timerAction) {
	state, err := action(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// State godoc
// @Summary Current timer state
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro [get]
func (h *PomodoroHandler) State(c *gin.Context) { h.run(c, h.service.State) }

// Tick godoc
// @Summary Advance the timer to the server clock
// @Description Returns phases completed since the previous call in `completed`.
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/tick [post]
func (h *PomodoroHandler) Tick(c *gin.Context) { h.run(c, h.service.Tick) }

// Start godoc
// @Summary Start the current phase
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pomodoro/start [post]
func (h *PomodoroHandler) Start(c *gin.Context) { h.run(c, h.service.Start) }

// Pause godoc
// @Summary Pause the timer
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/pause [post]
func (h *PomodoroHandler) Pause(c *gin.Context) { h.run(c, h.service.Pause) }

// Resume godoc
// @Summary Resume a paused timer
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/resume [post]
func (h *PomodoroHandler) Resume(c *gin.Context) { h.run(c, h.service.Resume) }

// Reset godoc
// @Summary Reset the current phase
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/reset [post]
func (h *PomodoroHandler) Reset(c *gin.Context) { h.run(c, h.service.Reset) }

// Skip godoc
// @Summary Skip to the next phase
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/skip [post]
func (h *PomodoroHandler) Skip(c *gin.Context) { h.run(c, h.service.Skip) }

// SwitchPhase godoc
// @Summary Jump to a phase
// @Tags Pomodoro
// @Accept json
// @Produce json
// @Param payload body dto.SwitchPhaseRequest true "Phase"
// @Success 200 {object} response.Envelope
// @Router /pomodoro/phase [post]
func (h *PomodoroHandler) SwitchPhase(c *gin.Context) {
	var req dto.SwitchPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
		return h.service.SwitchPhase(ctx, actor, req)
	})
}

// Settings godoc
// @Summary Get timer settings
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/settings [get]
func (h *PomodoroHandler) Settings(c *gin.Context) {
	settings, err := h.service.Settings(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update timer settings
// @Tags Pomodoro
// @Accept json
// @Produce json
// @Param payload body models.PomodoroSettings true "Settings in minutes"
// @Success 200 {object} response.Envelope
// @Router /pomodoro/settings [put]
func (h *PomodoroHandler) UpdateSettings(c *gin.Context) {
	var req models.PomodoroSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
		return h.service.UpdateSettings(ctx, actor, req)
	})
}

// History godoc
// @Summary Completed sessions, newest first
// @Tags Pomodoro
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /pomodoro/history [get]
func (h *PomodoroHandler) History(c *gin.Context) {
	var query dto.PomodoroHistoryQuery
	_ = c.ShouldBindQuery(&query)
	history, err := h.service.History(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// ClearHistory godoc
// @Summary Clear history and stats
// @Tags Pomodoro
// @Success 204
// @Router /pomodoro/history [delete]
func (h *PomodoroHandler) ClearHistory(c *gin.Context) {
	if err := h.service.ClearHistory(c.Request.Context(), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Focus statistics
// @Tags Pomodoro
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pomodoro/stats [get]
func (h *PomodoroHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Report godoc
// @Summary Download history as PDF
// @Tags Pomodoro
// @Produce application/pdf
// @Success 200 {file} file
// @Router /pomodoro/report [get]
func (h *PomodoroHandler) Report(c *gin.Context) {
	file, err := h.service.Report(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendAttachment(c, file)
}
