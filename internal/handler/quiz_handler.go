package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// QuizHandler serves quiz generation and grading.
type QuizHandler struct {
	service *service.QuizService
}

// NewQuizHandler constructs a quiz handler.
func NewQuizHandler(svc *service.QuizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// Generate godoc
// @Summary Generate a quiz
// @Description Fetches questions from the trivia provider; answers are withheld until submission.
// @Tags Quiz
// @Accept json
// @Produce json
// @Param payload body dto.GenerateQuizRequest true "Quiz options"
// @Success 201 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /quiz [post]
func (h *QuizHandler) Generate(c *gin.Context) {
	var req dto.GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quiz, err := h.service.Generate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		quizError(c, err)
		return
	}
	response.Created(c, quiz)
}

// Submit godoc
// @Summary Submit quiz answers
// @Tags Quiz
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SubmitQuizRequest true "Answers"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quiz/{id}/submit [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	var req dto.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func quizError(c *gin.Context, err error) {
	if appErrors.HasCode(err, appErrors.ErrUpstream.Code) {
		response.Error(c, err, map[string]interface{}{"retryable": true})
		return
	}
	response.Error(c, err)
}
