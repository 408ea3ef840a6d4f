package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmassist-backend/logging"
	"pharmassist-backend/middleware"
	"pharmassist-backend/models"
	"pharmassist-backend/service"
)

// Assistant is the subset of service.AssistantService the handlers use
type Assistant interface {
	Answer(ctx context.Context, req service.AnswerRequest) (*service.AnswerResult, error)
	AnswerWithTools(ctx context.Context, req service.AnswerRequest) (*service.AnswerResult, error)
	CheckInteractions(ctx context.Context, items string) (string, error)
}

// AssistantHandler handles HTTP requests for the AI assistant
type AssistantHandler struct {
	assistant Assistant
	logger    *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant Assistant, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistant: assistant,
		logger:    logging.OrNop(logger),
	}
}

// AskRequest represents the request body for the ask endpoints
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// InteractionRequest represents the request body for the interaction checker
type InteractionRequest struct {
	Drugs string `json:"drugs" binding:"required"`
}

// AnswerResponse is the data returned by the ask endpoints
type AnswerResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
	Stage   string   `json:"stage,omitempty"`
}

// Ask handles POST /api/ai/ask. Answers are never personalized here.
func (h *AssistantHandler) Ask(c *gin.Context) {
	h.answer(c, func(req service.AnswerRequest) (*service.AnswerResult, error) {
		if req.Caller != nil {
			req.Caller = &models.CallerContext{UserID: req.Caller.UserID}
		}
		return h.assistant.Answer(c.Request.Context(), req)
	})
}

// AskEnhanced handles POST /api/ai/ask-enhanced; the route is premium-gated
func (h *AssistantHandler) AskEnhanced(c *gin.Context) {
	h.answer(c, func(req service.AnswerRequest) (*service.AnswerResult, error) {
		return h.assistant.Answer(c.Request.Context(), req)
	})
}

// Research handles POST /api/ai/research
func (h *AssistantHandler) Research(c *gin.Context) {
	h.answer(c, func(req service.AnswerRequest) (*service.AnswerResult, error) {
		return h.assistant.AnswerWithTools(c.Request.Context(), req)
	})
}

// DashboardAsk handles POST /api/dashboard/ask
func (h *AssistantHandler) DashboardAsk(c *gin.Context) {
	h.answer(c, func(req service.AnswerRequest) (*service.AnswerResult, error) {
		req.Variant = service.VariantDashboard
		return h.assistant.Answer(c.Request.Context(), req)
	})
}

// CheckInteractions handles POST /api/ai/check-interactions
func (h *AssistantHandler) CheckInteractions(c *gin.Context) {
	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Please provide a list of drugs")
		return
	}

	answer, err := h.assistant.CheckInteractions(c.Request.Context(), req.Drugs)
	if err != nil {
		h.respondServiceError(c, err, "Please provide a list of drugs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    AnswerResponse{Answer: answer},
	})
}

func (h *AssistantHandler) answer(c *gin.Context, run func(service.AnswerRequest) (*service.AnswerResult, error)) {
	var body AskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Question is required")
		return
	}

	caller, _ := middleware.Caller(c)
	result, err := run(service.AnswerRequest{Question: body.Question, Caller: caller})
	if err != nil {
		h.respondServiceError(c, err, "Question is required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": AnswerResponse{
			Answer:  result.Answer,
			Sources: result.Sources,
			Stage:   result.Stage,
		},
	})
}

func (h *AssistantHandler) respondServiceError(c *gin.Context, err error, invalidMessage string) {
	switch {
	case errors.Is(err, service.ErrInputInvalid):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", invalidMessage)
	case errors.Is(err, service.ErrUpstreamUnavailable):
		h.logger.Error("assistant request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "AI_UNAVAILABLE", "Could not get a response from the AI service")
	default:
		h.logger.Error("assistant request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Server error")
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
