package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/llm"
	"medreport-backend/internal/shared/server/middleware"
	"medreport-backend/internal/shared/server/respond"
)

type Handler struct {
	service       *Service
	defaultAPIKey string
}

func NewHandler(service *Service, defaultAPIKey string) *Handler {
	return &Handler{service: service, defaultAPIKey: strings.TrimSpace(defaultAPIKey)}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.send)
	rg.GET("/chat", h.history)
}

type sendRequest struct {
	Message string `json:"message"`
}

func (h *Handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON body", nil)
		return
	}
	apiKey := strings.TrimSpace(c.GetHeader("X-LLM-Api-Key"))
	if apiKey == "" {
		apiKey = h.defaultAPIKey
	}

	reply, err := h.service.Send(c.Request.Context(), middleware.SessionIDFromContext(c), apiKey, req.Message)
	if err != nil {
		var extErr *llm.ExternalServiceError
		switch {
		case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong), errors.Is(err, ErrMissingAPIKey):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.As(err, &extErr):
			respond.Error(c, http.StatusBadGateway, "external_service_error", "The language model service request failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal", "Unable to answer right now", nil)
		}
		return
	}
	respond.OK(c, reply)
}

func (h *Handler) history(c *gin.Context) {
	msgs, err := h.service.History(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Unable to load chat history", nil)
		return
	}
	respond.OK(c, gin.H{"messages": msgs})
}
