package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/assistant"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/middleware"
	"github.com/shopmind/shopmind-backend/internal/services"
)

type AssistantHandler struct {
	log     *logger.Logger
	service *services.AssistantService
}

func NewAssistantHandler(log *logger.Logger, service *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{log: log.With("Handler", "AssistantHandler"), service: service}
}

type chatRequest struct {
	Message   string                  `json:"message"`
	ThreadID  string                  `json:"thread_id,omitempty"`
	SessionID string                  `json:"session_id,omitempty"`
	PageType  string                  `json:"page_type,omitempty"`
	History   []assistant.HistoryTurn `json:"history,omitempty"`
}

// Chat handles POST /api/assistant/chat.
func (h *AssistantHandler) Chat(c *gin.Context) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Errorf("missing store context"))
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		RespondError(c, http.StatusBadRequest, "EMPTY_MESSAGE", fmt.Errorf("message is required"))
		return
	}

	in := services.ChatInput{
		StoreID:   storeID,
		Message:   req.Message,
		SessionID: req.SessionID,
		PageType:  req.PageType,
		History:   req.History,
	}
	if req.ThreadID != "" {
		threadID, err := uuid.Parse(req.ThreadID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_THREAD_ID", err)
			return
		}
		in.ThreadID = &threadID
	}

	out, err := h.service.HandleChat(c.Request.Context(), in)
	if err != nil {
		h.log.Error("chat handling failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "CHAT_FAILED", err)
		return
	}
	RespondOK(c, out)
}

// Transcript handles GET /api/assistant/threads/:id.
func (h *AssistantHandler) Transcript(c *gin.Context) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Errorf("missing store context"))
		return
	}
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_THREAD_ID", err)
		return
	}
	msgs, err := h.service.Transcript(c.Request.Context(), storeID, threadID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "THREAD_NOT_FOUND", err)
		return
	}
	RespondOK(c, gin.H{"thread_id": threadID, "messages": msgs})
}
