package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"permit-agent/internal/ai"
	"permit-agent/internal/app"
	"permit-agent/internal/transport/http/response"
)

type QueryHandler struct {
	chatService  *app.ChatService
	agentService *app.AgentService
}

func NewQueryHandler(chatService *app.ChatService, agentService *app.AgentService) *QueryHandler {
	return &QueryHandler{chatService: chatService, agentService: agentService}
}

type queryRequest struct {
	SessionID string `json:"sessionId"`
	Prompt    string `json:"prompt"`
}

// Query runs one chat turn and returns the answer plus the retrieved context.
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, app.ErrPromptRequired.Error())
		return
	}

	result, err := h.chatService.Query(c.Request.Context(), strings.TrimSpace(req.SessionID), req.Prompt)
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, result)
}

type evaluateRequest struct {
	SessionID   string          `json:"sessionId"`
	Application json.RawMessage `json:"application"`
}

// Evaluate scores a permit application against the ingested regulations.
func (h *QueryHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, app.ErrApplicationRequired.Error())
		return
	}

	evaluation, err := h.chatService.Evaluate(c.Request.Context(), strings.TrimSpace(req.SessionID), req.Application)
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, gin.H{"evaluation": evaluation})
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

// Reset drops the session, its history, and its uploads. Resetting an
// unknown or absent session succeeds quietly.
func (h *QueryHandler) Reset(c *gin.Context) {
	var req resetRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.agentService.Reset(strings.TrimSpace(req.SessionID)); err != nil {
		response.Message(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}

// writeChatError maps service failures onto the status codes clients expect.
// Upstream Llama Stack errors pass through with their original status and
// body so the frontend can surface provider messages verbatim.
func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrPromptRequired),
		errors.Is(err, app.ErrApplicationRequired):
		response.Message(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Message(c, http.StatusNotFound, err.Error())
	default:
		var apiErr *ai.APIError
		if errors.As(err, &apiErr) && json.Valid([]byte(apiErr.Body)) {
			c.Data(apiErr.StatusCode, "application/json; charset=utf-8", []byte(apiErr.Body))
			return
		}
		response.Message(c, http.StatusInternalServerError, err.Error())
	}
}
