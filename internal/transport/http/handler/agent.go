package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"permit-agent/internal/app"
	"permit-agent/internal/model"
	"permit-agent/internal/transport/http/response"
)

type AgentHandler struct {
	agentService *app.AgentService
}

func NewAgentHandler(agentService *app.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

type initializeRequest struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	// Port arrives as either a JSON number or a string depending on the client.
	Port any `json:"port"`
}

func (r initializeRequest) params() app.InitParams {
	return app.InitParams{
		Protocol: r.Protocol,
		Host:     r.Host,
		Port:     stringifyPort(r.Port),
	}
}

func stringifyPort(port any) string {
	switch value := port.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

// Initialize runs the whole workflow and returns the batched result.
func (h *AgentHandler) Initialize(c *gin.Context) {
	var req initializeRequest
	// An empty or absent body just means "use the defaults".
	_ = c.ShouldBindJSON(&req)

	result, err := h.agentService.Initialize(c.Request.Context(), req.params(), nil)
	if err != nil {
		var initErr *app.InitError
		if errors.As(err, &initErr) {
			c.JSON(initErr.Status, gin.H{"message": initErr.Message, "logs": initErr.Logs})
			return
		}
		response.Message(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, result)
}

// Stream runs the same workflow but forwards each progress entry as an SSE
// "log" event, then a "complete" or "error" event, always closing with "end".
func (h *AgentHandler) Stream(c *gin.Context) {
	params := app.InitParams{
		Protocol: c.Query("protocol"),
		Host:     c.Query("host"),
		Port:     c.Query("port"),
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Message(c, http.StatusInternalServerError, "stream not supported")
		return
	}
	c.Status(http.StatusOK)

	type outcome struct {
		result *app.InitResult
		err    error
	}
	events := make(chan model.LogEntry, 16)
	done := make(chan outcome, 1)
	go func() {
		result, err := h.agentService.Initialize(c.Request.Context(), params, events)
		close(events)
		done <- outcome{result: result, err: err}
	}()

	for entry := range events {
		writeSSE(c, flusher, "log", entry)
	}

	out := <-done
	if out.err != nil {
		message := out.err.Error()
		status := http.StatusInternalServerError
		logs := []model.LogEntry{}
		var initErr *app.InitError
		if errors.As(out.err, &initErr) {
			status = initErr.Status
			if initErr.Logs != nil {
				logs = initErr.Logs
			}
		}
		writeSSE(c, flusher, "error", gin.H{"message": message, "status": status, "logs": logs})
	} else {
		writeSSE(c, flusher, "complete", gin.H{
			"sessionId":  out.result.SessionID,
			"vectorDbId": out.result.VectorDBID,
			"logs":       out.result.Logs,
		})
	}
	writeSSE(c, flusher, "end", gin.H{})
}

func writeSSE(c *gin.Context, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
