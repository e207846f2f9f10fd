package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridflow/gridflow/internal/application/trigger"
	"github.com/gridflow/gridflow/internal/infrastructure/logger"
)

// PathWebhookHandlers provides the HTTP handler for the path-addressed
// webhook ingress, distinct from the legacy trigger-ID webhook endpoints.
type PathWebhookHandlers struct {
	registry *trigger.PathWebhookRegistry
	logger   *logger.Logger
}

// NewPathWebhookHandlers creates a new PathWebhookHandlers instance.
func NewPathWebhookHandlers(registry *trigger.PathWebhookRegistry, log *logger.Logger) *PathWebhookHandlers {
	return &PathWebhookHandlers{registry: registry, logger: log}
}

// HandleWebhook handles ANY /webhook/{path...} requests.
func (h *PathWebhookHandlers) HandleWebhook(c *gin.Context) {
	path := c.Param("path")
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, trigger.PathWebhookMaxBody+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > trigger.PathWebhookMaxBody {
		respondError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var payload map[string]interface{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			respondError(c, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	execution, err := h.registry.Dispatch(
		c.Request.Context(),
		path,
		c.Request.Method,
		body,
		payload,
		headers,
		getSourceIP(c),
	)
	if err != nil {
		h.logger.Error("Failed to dispatch path webhook", "error", err, "path", path, "method", c.Request.Method)
		respondAPIError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"execution_id": execution.ID,
		"message":      "workflow execution started",
	})
}
