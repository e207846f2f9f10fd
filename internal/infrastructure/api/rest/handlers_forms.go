package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridflow/gridflow/internal/application/trigger"
	"github.com/gridflow/gridflow/internal/infrastructure/logger"
)

// FormHandlers provides HTTP handlers for form trigger submission.
type FormHandlers struct {
	registry *trigger.FormRegistry
	logger   *logger.Logger
}

// NewFormHandlers creates a new FormHandlers instance.
func NewFormHandlers(registry *trigger.FormRegistry, log *logger.Logger) *FormHandlers {
	return &FormHandlers{registry: registry, logger: log}
}

// HandleGetForm handles GET /forms/{token}
func (h *FormHandlers) HandleGetForm(c *gin.Context) {
	token := c.Param("token")

	form, err := h.registry.GetForm(c.Request.Context(), token)
	if err != nil {
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, form)
}

// HandleSubmitForm handles POST /forms/{token}/submit
func (h *FormHandlers) HandleSubmitForm(c *gin.Context) {
	token := c.Param("token")

	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	submittedBy, _ := GetUserID(c)

	execution, err := h.registry.SubmitTriggerForm(c.Request.Context(), token, data, submittedBy)
	if err != nil {
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusAccepted, execution)
}

// HandleSubmitResumeForm handles POST /forms/execution/{executionId}/node/{nodeId}/submit
func (h *FormHandlers) HandleSubmitResumeForm(c *gin.Context) {
	executionID := c.Param("executionId")
	nodeID := c.Param("nodeId")

	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	submittedBy, _ := GetUserID(c)

	execution, err := h.registry.SubmitResumeForm(c.Request.Context(), executionID, nodeID, data, submittedBy)
	if err != nil {
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, execution)
}
