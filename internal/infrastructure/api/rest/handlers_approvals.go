package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gridflow/gridflow/internal/application/approval"
	"github.com/gridflow/gridflow/internal/infrastructure/logger"
)

// ApprovalHandlers provides HTTP handlers for approval gate actions.
type ApprovalHandlers struct {
	service *approval.Service
	logger  *logger.Logger
}

// NewApprovalHandlers creates a new ApprovalHandlers instance.
func NewApprovalHandlers(service *approval.Service, log *logger.Logger) *ApprovalHandlers {
	return &ApprovalHandlers{service: service, logger: log}
}

type approvalActionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Comment  string `json:"comment"`
}

// HandleRecordAction handles POST /api/v1/approvals/{id}/actions
func (h *ApprovalHandlers) HandleRecordAction(c *gin.Context) {
	approvalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid approval id")
		return
	}

	var req approvalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := h.service.RecordAction(c.Request.Context(), approvalID, userID, approval.Decision(req.Decision), req.Comment)
	if err != nil {
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}
