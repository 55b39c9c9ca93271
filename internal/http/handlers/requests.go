package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoassist/backend/internal/models"
	"github.com/autoassist/backend/internal/service"
)

type CreateRequestBody struct {
	RequestDetails string `json:"request_details" validate:"required"`
	VehicleID      string `json:"vehicle_id" validate:"required"`
}

// @Summary Create a service request
// @Tags requests
// @Accept json
// @Produce json
// @Param body body CreateRequestBody true "request payload"
// @Success 201 {object} models.ServiceRequest
// @Failure 400 {object} map[string]any
// @Router /api/requests [post]
func (h *Handler) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(body); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	req, err := h.Engine.CreateRequest(c.Request.Context(), actorID(c), actorName(c), body.RequestDetails, body.VehicleID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Request created successfully", "request": req})
}

func (h *Handler) RequestsAll(c *gin.Context) {
	items, err := h.Store.ListAllRequests(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list requests", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RequestsPending(c *gin.Context) {
	items, err := h.Store.ListPendingRequests(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list pending requests", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RequestsActive(c *gin.Context) {
	items, err := h.Store.ListRequestsByTechnician(c.Request.Context(), actorID(c), models.StatusActive)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list active requests", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RequestsClosed(c *gin.Context) {
	items, err := h.Store.ListRequestsByTechnician(c.Request.Context(), actorID(c), models.StatusClosed)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list closed requests", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RequestsMine(c *gin.Context) {
	items, err := h.Store.ListRequestsByAuthor(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list your requests", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type AssignRequestBody struct {
	TechnicianID string `json:"technician_id" validate:"required"`
}

// @Summary Manually assign a pending request
// @Tags assignment
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body AssignRequestBody true "technician"
// @Success 200 {object} models.AssignmentDecision
// @Failure 400 {object} map[string]any
// @Router /api/requests/{id}/assign [put]
func (h *Handler) AssignRequest(c *gin.Context) {
	var body AssignRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Technician ID is required", err.Error())
		return
	}
	if err := h.Validator.Struct(body); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	decision, err := h.Engine.Assign(c.Request.Context(), c.Param("id"), body.TechnicianID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request assigned successfully", "decision": decision})
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	decision, err := h.Engine.Accept(c.Request.Context(), c.Param("id"), actorID(c), actorName(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request accepted successfully", "decision": decision})
}

func (h *Handler) CloseRequest(c *gin.Context) {
	if err := h.Engine.Close(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request closed successfully"})
}

// @Summary Assign one request via the ranking oracle
// @Tags assignment
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.AssignmentDecision
// @Failure 500 {object} map[string]any
// @Router /api/requests/{id}/assign-ai [put]
func (h *Handler) AssignRequestAI(c *gin.Context) {
	decision, err := h.Engine.AssignByAI(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Technician assigned by AI", "decision": decision})
}

// @Summary Assign all pending requests in one pass
// @Tags assignment
// @Produce json
// @Success 200 {object} models.BatchResult
// @Router /api/assignments/bulk [put]
func (h *Handler) AssignBulkAI(c *gin.Context) {
	result, err := h.Engine.AssignPendingBulk(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) TechniciansList(c *gin.Context) {
	items, err := h.Store.ListTechnicians(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to fetch technicians", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.Store.DashboardCounts(c.Request.Context(), service.StartOfDayUTC(time.Now()))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to fetch dashboard metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}
