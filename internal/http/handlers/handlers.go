package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/autoassist/backend/internal/db"
	"github.com/autoassist/backend/internal/http/middleware"
	"github.com/autoassist/backend/internal/manual"
	"github.com/autoassist/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Engine    *service.Engine
	Validator *validator.Validate
	Logger    zerolog.Logger

	// Current manual index, owned here and swapped wholesale on each
	// upload. Nil until a manual has been uploaded.
	manualMu    sync.RWMutex
	manualIndex *manual.Index
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func actorID(c *gin.Context) string {
	return c.GetString(middleware.ActorIDKey)
}

func actorName(c *gin.Context) string {
	return c.GetString(middleware.ActorNameKey)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// writeServiceError maps engine errors onto the HTTP error envelope.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrNotPending):
		writeError(c, http.StatusBadRequest, "NOT_PENDING", "Request must be pending", nil)
	case errors.Is(err, service.ErrNotActive):
		writeError(c, http.StatusBadRequest, "NOT_ACTIVE", "Only active requests can be closed", nil)
	case errors.Is(err, service.ErrUnauthorized):
		writeError(c, http.StatusForbidden, "FORBIDDEN", "You are not authorized to perform this action", nil)
	case errors.Is(err, service.ErrNotQualified):
		writeError(c, http.StatusBadRequest, "NOT_QUALIFIED", "Assignee must hold the technician role", nil)
	case errors.Is(err, service.ErrTechnicianBusy):
		writeError(c, http.StatusConflict, "TECHNICIAN_BUSY", "Technician already holds an active request", nil)
	case errors.Is(err, service.ErrNoAvailableTechnicians):
		writeError(c, http.StatusBadRequest, "NO_AVAILABLE_TECHNICIANS", "No available technicians", nil)
	case errors.Is(err, service.ErrNoPendingRequests):
		writeError(c, http.StatusBadRequest, "NO_PENDING_REQUESTS", "No pending requests", nil)
	case errors.Is(err, service.ErrAIAssignmentFailed):
		writeError(c, http.StatusInternalServerError, "AI_ASSIGNMENT_FAILED", "AI did not select a valid technician", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Internal error", err.Error())
	}
}
