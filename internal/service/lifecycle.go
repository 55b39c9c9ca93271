package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/autoassist/backend/internal/metrics"
	"github.com/autoassist/backend/internal/models"
)

// CreateRequest produces a new pending request for one of the
// requester's vehicles.
func (e *Engine) CreateRequest(ctx context.Context, authorID, authorName, details, vehicleID string) (models.ServiceRequest, error) {
	if strings.TrimSpace(details) == "" {
		return models.ServiceRequest{}, fmt.Errorf("%w: request details are required", ErrValidation)
	}
	if strings.TrimSpace(vehicleID) == "" {
		return models.ServiceRequest{}, fmt.Errorf("%w: vehicle id is required", ErrValidation)
	}

	vehicles, err := e.Store.ListVehicles(ctx, authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ServiceRequest{}, fmt.Errorf("%w: user %s", ErrNotFound, authorID)
		}
		return models.ServiceRequest{}, err
	}
	var vehicle *models.Vehicle
	for i := range vehicles {
		if vehicles[i].ID == vehicleID {
			vehicle = &vehicles[i]
			break
		}
	}
	if vehicle == nil {
		return models.ServiceRequest{}, fmt.Errorf("%w: selected vehicle not found", ErrValidation)
	}

	req := models.ServiceRequest{
		ID:             uuid.NewString(),
		AuthorID:       authorID,
		AuthorName:     authorName,
		RequestDetails: details,
		VehicleModel:   vehicle.VehicleModel,
		VehicleType:    vehicle.VehicleType,
		Status:         models.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.Store.InsertRequest(ctx, req); err != nil {
		return models.ServiceRequest{}, err
	}
	return req, nil
}

// Assign manually assigns a pending request to a technician. The
// technician must exist, hold the technician role, and not be busy
// with another active request. The daily cap is not checked on this
// path.
func (e *Engine) Assign(ctx context.Context, requestID, technicianID string) (models.AssignmentDecision, error) {
	req, err := e.Store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AssignmentDecision{}, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
		}
		return models.AssignmentDecision{}, err
	}
	if req.Status != models.StatusPending {
		return models.AssignmentDecision{}, ErrNotPending
	}

	tech, err := e.Store.GetUser(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AssignmentDecision{}, fmt.Errorf("%w: technician %s", ErrNotFound, technicianID)
		}
		return models.AssignmentDecision{}, err
	}
	if tech.Role != models.RoleTechnician {
		return models.AssignmentDecision{}, ErrNotQualified
	}

	busy, err := e.Store.BusyTechnicianIDs(ctx)
	if err != nil {
		return models.AssignmentDecision{}, err
	}
	if busy[tech.ID] {
		return models.AssignmentDecision{}, ErrTechnicianBusy
	}

	return e.commitAssignment(ctx, requestID, tech, models.PolicyManual)
}

// Accept is the technician self-service variant of Assign: the actor
// assigns a pending request to themselves.
func (e *Engine) Accept(ctx context.Context, requestID, technicianID, technicianName string) (models.AssignmentDecision, error) {
	req, err := e.Store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AssignmentDecision{}, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
		}
		return models.AssignmentDecision{}, err
	}
	if req.Status != models.StatusPending {
		return models.AssignmentDecision{}, ErrNotPending
	}

	return e.commitAssignment(ctx, requestID, models.Technician{ID: technicianID, Name: technicianName}, models.PolicyManual)
}

// Close ends an active request. Only the assigned technician may do
// it.
func (e *Engine) Close(ctx context.Context, requestID, actorID string) error {
	req, err := e.Store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: request %s", ErrNotFound, requestID)
		}
		return err
	}
	if req.TechnicianID == nil || *req.TechnicianID != actorID {
		return ErrUnauthorized
	}
	if req.Status != models.StatusActive {
		return ErrNotActive
	}

	ok, err := e.Store.MarkClosed(ctx, requestID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race: the request left active between read and write.
		return ErrNotActive
	}
	return nil
}

// commitAssignment performs the conditional pending->active write. The
// store re-checks the precondition at write time, so a concurrent
// transition surfaces here as ErrNotPending rather than a double
// assignment.
func (e *Engine) commitAssignment(ctx context.Context, requestID string, tech models.Technician, policy string) (models.AssignmentDecision, error) {
	ok, err := e.Store.MarkAssigned(ctx, requestID, tech.ID, tech.Name, time.Now().UTC())
	if err != nil {
		return models.AssignmentDecision{}, err
	}
	if !ok {
		return models.AssignmentDecision{}, ErrNotPending
	}

	e.Logger.Info().
		Str("request_id", requestID).
		Str("technician_id", tech.ID).
		Str("policy", policy).
		Msg("request assigned")
	metrics.Assignments.WithLabelValues(policy).Inc()

	return models.AssignmentDecision{
		RequestID:      requestID,
		TechnicianID:   tech.ID,
		TechnicianName: tech.Name,
		Policy:         policy,
	}, nil
}
