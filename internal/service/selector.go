package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/autoassist/backend/internal/metrics"
	"github.com/autoassist/backend/internal/models"
)

// AssignByAI assigns one pending request via the ranking oracle. The
// candidate pool excludes busy technicians but does not apply the
// daily cap; only the bulk path caps. There is no fallback on this
// path: an oracle failure fails the call.
func (e *Engine) AssignByAI(ctx context.Context, requestID string) (models.AssignmentDecision, error) {
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

	techs, err := e.Store.ListTechnicians(ctx)
	if err != nil {
		return models.AssignmentDecision{}, err
	}
	busy, err := e.Store.BusyTechnicianIDs(ctx)
	if err != nil {
		return models.AssignmentDecision{}, err
	}

	available := NotBusyTechnicians(techs, busy)
	if len(available) == 0 {
		return models.AssignmentDecision{}, ErrNoAvailableTechnicians
	}

	tech, err := RankCandidates(ctx, e.Oracle, req.RequestDetails, available)
	if err != nil {
		metrics.OracleFailures.WithLabelValues("single").Inc()
		e.Logger.Warn().Err(err).Str("request_id", requestID).Msg("oracle ranking failed")
		return models.AssignmentDecision{}, fmt.Errorf("%w: %v", ErrAIAssignmentFailed, err)
	}

	return e.commitAssignment(ctx, requestID, tech, models.PolicyRanked)
}
