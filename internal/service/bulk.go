package service

import (
	"context"
	"time"

	"github.com/autoassist/backend/internal/metrics"
	"github.com/autoassist/backend/internal/models"
)

// AssignPendingBulk drives the selector across every pending request
// in creation order, sharing one mutable load snapshot for the whole
// run. Selections reserve load in memory before the store write lands,
// so two requests in the same run cannot jointly push a technician
// over the cap. One unresolved request never aborts the batch.
func (e *Engine) AssignPendingBulk(ctx context.Context) (models.BatchResult, error) {
	result := models.BatchResult{
		Assignments: []models.AssignmentDecision{},
		Errors:      []models.BatchItemError{},
	}

	pending, err := e.Store.PendingRequestsForAssignment(ctx)
	if err != nil {
		return result, err
	}
	if len(pending) == 0 {
		return result, ErrNoPendingRequests
	}

	techs, err := e.Store.ListTechnicians(ctx)
	if err != nil {
		return result, err
	}
	busy, err := e.Store.BusyTechnicianIDs(ctx)
	if err != nil {
		return result, err
	}
	loads, err := e.Store.DailyLoadCounts(ctx, StartOfDayUTC(time.Now()))
	if err != nil {
		return result, err
	}

	limit := e.dailyCap()
	metrics.BatchRuns.Inc()

	for _, req := range pending {
		tech, policy, ok := e.selectForRequest(ctx, req, techs, busy, loads, limit)
		if !ok {
			result.Errors = append(result.Errors, models.BatchItemError{
				RequestID: req.ID,
				Error:     "no eligible technician (daily limit reached or no match)",
			})
			metrics.BatchUnassigned.Inc()
			continue
		}

		// Reserve before persisting so the next request in this run
		// sees the updated load. The reservation is kept even when the
		// commit below loses a race; under-assignment is acceptable,
		// over-assignment is not.
		loads[tech.ID]++

		decision, err := e.commitAssignment(ctx, req.ID, tech, policy)
		if err != nil {
			result.Errors = append(result.Errors, models.BatchItemError{
				RequestID: req.ID,
				Error:     err.Error(),
			})
			continue
		}
		result.Assignments = append(result.Assignments, decision)
	}

	return result, nil
}

// selectForRequest applies the tiered policy for one request: ranked
// pick from the available pool, ranked pick from the eligible pool,
// then deterministic least-loaded fallback.
func (e *Engine) selectForRequest(ctx context.Context, req models.ServiceRequest, techs []models.Technician, busy map[string]bool, loads models.DailyLoad, limit int) (models.Technician, string, bool) {
	if tier1 := AvailableTechnicians(techs, busy, loads, limit); len(tier1) > 0 {
		tech, err := RankCandidates(ctx, e.Oracle, req.RequestDetails, tier1)
		if err == nil {
			return tech, models.PolicyRanked, true
		}
		metrics.OracleFailures.WithLabelValues("bulk-tier1").Inc()
		e.Logger.Warn().Err(err).Str("request_id", req.ID).Msg("tier-1 ranking failed, widening pool")
	}

	tier2 := EligibleTechnicians(techs, loads, limit)
	if len(tier2) == 0 {
		return models.Technician{}, "", false
	}

	tech, err := RankCandidates(ctx, e.Oracle, req.RequestDetails, tier2)
	if err == nil {
		return tech, models.PolicyFallbackRanked, true
	}
	metrics.OracleFailures.WithLabelValues("bulk-tier2").Inc()
	e.Logger.Warn().Err(err).Str("request_id", req.ID).Msg("tier-2 ranking failed, falling back to least loaded")

	tech, ok := LeastLoaded(tier2, loads)
	if !ok {
		return models.Technician{}, "", false
	}
	return tech, models.PolicyFallbackLeastLoad, true
}
