package service

import "errors"

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrNotPending             = errors.New("request is not pending")
	ErrNotActive              = errors.New("request is not active")
	ErrUnauthorized           = errors.New("actor is not authorized")
	ErrNotQualified           = errors.New("technician role required")
	ErrTechnicianBusy         = errors.New("technician already holds an active request")
	ErrNoAvailableTechnicians = errors.New("no available technicians")
	ErrNoPendingRequests      = errors.New("no pending requests")
	ErrRankingUnavailable     = errors.New("ranking oracle unavailable")
	ErrAIAssignmentFailed     = errors.New("ai assignment failed")
)
