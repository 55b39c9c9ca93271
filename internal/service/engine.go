package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/autoassist/backend/internal/ai"
	"github.com/autoassist/backend/internal/models"
)

// Store is the slice of the persistence layer the engine needs.
// *db.Store satisfies it.
type Store interface {
	InsertRequest(ctx context.Context, r models.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (models.ServiceRequest, error)
	PendingRequestsForAssignment(ctx context.Context) ([]models.ServiceRequest, error)
	MarkAssigned(ctx context.Context, requestID, technicianID, technicianName string, acceptedAt time.Time) (bool, error)
	MarkClosed(ctx context.Context, requestID string, closedAt time.Time) (bool, error)
	BusyTechnicianIDs(ctx context.Context) (map[string]bool, error)
	DailyLoadCounts(ctx context.Context, since time.Time) (models.DailyLoad, error)
	ListTechnicians(ctx context.Context) ([]models.Technician, error)
	GetUser(ctx context.Context, id string) (models.Technician, error)
	ListVehicles(ctx context.Context, userID string) ([]models.Vehicle, error)
}

type Engine struct {
	Store  Store
	Oracle ai.Oracle
	Logger zerolog.Logger
	Cap    int
}

func (e *Engine) dailyCap() int {
	if e.Cap > 0 {
		return e.Cap
	}
	return DefaultDailyCap
}
