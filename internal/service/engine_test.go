package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/autoassist/backend/internal/models"
)

type oracleFunc func(ctx context.Context, prompt string) (string, error)

func (f oracleFunc) Rank(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var oracleDown = oracleFunc(func(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("connection refused")
})

type fakeStore struct {
	requests map[string]*models.ServiceRequest
	order    []string
	users    map[string]models.Technician
	vehicles map[string][]models.Vehicle
	loads    models.DailyLoad
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: map[string]*models.ServiceRequest{},
		users:    map[string]models.Technician{},
		vehicles: map[string][]models.Vehicle{},
		loads:    models.DailyLoad{},
	}
}

func (s *fakeStore) addPending(id, details string) {
	s.requests[id] = &models.ServiceRequest{
		ID:             id,
		AuthorID:       "user1",
		AuthorName:     "User One",
		RequestDetails: details,
		Status:         models.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	s.order = append(s.order, id)
}

func (s *fakeStore) addTechnician(id, name string) {
	s.users[id] = models.Technician{ID: id, Name: name, Role: models.RoleTechnician}
}

func (s *fakeStore) InsertRequest(ctx context.Context, r models.ServiceRequest) error {
	cp := r
	s.requests[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

func (s *fakeStore) GetRequest(ctx context.Context, id string) (models.ServiceRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return models.ServiceRequest{}, pgx.ErrNoRows
	}
	return *r, nil
}

func (s *fakeStore) PendingRequestsForAssignment(ctx context.Context) ([]models.ServiceRequest, error) {
	var out []models.ServiceRequest
	for _, id := range s.order {
		if r := s.requests[id]; r.Status == models.StatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkAssigned(ctx context.Context, requestID, technicianID, technicianName string, acceptedAt time.Time) (bool, error) {
	r, ok := s.requests[requestID]
	if !ok || r.Status != models.StatusPending {
		return false, nil
	}
	r.Status = models.StatusActive
	r.TechnicianID = &technicianID
	r.TechnicianName = &technicianName
	r.AcceptedAt = &acceptedAt
	s.loads[technicianID]++
	return true, nil
}

func (s *fakeStore) MarkClosed(ctx context.Context, requestID string, closedAt time.Time) (bool, error) {
	r, ok := s.requests[requestID]
	if !ok || r.Status != models.StatusActive {
		return false, nil
	}
	r.Status = models.StatusClosed
	r.ClosedAt = &closedAt
	return true, nil
}

func (s *fakeStore) BusyTechnicianIDs(ctx context.Context) (map[string]bool, error) {
	busy := map[string]bool{}
	for _, r := range s.requests {
		if r.Status == models.StatusActive && r.TechnicianID != nil {
			busy[*r.TechnicianID] = true
		}
	}
	return busy, nil
}

func (s *fakeStore) DailyLoadCounts(ctx context.Context, since time.Time) (models.DailyLoad, error) {
	out := models.DailyLoad{}
	for id, count := range s.loads {
		out[id] = count
	}
	return out, nil
}

func (s *fakeStore) ListTechnicians(ctx context.Context) ([]models.Technician, error) {
	var out []models.Technician
	for _, u := range s.users {
		if u.Role == models.RoleTechnician {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetUser(ctx context.Context, id string) (models.Technician, error) {
	u, ok := s.users[id]
	if !ok {
		return models.Technician{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *fakeStore) ListVehicles(ctx context.Context, userID string) ([]models.Vehicle, error) {
	return s.vehicles[userID], nil
}

func newTestEngine(store *fakeStore, oracle oracleFunc) *Engine {
	var o oracleFunc = oracle
	if o == nil {
		o = oracleDown
	}
	return &Engine{Store: store, Oracle: o, Logger: zerolog.Nop()}
}

func TestCreateRequestValidation(t *testing.T) {
	store := newFakeStore()
	store.vehicles["user1"] = []models.Vehicle{{ID: "v1", VehicleModel: "Model S", VehicleType: "electric"}}
	e := newTestEngine(store, nil)

	if _, err := e.CreateRequest(context.Background(), "user1", "User One", "", "v1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty details, got %v", err)
	}
	if _, err := e.CreateRequest(context.Background(), "user1", "User One", "brakes", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing vehicle, got %v", err)
	}
	if _, err := e.CreateRequest(context.Background(), "user1", "User One", "brakes", "v2"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown vehicle, got %v", err)
	}

	req, err := e.CreateRequest(context.Background(), "user1", "User One", "brakes squeal", "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != models.StatusPending {
		t.Fatalf("new request must be pending, got %s", req.Status)
	}
	if req.TechnicianID != nil || req.AcceptedAt != nil || req.ClosedAt != nil {
		t.Fatalf("pending request must have no technician or timestamps: %+v", req)
	}
	if req.VehicleModel != "Model S" || req.VehicleType != "electric" {
		t.Fatalf("vehicle reference not copied: %+v", req)
	}
}

func TestAssignRequiresPending(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "oil change")
	e := newTestEngine(store, nil)

	if _, err := e.Assign(context.Background(), "r1", "t1"); err != nil {
		t.Fatalf("first assign should succeed: %v", err)
	}
	if _, err := e.Assign(context.Background(), "r1", "t1"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending on second assign, got %v", err)
	}
}

func TestAssignUnknownRequestAndTechnician(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "oil change")
	e := newTestEngine(store, nil)

	if _, err := e.Assign(context.Background(), "missing", "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown request, got %v", err)
	}
	if _, err := e.Assign(context.Background(), "r1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown technician, got %v", err)
	}
}

func TestAssignRejectsNonTechnicianRole(t *testing.T) {
	store := newFakeStore()
	store.users["m1"] = models.Technician{ID: "m1", Name: "Manager", Role: models.RoleManager}
	store.addPending("r1", "oil change")
	e := newTestEngine(store, nil)

	if _, err := e.Assign(context.Background(), "r1", "m1"); !errors.Is(err, ErrNotQualified) {
		t.Fatalf("expected ErrNotQualified, got %v", err)
	}
}

func TestAssignRejectsBusyTechnician(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "oil change")
	store.addPending("r2", "tire rotation")
	e := newTestEngine(store, nil)

	if _, err := e.Assign(context.Background(), "r1", "t1"); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if _, err := e.Assign(context.Background(), "r2", "t1"); !errors.Is(err, ErrTechnicianBusy) {
		t.Fatalf("expected ErrTechnicianBusy, got %v", err)
	}
}

func TestAssignManualIgnoresDailyCap(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "oil change")
	store.loads["t1"] = DefaultDailyCap + 3
	e := newTestEngine(store, nil)

	decision, err := e.Assign(context.Background(), "r1", "t1")
	if err != nil {
		t.Fatalf("manual assignment must not check the daily cap: %v", err)
	}
	if decision.Policy != models.PolicyManual {
		t.Fatalf("expected manual policy, got %s", decision.Policy)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "engine noise")
	e := newTestEngine(store, nil)

	// Close before assignment: no technician, actor cannot match.
	if err := e.Close(context.Background(), "r1", "t1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized closing a pending request, got %v", err)
	}

	if _, err := e.Accept(context.Background(), "r1", "t1", "Tech One"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if got := store.requests["r1"].Status; got != models.StatusActive {
		t.Fatalf("expected active, got %s", got)
	}
	if store.requests["r1"].AcceptedAt == nil {
		t.Fatalf("acceptedAt must be stamped on assignment")
	}

	// Accept again: no longer pending.
	if _, err := e.Accept(context.Background(), "r1", "t2", "Tech Two"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}

	// Wrong actor cannot close, even while active.
	if err := e.Close(context.Background(), "r1", "t2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong actor, got %v", err)
	}

	if err := e.Close(context.Background(), "r1", "t1"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := store.requests["r1"].Status; got != models.StatusClosed {
		t.Fatalf("expected closed, got %s", got)
	}
	if store.requests["r1"].ClosedAt == nil {
		t.Fatalf("closedAt must be stamped on close")
	}

	// Close again: no longer active.
	if err := e.Close(context.Background(), "r1", "t1"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestAssignByAINoAvailableTechnicians(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r0", "first job")
	store.addPending("r1", "second job")
	e := newTestEngine(store, oracleFunc(func(ctx context.Context, prompt string) (string, error) {
		return "t1", nil
	}))

	if _, err := e.AssignByAI(context.Background(), "r0"); err != nil {
		t.Fatalf("first AI assign failed: %v", err)
	}
	// t1 is now busy and was the only technician.
	if _, err := e.AssignByAI(context.Background(), "r1"); !errors.Is(err, ErrNoAvailableTechnicians) {
		t.Fatalf("expected ErrNoAvailableTechnicians, got %v", err)
	}
}

func TestAssignByAIInvalidPickFailsWithoutCommit(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "engine noise")
	e := newTestEngine(store, oracleFunc(func(ctx context.Context, prompt string) (string, error) {
		return "evil-tech", nil
	}))

	_, err := e.AssignByAI(context.Background(), "r1")
	if !errors.Is(err, ErrAIAssignmentFailed) {
		t.Fatalf("expected ErrAIAssignmentFailed, got %v", err)
	}
	if got := store.requests["r1"].Status; got != models.StatusPending {
		t.Fatalf("request must stay pending after invalid pick, got %s", got)
	}
}

func TestAssignByAIDoesNotApplyDailyCap(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "engine noise")
	store.loads["t1"] = DefaultDailyCap + 1
	e := newTestEngine(store, oracleFunc(func(ctx context.Context, prompt string) (string, error) {
		return "t1", nil
	}))

	decision, err := e.AssignByAI(context.Background(), "r1")
	if err != nil {
		t.Fatalf("single AI assignment must not cap: %v", err)
	}
	if decision.Policy != models.PolicyRanked {
		t.Fatalf("expected ranked policy, got %s", decision.Policy)
	}
}

func TestAssignByAIOracleDown(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "engine noise")
	e := newTestEngine(store, nil)

	if _, err := e.AssignByAI(context.Background(), "r1"); !errors.Is(err, ErrAIAssignmentFailed) {
		t.Fatalf("expected ErrAIAssignmentFailed when oracle is down, got %v", err)
	}
}

func assertTransitionOrder(t *testing.T, r *models.ServiceRequest) {
	t.Helper()
	switch r.Status {
	case models.StatusPending:
		if r.TechnicianID != nil || r.AcceptedAt != nil || r.ClosedAt != nil {
			t.Fatalf("pending invariant violated: %+v", r)
		}
	case models.StatusActive:
		if r.TechnicianID == nil || r.AcceptedAt == nil || r.ClosedAt != nil {
			t.Fatalf("active invariant violated: %+v", r)
		}
	case models.StatusClosed:
		if r.TechnicianID == nil || r.AcceptedAt == nil || r.ClosedAt == nil {
			t.Fatalf("closed invariant violated: %+v", r)
		}
	default:
		t.Fatalf("unknown status %q", r.Status)
	}
}

func TestStatusInvariantsHoldAcrossLifecycle(t *testing.T) {
	store := newFakeStore()
	store.addTechnician("t1", "Tech One")
	store.addPending("r1", "engine noise")
	e := newTestEngine(store, nil)

	assertTransitionOrder(t, store.requests["r1"])
	if _, err := e.Accept(context.Background(), "r1", "t1", "Tech One"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	assertTransitionOrder(t, store.requests["r1"])
	if err := e.Close(context.Background(), "r1", "t1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	assertTransitionOrder(t, store.requests["r1"])
}

func requestIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("r%03d", i)
	}
	return out
}
