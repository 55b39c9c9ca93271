package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoassist/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const requestColumns = `id, author_id, author_name, request_details, vehicle_model, vehicle_type, status, technician_id, technician_name, created_at, accepted_at, closed_at`

func scanRequest(row pgx.Row) (models.ServiceRequest, error) {
	var r models.ServiceRequest
	err := row.Scan(&r.ID, &r.AuthorID, &r.AuthorName, &r.RequestDetails, &r.VehicleModel, &r.VehicleType,
		&r.Status, &r.TechnicianID, &r.TechnicianName, &r.CreatedAt, &r.AcceptedAt, &r.ClosedAt)
	return r, err
}

func (s *Store) collectRequests(ctx context.Context, query string, args ...any) ([]models.ServiceRequest, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ServiceRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertRequest(ctx context.Context, r models.ServiceRequest) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO requests (id, author_id, author_name, request_details, vehicle_model, vehicle_type, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, r.ID, r.AuthorID, r.AuthorName, r.RequestDetails, r.VehicleModel, r.VehicleType, r.Status, r.CreatedAt)
	return err
}

func (s *Store) GetRequest(ctx context.Context, id string) (models.ServiceRequest, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (s *Store) ListAllRequests(ctx context.Context) ([]models.ServiceRequest, error) {
	return s.collectRequests(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC`)
}

func (s *Store) ListPendingRequests(ctx context.Context) ([]models.ServiceRequest, error) {
	return s.collectRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE status = 'pending' ORDER BY created_at DESC`)
}

// PendingRequestsForAssignment returns pending requests oldest first,
// the stable order the batch coordinator walks them in.
func (s *Store) PendingRequestsForAssignment(ctx context.Context) ([]models.ServiceRequest, error) {
	return s.collectRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE status = 'pending' ORDER BY created_at ASC, id ASC`)
}

func (s *Store) ListRequestsByTechnician(ctx context.Context, technicianID, status string) ([]models.ServiceRequest, error) {
	order := "accepted_at DESC"
	if status == models.StatusClosed {
		order = "closed_at DESC"
	}
	return s.collectRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE technician_id = $1 AND status = $2 ORDER BY `+order, technicianID, status)
}

func (s *Store) ListRequestsByAuthor(ctx context.Context, authorID string) ([]models.ServiceRequest, error) {
	return s.collectRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE author_id = $1 ORDER BY created_at DESC`, authorID)
}

// MarkAssigned transitions a request to active, but only if it is
// still pending at write time. Returns false when the precondition no
// longer holds.
func (s *Store) MarkAssigned(ctx context.Context, requestID, technicianID, technicianName string, acceptedAt time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE requests
		SET status = 'active', technician_id = $2, technician_name = $3, accepted_at = $4
		WHERE id = $1 AND status = 'pending'
	`, requestID, technicianID, technicianName, acceptedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkClosed transitions a request to closed, but only if it is still
// active at write time.
func (s *Store) MarkClosed(ctx context.Context, requestID string, closedAt time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE requests
		SET status = 'closed', closed_at = $2
		WHERE id = $1 AND status = 'active'
	`, requestID, closedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// BusyTechnicianIDs returns the ids of technicians currently holding
// an active request.
func (s *Store) BusyTechnicianIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT technician_id FROM requests WHERE status = 'active' AND technician_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	busy := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		busy[id] = true
	}
	return busy, rows.Err()
}

// DailyLoadCounts counts requests assigned per technician among
// requests created since the given instant.
func (s *Store) DailyLoadCounts(ctx context.Context, since time.Time) (models.DailyLoad, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT technician_id, COUNT(*)
		FROM requests
		WHERE created_at >= $1 AND technician_id IS NOT NULL
		GROUP BY technician_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := models.DailyLoad{}
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		loads[id] = count
	}
	return loads, rows.Err()
}

func (s *Store) ListTechnicians(ctx context.Context) ([]models.Technician, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, first_name || ' ' || last_name, email, role, skills, specialties
		FROM users WHERE role = 'technician' ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Technician
	for rows.Next() {
		var t models.Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Role, &t.Skills, &t.Specialties); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (models.Technician, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, first_name || ' ' || last_name, email, role, skills, specialties
		FROM users WHERE id = $1
	`, id)
	var t models.Technician
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Role, &t.Skills, &t.Specialties)
	return t, err
}

func (s *Store) ListVehicles(ctx context.Context, userID string) ([]models.Vehicle, error) {
	var raw []byte
	if err := s.Pool.QueryRow(ctx, `SELECT COALESCE(vehicles, '[]'::jsonb) FROM users WHERE id = $1`, userID).Scan(&raw); err != nil {
		return nil, err
	}
	var vehicles []models.Vehicle
	if err := json.Unmarshal(raw, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicles applies fn to the user's vehicle list inside a
// transaction, locking the row so concurrent edits serialize.
func (s *Store) UpdateVehicles(ctx context.Context, userID string, fn func([]models.Vehicle) ([]models.Vehicle, error)) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var raw []byte
		if err := tx.QueryRow(ctx, `SELECT COALESCE(vehicles, '[]'::jsonb) FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&raw); err != nil {
			return err
		}
		var vehicles []models.Vehicle
		if err := json.Unmarshal(raw, &vehicles); err != nil {
			return err
		}
		updated, err := fn(vehicles)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET vehicles = $2 WHERE id = $1`, userID, encoded); err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, err
}

type DashboardStats struct {
	StatusCounts       map[string]int `json:"requests_by_status"`
	TopTechnicians     []TechCount    `json:"top_technicians"`
	HourlyDistribution map[int]int    `json:"hourly_distribution"`
	TotalToday         int            `json:"total_requests_today"`
}

type TechCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DashboardCounts aggregates today's requests only; historical
// reporting is out of scope.
func (s *Store) DashboardCounts(ctx context.Context, since time.Time) (DashboardStats, error) {
	stats := DashboardStats{
		StatusCounts:       map[string]int{},
		HourlyDistribution: map[int]int{},
	}

	rows, err := s.Pool.Query(ctx, `SELECT status, COUNT(*) FROM requests WHERE created_at >= $1 GROUP BY status`, since)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.StatusCounts[status] = count
		stats.TotalToday += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = s.Pool.Query(ctx, `
		SELECT technician_name, COUNT(*)
		FROM requests
		WHERE created_at >= $1 AND technician_name IS NOT NULL
		GROUP BY technician_name ORDER BY COUNT(*) DESC LIMIT 5
	`, since)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var tc TechCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.TopTechnicians = append(stats.TopTechnicians, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = s.Pool.Query(ctx, `
		SELECT EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC')::int, COUNT(*)
		FROM requests WHERE created_at >= $1
		GROUP BY 1
	`, since)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return stats, err
		}
		stats.HourlyDistribution[hour] = count
	}
	return stats, rows.Err()
}
