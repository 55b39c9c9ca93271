package models

import "time"

const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusClosed  = "closed"
)

// Assignment policies, recorded on every decision.
const (
	PolicyManual            = "manual"
	PolicyRanked            = "ranked"
	PolicyFallbackRanked    = "fallback-ranked"
	PolicyFallbackLeastLoad = "fallback-least-loaded"
)

const (
	RoleUser       = "user"
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

type ServiceRequest struct {
	ID             string     `json:"id"`
	AuthorID       string     `json:"author_id"`
	AuthorName     string     `json:"author_name"`
	RequestDetails string     `json:"request_details"`
	VehicleModel   string     `json:"vehicle_model"`
	VehicleType    string     `json:"vehicle_type"`
	Status         string     `json:"status"`
	TechnicianID   *string    `json:"technician_id"`
	TechnicianName *string    `json:"technician_name"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at"`
	ClosedAt       *time.Time `json:"closed_at"`
}

type Technician struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Skills      []string `json:"skills,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
}

type Vehicle struct {
	ID           string  `json:"id"`
	VehicleType  string  `json:"vehicle_type"`
	VehicleModel string  `json:"vehicle_model"`
	PurchaseDate string  `json:"purchase_date"`
	OdometerKm   float64 `json:"odometer_km"`
}

// DailyLoad maps technician id to the number of requests assigned to
// them since UTC midnight. Derived from persisted requests, then
// mutated in memory for the duration of a bulk run.
type DailyLoad map[string]int

type AssignmentDecision struct {
	RequestID      string `json:"request_id"`
	TechnicianID   string `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
	Policy         string `json:"policy"`
}

// BatchItemError records one unresolved request in a bulk run.
type BatchItemError struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

type BatchResult struct {
	Assignments []AssignmentDecision `json:"assignments"`
	Errors      []BatchItemError     `json:"errors"`
}
