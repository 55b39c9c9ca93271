package warranty

import (
	"time"

	"github.com/autoassist/backend/internal/models"
)

// Coverage describes one warranty component for a vehicle.
type Coverage struct {
	Status        string  `json:"status"`
	ExpiryDate    string  `json:"expiry_date"`
	RemainingDays int     `json:"remaining_days,omitempty"`
	RemainingKm   float64 `json:"remaining_km,omitempty"`
}

const (
	StatusActive  = "Active"
	StatusExpired = "Expired"
)

// Compute returns the warranty breakdown for a vehicle, keyed by
// component name, or nil when the vehicle record is incomplete.
func Compute(v models.Vehicle, now time.Time) map[string]Coverage {
	if v.VehicleType == "" || v.PurchaseDate == "" {
		return nil
	}
	purchase, err := time.Parse("2006-01-02", v.PurchaseDate)
	if err != nil {
		return nil
	}

	out := map[string]Coverage{}

	baseExpiry := purchase.AddDate(3, 0, 0)
	baseDays := daysBetween(baseExpiry, now)
	baseKm := remainingKm(100000, v.OdometerKm)
	base := Coverage{
		Status:        activeIf(baseDays > 0 && baseKm > 0),
		ExpiryDate:    baseExpiry.Format("2006-01-02"),
		RemainingDays: baseDays,
		RemainingKm:   baseKm,
	}
	out["Standard Warranty"] = base

	switch v.VehicleType {
	case "electric":
		out["Battery Pack"] = componentCoverage(purchase, now, 8, 160000, v.OdometerKm)
		out["Electric Motor"] = componentCoverage(purchase, now, 5, 100000, v.OdometerKm)
	case "diesel":
		out["Engine Assembly"] = componentCoverage(purchase, now, 5, 150000, v.OdometerKm)
		out["Transmission"] = base
	default: // petrol
		out["Engine Assembly"] = componentCoverage(purchase, now, 3, 100000, v.OdometerKm)
		out["Transmission"] = base
	}

	rustExpiry := purchase.AddDate(6, 0, 0)
	out["Rust Perforation"] = Coverage{
		Status:     activeIf(rustExpiry.After(now)),
		ExpiryDate: rustExpiry.Format("2006-01-02"),
	}
	return out
}

func componentCoverage(purchase, now time.Time, years int, kmLimit, odometer float64) Coverage {
	expiry := purchase.AddDate(years, 0, 0)
	km := remainingKm(kmLimit, odometer)
	return Coverage{
		Status:      activeIf(expiry.After(now) && km > 0),
		ExpiryDate:  expiry.Format("2006-01-02"),
		RemainingKm: km,
	}
}

func daysBetween(a, b time.Time) int {
	return int(a.Sub(b).Hours() / 24)
}

func remainingKm(limit, odometer float64) float64 {
	if limit <= odometer {
		return 0
	}
	return limit - odometer
}

func activeIf(ok bool) string {
	if ok {
		return StatusActive
	}
	return StatusExpired
}
