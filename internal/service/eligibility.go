package service

import (
	"sort"
	"time"

	"github.com/autoassist/backend/internal/models"
)

// DefaultDailyCap is the admission ceiling per technician per UTC day.
const DefaultDailyCap = 10

// AvailableTechnicians is the tier-1 pool: not holding an active
// request and under the daily cap.
func AvailableTechnicians(techs []models.Technician, busy map[string]bool, loads models.DailyLoad, limit int) []models.Technician {
	return filterTechnicians(techs, func(t models.Technician) bool {
		return !busy[t.ID] && loads[t.ID] < limit
	})
}

// EligibleTechnicians is the tier-2 pool: under the daily cap, busy or
// not. Used only when tier 1 comes up empty.
func EligibleTechnicians(techs []models.Technician, loads models.DailyLoad, limit int) []models.Technician {
	return filterTechnicians(techs, func(t models.Technician) bool {
		return loads[t.ID] < limit
	})
}

// NotBusyTechnicians filters on the busy set only. The single-request
// AI path does not apply the daily cap.
func NotBusyTechnicians(techs []models.Technician, busy map[string]bool) []models.Technician {
	return filterTechnicians(techs, func(t models.Technician) bool {
		return !busy[t.ID]
	})
}

// LeastLoaded picks the technician with the lowest current load, ties
// broken by id ordering so the choice is deterministic.
func LeastLoaded(techs []models.Technician, loads models.DailyLoad) (models.Technician, bool) {
	if len(techs) == 0 {
		return models.Technician{}, false
	}
	sorted := make([]models.Technician, len(techs))
	copy(sorted, techs)
	sort.Slice(sorted, func(i, j int) bool {
		if loads[sorted[i].ID] == loads[sorted[j].ID] {
			return sorted[i].ID < sorted[j].ID
		}
		return loads[sorted[i].ID] < loads[sorted[j].ID]
	})
	return sorted[0], true
}

func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func filterTechnicians(techs []models.Technician, keep func(models.Technician) bool) []models.Technician {
	out := make([]models.Technician, 0, len(techs))
	for _, t := range techs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
