package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/autoassist/backend/internal/ai"
	"github.com/autoassist/backend/internal/models"
)

// BuildRankPrompt embeds the request description and the serialized
// candidate list, and constrains the answer to ids from that list.
func BuildRankPrompt(details string, candidates []models.Technician) string {
	ids := make([]string, 0, len(candidates))
	for _, t := range candidates {
		ids = append(ids, t.ID)
	}
	serialized, _ := json.MarshalIndent(candidates, "", "  ")
	return fmt.Sprintf(
		"Given the following service request and a list of technicians, select the best technician for the job based on their skills and specialties.\n\n"+
			"Service Request:\n%s\n\n"+
			"Available Technicians (JSON array):\n%s\n\n"+
			"Respond ONLY with the id of the best technician from the list. "+
			"If no technician is a perfect fit, select the closest match and respond ONLY with their id. "+
			"The id must be one of: [%s]",
		details, serialized, strings.Join(ids, ", "))
}

// ExtractTechnicianID recovers an identifier from a free-form oracle
// response by stripping everything that is not alphanumeric.
func ExtractTechnicianID(response string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(response) {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RankCandidates consults the oracle for the best technician among
// candidates. The candidate-membership check is a hard gate: an id the
// oracle invents never produces an assignment. Every failure mode
// surfaces as ErrRankingUnavailable.
func RankCandidates(ctx context.Context, oracle ai.Oracle, details string, candidates []models.Technician) (models.Technician, error) {
	if len(candidates) == 0 {
		return models.Technician{}, fmt.Errorf("%w: empty candidate list", ErrRankingUnavailable)
	}

	response, err := oracle.Rank(ctx, BuildRankPrompt(details, candidates))
	if err != nil {
		return models.Technician{}, fmt.Errorf("%w: %v", ErrRankingUnavailable, err)
	}

	id := ExtractTechnicianID(response)
	for _, t := range candidates {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Technician{}, fmt.Errorf("%w: oracle picked %q, not in candidate list", ErrRankingUnavailable, id)
}
