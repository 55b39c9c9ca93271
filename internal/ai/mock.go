package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autoassist/backend/internal/utils"
)

// MockOracle picks deterministically from the id list embedded in the
// prompt ("The id must be one of: [a, b, c]"). Used when no oracle URL
// is configured and in tests.
type MockOracle struct{}

func (m MockOracle) Rank(ctx context.Context, prompt string) (string, error) {
	start := strings.LastIndex(prompt, "[")
	end := strings.LastIndex(prompt, "]")
	if start < 0 || end < start {
		return "", errors.New("prompt has no candidate list")
	}
	var ids []string
	for _, part := range strings.Split(prompt[start+1:end], ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", errors.New("prompt candidate list is empty")
	}
	pick := ids[int(utils.HashStringToUint64(prompt)%uint64(len(ids)))]
	return fmt.Sprintf("%s\n", pick), nil
}
