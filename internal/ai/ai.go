package ai

import "context"

// Oracle is the external best-match ranking service. It is advisory
// only: callers must validate whatever comes back before acting on it.
type Oracle interface {
	Rank(ctx context.Context, prompt string) (string, error)
}
