package rules

import (
	"context"
	"fmt"
)

// Resolver matches order events against the current active rule set.
type Resolver struct {
	repo *Repository
}

// NewResolver creates a resolver backed by the rules repository.
func NewResolver(repo *Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve loads a snapshot of active rules and runs the match cascade.
func (r *Resolver) Resolve(ctx context.Context, ev OrderEvent) (MatchOutcome, error) {
	ruleSet, err := r.repo.ListActive(ctx)
	if err != nil {
		return MatchOutcome{}, fmt.Errorf("loading active rules: %w", err)
	}
	return Match(ruleSet, ev)
}
