// stats/stats.go
package stats

import (
	"context"
	"fmt"

	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/userstore"
)

// Outcome is the result of one finished game from one player's perspective.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Engine mutates a user's win/loss counters. Each call is one atomic
// read-modify-write of the account collection; there is no cross-call
// transaction.
type Engine struct {
	users *userstore.Store
}

// New creates a stats engine over the user store.
func New(users *userstore.Store) *Engine {
	return &Engine{users: users}
}

// RecordOutcome increments Total and exactly one of Won or Lost. This is the
// single coherent contract for the counters; Total is never bumped anywhere
// else.
func (e *Engine) RecordOutcome(ctx context.Context, username string, outcome Outcome) (models.Stats, error) {
	if outcome != OutcomeWin && outcome != OutcomeLoss {
		return models.Stats{}, fmt.Errorf("outcome %q: %w", outcome, models.ErrInvalidOutcome)
	}
	account, err := e.users.Mutate(ctx, username, func(a *models.Account) {
		a.Stats.Total++
		if outcome == OutcomeWin {
			a.Stats.Won++
		} else {
			a.Stats.Lost++
		}
	})
	if err != nil {
		return models.Stats{}, err
	}
	return account.Stats, nil
}

// ResetStats zeroes all three counters.
func (e *Engine) ResetStats(ctx context.Context, username string) (models.Stats, error) {
	account, err := e.users.Mutate(ctx, username, func(a *models.Account) {
		a.Stats = models.Stats{}
	})
	if err != nil {
		return models.Stats{}, err
	}
	return account.Stats, nil
}

// WinRate returns the win percentage in [0,100]. A player with no games has
// rate 0.
func WinRate(s models.Stats) float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Won) / float64(s.Total)
}
