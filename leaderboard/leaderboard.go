// leaderboard/leaderboard.go
package leaderboard

import (
	"sort"

	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/stats"
)

// Entry is one derived leaderboard row. Entries are recomputed on demand and
// never persisted.
type Entry struct {
	Username string       `json:"username"`
	Stats    models.Stats `json:"stats"`
	WinRate  float64      `json:"winRate"`
}

// Rank orders all accounts by performance: win rate descending, then wins,
// then total games, then username ascending as the final tie-break. The
// result is a total order independent of input order.
func Rank(accounts []models.Account) []Entry {
	entries := make([]Entry, 0, len(accounts))
	for _, a := range accounts {
		if a.Username == "" {
			continue
		}
		entries = append(entries, Entry{
			Username: a.Username,
			Stats:    a.Stats,
			WinRate:  stats.WinRate(a.Stats),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.Stats.Won != b.Stats.Won {
			return a.Stats.Won > b.Stats.Won
		}
		if a.Stats.Total != b.Stats.Total {
			return a.Stats.Total > b.Stats.Total
		}
		return a.Username < b.Username
	})
	return entries
}

// Summary aggregates a ranking for the stats dashboard.
type Summary struct {
	Players     int
	TotalGames  int
	TotalWins   int
	TotalLosses int

	// Leader is the best-ranked player with at least one game, or nil.
	Leader *Entry
}

// Summarize folds a ranking into dashboard totals.
func Summarize(entries []Entry) Summary {
	s := Summary{Players: len(entries)}
	for i := range entries {
		s.TotalGames += entries[i].Stats.Total
		s.TotalWins += entries[i].Stats.Won
		s.TotalLosses += entries[i].Stats.Lost
		if s.Leader == nil && entries[i].Stats.Total > 0 {
			s.Leader = &entries[i]
		}
	}
	return s
}

// RankOf returns the 1-based position of username in the ranking, or 0 when
// the user is not ranked.
func RankOf(entries []Entry, username string) int {
	for i, e := range entries {
		if e.Username == username {
			return i + 1
		}
	}
	return 0
}
