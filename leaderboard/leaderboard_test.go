// leaderboard/leaderboard_test.go
package leaderboard

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludopad/ludopad/models"
)

func account(name string, total, won, lost int) models.Account {
	return models.Account{
		Username: name,
		Stats:    models.Stats{Total: total, Won: won, Lost: lost},
	}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Username
	}
	return out
}

func TestRankOrdering(t *testing.T) {
	accounts := []models.Account{
		account("lowrate", 10, 2, 8),
		account("highrate", 4, 3, 1),
		account("perfect", 2, 2, 0),
		account("idle", 0, 0, 0),
	}

	entries := Rank(accounts)
	assert.Equal(t, []string{"perfect", "highrate", "lowrate", "idle"}, names(entries))
	assert.Equal(t, 100.0, entries[0].WinRate)
	assert.Equal(t, 0.0, entries[3].WinRate)
}

func TestRankTieBreaks(t *testing.T) {
	// Same win rate: more wins first; then more games; then username.
	accounts := []models.Account{
		account("zed", 2, 1, 1),
		account("amy", 2, 1, 1),
		account("big", 4, 2, 2),
		account("winner", 6, 3, 3),
	}

	entries := Rank(accounts)
	assert.Equal(t, []string{"winner", "big", "amy", "zed"}, names(entries))
}

func TestRankIsStableUnderPermutation(t *testing.T) {
	accounts := []models.Account{
		account("a", 10, 5, 5),
		account("b", 10, 5, 5),
		account("c", 8, 4, 4),
		account("d", 3, 3, 0),
		account("e", 0, 0, 0),
		account("f", 7, 2, 5),
	}

	want := names(Rank(accounts))
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.Account, len(accounts))
		copy(shuffled, accounts)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, want, names(Rank(shuffled)))
	}
}

func TestRankSkipsNamelessEntries(t *testing.T) {
	accounts := []models.Account{
		account("", 4, 4, 0),
		account("alice", 1, 0, 1),
	}
	entries := Rank(accounts)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Username)
}

func TestSummarize(t *testing.T) {
	entries := Rank([]models.Account{
		account("idle", 0, 0, 0),
		account("alice", 3, 2, 1),
		account("bob", 5, 1, 4),
	})

	s := Summarize(entries)
	assert.Equal(t, 3, s.Players)
	assert.Equal(t, 8, s.TotalGames)
	assert.Equal(t, 3, s.TotalWins)
	assert.Equal(t, 5, s.TotalLosses)
	require.NotNil(t, s.Leader)
	assert.Equal(t, "alice", s.Leader.Username)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Players)
	assert.Nil(t, s.Leader)
}

func TestRankOf(t *testing.T) {
	entries := Rank([]models.Account{
		account("alice", 3, 2, 1),
		account("bob", 5, 1, 4),
	})
	assert.Equal(t, 1, RankOf(entries, "alice"))
	assert.Equal(t, 2, RankOf(entries, "bob"))
	assert.Equal(t, 0, RankOf(entries, "ghost"))
}
