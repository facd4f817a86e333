// userstore/userstore.go
package userstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/storage"
)

// LoadTag tells a caller why a read came back the way it did. Reads never
// fail on bad stored bytes; they substitute an empty collection and tag it.
type LoadTag int

const (
	// LoadedOK means the blob was present and parsed.
	LoadedOK LoadTag = iota
	// LoadedEmpty means nothing was ever stored under the key.
	LoadedEmpty
	// LoadedCorrupt means the blob was present but unparsable.
	LoadedCorrupt
)

// Store provides CRUD over the persisted account collection. Every mutation
// rewrites the whole collection; concurrent writers are last-write-wins.
type Store struct {
	kv  storage.Store
	log *logrus.Logger
}

// New creates a user store over the given durable key-value store.
func New(kv storage.Store, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{kv: kv, log: log}
}

// looseAccount tolerates corrupted stats shapes so a single bad counter does
// not discard the whole collection.
type looseAccount struct {
	Username string                     `json:"username"`
	Password string                     `json:"password"`
	Stats    map[string]json.RawMessage `json:"stats"`
}

// List loads the account collection, healing stats as it goes. If any entry
// needed repair the corrected collection is persisted before returning. The
// error is only for backend I/O failure, never for bad stored bytes.
func (s *Store) List(ctx context.Context) ([]models.Account, LoadTag, error) {
	blob, found, err := s.kv.Get(ctx, storage.KeyUsers)
	if err != nil {
		return nil, LoadedEmpty, fmt.Errorf("failed to read account collection: %w", err)
	}
	if !found {
		return []models.Account{}, LoadedEmpty, nil
	}

	var loose []looseAccount
	if err := json.Unmarshal(blob, &loose); err != nil {
		s.log.Warnf("userstore: unparsable account blob, substituting empty collection: %v", err)
		return []models.Account{}, LoadedCorrupt, nil
	}

	accounts := make([]models.Account, 0, len(loose))
	dirty := false
	for _, entry := range loose {
		stats, repaired := healStats(entry.Stats)
		if repaired {
			dirty = true
		}
		accounts = append(accounts, models.Account{
			Username: entry.Username,
			Password: entry.Password,
			Stats:    stats,
		})
	}

	if dirty {
		if err := s.saveAll(ctx, accounts); err != nil {
			s.log.Warnf("userstore: failed to persist healed stats: %v", err)
		}
	}
	return accounts, LoadedOK, nil
}

// Find returns the collection snapshot, the index of the named account, and
// the account itself. The match is exact and case-sensitive. Index is -1 and
// the account nil when absent.
func (s *Store) Find(ctx context.Context, username string) ([]models.Account, int, *models.Account, error) {
	accounts, _, err := s.List(ctx)
	if err != nil {
		return nil, -1, nil, err
	}
	for i := range accounts {
		if accounts[i].Username == username {
			return accounts, i, &accounts[i], nil
		}
	}
	return accounts, -1, nil, nil
}

// Create registers a new account with zeroed stats.
func (s *Store) Create(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.ErrEmptyInput
	}
	if len(password) < models.MinPasswordLen {
		return models.ErrPasswordTooShort
	}

	accounts, idx, _, err := s.Find(ctx, username)
	if err != nil {
		return err
	}
	if idx >= 0 {
		return fmt.Errorf("failed to register %q: %w", username, models.ErrDuplicateUser)
	}

	accounts = append(accounts, models.Account{Username: username, Password: password})
	if err := s.saveAll(ctx, accounts); err != nil {
		return err
	}
	s.log.Infof("userstore: registered account %q", username)
	return nil
}

// SetPassword replaces an account's password unconditionally.
func (s *Store) SetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < models.MinPasswordLen {
		return models.ErrPasswordTooShort
	}
	_, err := s.Mutate(ctx, username, func(a *models.Account) {
		a.Password = newPassword
	})
	return err
}

// ChangePassword replaces an account's password after verifying the current
// one. Passwords are compared in plain form by design.
func (s *Store) ChangePassword(ctx context.Context, username, current, newPassword string) error {
	_, _, account, err := s.Find(ctx, username)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("failed to change password for %q: %w", username, models.ErrNotFound)
	}
	if account.Password != current {
		return models.ErrInvalidCredentials
	}
	return s.SetPassword(ctx, username, newPassword)
}

// Mutate applies fn to the named account and persists the whole collection.
// The read-modify-write is atomic per call, not across calls.
func (s *Store) Mutate(ctx context.Context, username string, fn func(*models.Account)) (models.Account, error) {
	accounts, idx, _, err := s.Find(ctx, username)
	if err != nil {
		return models.Account{}, err
	}
	if idx < 0 {
		return models.Account{}, fmt.Errorf("failed to mutate %q: %w", username, models.ErrNotFound)
	}
	fn(&accounts[idx])
	if err := s.saveAll(ctx, accounts); err != nil {
		return models.Account{}, err
	}
	return accounts[idx], nil
}

func (s *Store) saveAll(ctx context.Context, accounts []models.Account) error {
	blob, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal account collection: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyUsers, blob); err != nil {
		return fmt.Errorf("failed to persist account collection: %w", err)
	}
	return nil
}

// healStats coerces a loose stats object into valid counters. Any field that
// is missing, non-numeric, non-finite, negative, or fractional becomes a
// sanitized integer and marks the entry as repaired. Total is deliberately
// not reconciled against Won+Lost.
func healStats(raw map[string]json.RawMessage) (models.Stats, bool) {
	if raw == nil {
		return models.Stats{}, true
	}
	stats := models.Stats{}
	dirty := false
	fields := []struct {
		key string
		dst *int
	}{
		{"total", &stats.Total},
		{"won", &stats.Won},
		{"lost", &stats.Lost},
	}
	for _, f := range fields {
		v, repaired := coerceCounter(raw[f.key])
		*f.dst = v
		if repaired {
			dirty = true
		}
	}
	return stats, dirty
}

// coerceCounter turns an arbitrary JSON value into a non-negative integer.
// The second return reports whether the stored value had to change.
func coerceCounter(raw json.RawMessage) (int, bool) {
	if raw == nil || string(raw) == "null" {
		return 0, true
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0, true
		}
		if f != math.Trunc(f) {
			return int(f), true
		}
		return int(f), false
	}

	// Numeric strings are accepted but rewritten as numbers.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0 {
			return int(f), true
		}
	}
	return 0, true
}
