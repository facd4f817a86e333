// session/session.go
package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/storage"
	"github.com/ludopad/ludopad/userstore"
)

// Manager tracks the single logged-in identity for one view. The identity
// lives in the view's ephemeral store and is not shared with other views.
type Manager struct {
	eph     storage.Store
	durable storage.Store
	users   *userstore.Store
	log     *logrus.Logger
}

// New creates a session manager. The durable store is needed because logout
// also clears the cross-view launch signal.
func New(eph storage.Store, durable storage.Store, users *userstore.Store, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{eph: eph, durable: durable, users: users, log: log}
}

// Login verifies the credentials against the user store and, on an exact
// password match, records the identity. Passwords are compared in plain form
// by design.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	_, _, account, err := m.users.Find(ctx, username)
	if err != nil {
		return err
	}
	if account == nil || account.Password != password {
		return models.ErrInvalidCredentials
	}
	if err := m.eph.Set(ctx, storage.KeySession, []byte(username)); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	m.log.Infof("session: %q logged in", username)
	return nil
}

// Logout clears the session, the lobby, and any pending game-start signal.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.eph.Delete(ctx, storage.KeySession); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := m.eph.Delete(ctx, storage.KeyLobby); err != nil {
		return fmt.Errorf("failed to clear lobby: %w", err)
	}
	if err := m.durable.Delete(ctx, storage.KeyGameStart); err != nil {
		return fmt.Errorf("failed to clear game-start signal: %w", err)
	}
	return nil
}

// Current returns the logged-in username, if any.
func (m *Manager) Current(ctx context.Context) (string, bool) {
	value, found, err := m.eph.Get(ctx, storage.KeySession)
	if err != nil || !found || len(value) == 0 {
		return "", false
	}
	return string(value), true
}

// Require returns the logged-in username or ErrNotAuthenticated. A session
// whose account has disappeared from the user store is cleared and treated
// as absent; callers are expected to redirect to login on failure.
func (m *Manager) Require(ctx context.Context) (string, error) {
	username, ok := m.Current(ctx)
	if !ok {
		return "", models.ErrNotAuthenticated
	}
	_, _, account, err := m.users.Find(ctx, username)
	if err != nil {
		return "", err
	}
	if account == nil {
		m.log.Warnf("session: account %q disappeared, clearing session", username)
		if err := m.eph.Delete(ctx, storage.KeySession); err != nil {
			m.log.Warnf("session: failed to clear stale session: %v", err)
		}
		return "", fmt.Errorf("account %q no longer exists: %w", username, models.ErrNotAuthenticated)
	}
	return username, nil
}
