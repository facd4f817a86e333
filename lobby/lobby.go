// lobby/lobby.go
package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/protocol"
	"github.com/ludopad/ludopad/storage"
)

// State is the lobby lifecycle position, derived from the roster and the
// launch signal rather than stored separately.
type State int

const (
	// StateEmpty: no players joined yet.
	StateEmpty State = iota
	// StateFilling: 1-4 players but validation does not pass yet.
	StateFilling
	// StateValid: ready to launch.
	StateValid
	// StateLaunched: the game-start signal has been emitted.
	StateLaunched
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateValid:
		return "valid"
	case StateLaunched:
		return "launched"
	default:
		return "unknown"
	}
}

// Validation is the outcome of the lobby rule check. Reason is diagnostic
// prose, not an error code.
type Validation struct {
	OK     bool
	Reason string
}

// ValidationError carries a failed validation out of Launch.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Sender transmits one outbound command to the board device.
type Sender interface {
	Send(cmd string) error
}

// Store tracks the per-view lobby roster. The roster lives in the view's
// ephemeral store; the launch signal lives in the durable store so other
// views can observe it.
type Store struct {
	mu      sync.Mutex
	eph     storage.Store
	durable storage.Store
	sender  Sender
	log     *logrus.Logger

	now func() time.Time
}

// New creates a lobby store. The sender may be nil when no device link is up;
// Launch then only emits the storage signal.
func New(eph storage.Store, durable storage.Store, sender Sender, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{eph: eph, durable: durable, sender: sender, log: log, now: time.Now}
}

// Load reads the current roster, repairing it to capacity and palette on the
// way. A missing or unparsable blob yields an empty lobby.
func (s *Store) Load(ctx context.Context) models.Lobby {
	lobby := models.Lobby{Players: []models.Player{}}
	blob, found, err := s.eph.Get(ctx, storage.KeyLobby)
	if err != nil || !found {
		return lobby
	}
	if err := json.Unmarshal(blob, &lobby); err != nil {
		s.log.Warnf("lobby: unparsable roster, starting empty: %v", err)
		return models.Lobby{Players: []models.Player{}}
	}
	lobby.Normalize()
	return lobby
}

func (s *Store) save(ctx context.Context, lobby models.Lobby) error {
	if len(lobby.Players) > models.MaxLobbyPlayers {
		lobby.Players = lobby.Players[:models.MaxLobbyPlayers]
	}
	blob, err := json.Marshal(lobby)
	if err != nil {
		return fmt.Errorf("failed to marshal lobby: %w", err)
	}
	if err := s.eph.Set(ctx, storage.KeyLobby, blob); err != nil {
		return fmt.Errorf("failed to persist lobby: %w", err)
	}
	return nil
}

// Join adds username to the roster with the lowest-numbered free palette
// color. Joining while already present is a no-op success that reports
// joined=false and leaves the existing seat untouched.
func (s *Store) Join(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby := s.Load(ctx)
	if lobby.FindPlayer(username) >= 0 {
		return false, nil
	}
	if len(lobby.Players) >= models.MaxLobbyPlayers {
		return false, models.ErrLobbyFull
	}
	lobby.Players = append(lobby.Players, models.Player{
		Name:  username,
		Color: lobby.NextFreeColor(),
	})
	if err := s.save(ctx, lobby); err != nil {
		return false, err
	}
	s.log.Infof("lobby: %q joined as player %d", username, len(lobby.Players))
	return true, nil
}

// Remove drops the player at index. Out-of-range indexes are a no-op.
func (s *Store) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby := s.Load(ctx)
	if index < 0 || index >= len(lobby.Players) {
		return nil
	}
	lobby.Players = append(lobby.Players[:index], lobby.Players[index+1:]...)
	return s.save(ctx, lobby)
}

// SetColor assigns or clears a player's color. Uniqueness is not enforced
// here; Validate owns that rule, and the presentation layer is expected to
// disable taken colors before offering the choice.
func (s *Store) SetColor(ctx context.Context, index int, color models.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby := s.Load(ctx)
	if index < 0 || index >= len(lobby.Players) {
		return nil
	}
	lobby.Players[index].Color = models.NormalizeColor(string(color))
	return s.save(ctx, lobby)
}

// Validate checks the lobby rules in order; the first failing rule wins.
func Validate(lobby models.Lobby) Validation {
	if len(lobby.Players) < 2 {
		return Validation{OK: false, Reason: "need at least 2 players"}
	}
	seen := make(map[models.Color]bool)
	for _, p := range lobby.Players {
		if p.Name == "" {
			return Validation{OK: false, Reason: "names must not be empty"}
		}
	}
	for _, p := range lobby.Players {
		if p.Color == models.ColorNone {
			return Validation{OK: false, Reason: "every player needs a color"}
		}
	}
	for _, p := range lobby.Players {
		if seen[p.Color] {
			return Validation{OK: false, Reason: "colors must be unique"}
		}
		seen[p.Color] = true
	}
	return Validation{OK: true, Reason: "ready to start"}
}

// State derives the lifecycle position of the current roster.
func (s *Store) State(ctx context.Context) State {
	lobby := s.Load(ctx)
	if _, launched, _ := s.launchSignal(ctx); launched {
		return StateLaunched
	}
	if len(lobby.Players) == 0 {
		return StateEmpty
	}
	if !Validate(lobby).OK {
		return StateFilling
	}
	return StateValid
}

// Launch emits the startGame command and the durable timestamped signal that
// tells other open views a game has begun. It refuses an invalid roster.
// A failed device send is logged and does not abort the launch; the signal
// still fires, matching the device-less flow of the original.
func (s *Store) Launch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby := s.Load(ctx)
	if v := Validate(lobby); !v.OK {
		return &ValidationError{Reason: v.Reason}
	}
	if err := s.save(ctx, lobby); err != nil {
		return err
	}

	if s.sender != nil {
		cmd, err := protocol.StartGameCommand(lobby.Players)
		if err != nil {
			return err
		}
		if err := s.sender.Send(cmd); err != nil {
			s.log.Warnf("lobby: failed to send startGame: %v", err)
		}
	}

	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.durable.Set(ctx, storage.KeyGameStart, []byte(stamp)); err != nil {
		return fmt.Errorf("failed to store game-start signal: %w", err)
	}
	s.log.Infof("lobby: launched with %d players", len(lobby.Players))
	return nil
}

// Reset discards the roster and the launch signal, then re-joins username as
// player 1.
func (s *Store) Reset(ctx context.Context, username string) error {
	s.mu.Lock()
	if err := s.eph.Delete(ctx, storage.KeyLobby); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to clear lobby: %w", err)
	}
	if err := s.durable.Delete(ctx, storage.KeyGameStart); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to clear game-start signal: %w", err)
	}
	s.mu.Unlock()

	_, err := s.Join(ctx, username)
	return err
}

// launchSignal reads the game-start timestamp.
func (s *Store) launchSignal(ctx context.Context) (time.Time, bool, error) {
	value, found, err := s.durable.Get(ctx, storage.KeyGameStart)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		// A garbled stamp still counts as "a game has begun".
		return time.Time{}, true, nil
	}
	return time.UnixMilli(ms), true, nil
}

// LaunchedAt reports when a game start was signaled, if one is pending.
func (s *Store) LaunchedAt(ctx context.Context) (time.Time, bool) {
	stamp, present, _ := s.launchSignal(ctx)
	return stamp, present
}
