// models/models.go
package models

import "strings"

// MinPasswordLen is the minimum accepted password length at registration
// and on password change.
const MinPasswordLen = 4

// Stats holds a user's cumulative game counters. No invariant ties Total to
// Won+Lost; the counters are only guaranteed non-negative after a store read.
type Stats struct {
	Total int `json:"total"`
	Won   int `json:"won"`
	Lost  int `json:"lost"`
}

// Account is a registered identity. Owned by the user store; stats are
// mutated through the stats engine only.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Stats    Stats  `json:"stats"`
}

// Player is one seat in a lobby. Color is empty until assigned.
type Player struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// Lobby is the ephemeral pre-game roster, capacity MaxLobbyPlayers.
type Lobby struct {
	Players []Player `json:"players"`
}

// MaxLobbyPlayers caps the roster size.
const MaxLobbyPlayers = 4

// Color identifies a player's board color.
type Color string

const (
	ColorNone   Color = ""
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// Palette is the fixed assignment order for free colors.
var Palette = []Color{ColorBlue, ColorRed, ColorYellow, ColorGreen}

// Label returns a display name for the color.
func (c Color) Label() string {
	switch c {
	case ColorBlue:
		return "Blue"
	case ColorRed:
		return "Red"
	case ColorYellow:
		return "Yellow"
	case ColorGreen:
		return "Green"
	default:
		return "Unknown"
	}
}

// NormalizeColor lowercases the input and clears anything outside the palette.
func NormalizeColor(v string) Color {
	c := Color(strings.ToLower(v))
	for _, p := range Palette {
		if c == p {
			return c
		}
	}
	return ColorNone
}

// UsedColors reports which palette colors are already assigned in the lobby.
func (l *Lobby) UsedColors() map[Color]bool {
	used := make(map[Color]bool)
	for _, p := range l.Players {
		if p.Color != ColorNone {
			used[p.Color] = true
		}
	}
	return used
}

// NextFreeColor returns the lowest-numbered unused palette color, or ColorNone
// when every color is taken.
func (l *Lobby) NextFreeColor() Color {
	used := l.UsedColors()
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return ColorNone
}

// FindPlayer returns the index of the named player, matched case-insensitively,
// or -1 when absent.
func (l *Lobby) FindPlayer(name string) int {
	for i, p := range l.Players {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Normalize repairs a lobby read from storage: trims names, drops unnamed
// entries, clears unknown colors, and truncates to capacity.
func (l *Lobby) Normalize() {
	players := make([]Player, 0, MaxLobbyPlayers)
	for _, p := range l.Players {
		if len(players) == MaxLobbyPlayers {
			break
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		players = append(players, Player{Name: name, Color: NormalizeColor(string(p.Color))})
	}
	l.Players = players
}
