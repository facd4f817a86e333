// protocol/protocol.go
//
// Wire protocol spoken with the board device. Outbound commands are plain
// text except startGame, which is JSON; every inbound message is a JSON
// object with a "type" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ludopad/ludopad/models"
)

// EndpointPath is the single well-known websocket path on the device.
const EndpointPath = "/ws"

// EndpointURL derives the device endpoint from the current host. The scheme
// follows whether the view itself was loaded securely.
func EndpointURL(host string, secure bool) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, EndpointPath)
}

// Plain-text commands.
const (
	CommandRoll         = "roll"
	CommandBatteryQuery = "battery?"
)

// Inbound message types with dedicated handling. Anything else is dispatched
// to handlers opaquely.
const (
	TypeBattery    = "battery"
	TypeDiceResult = "dice_result"
	TypeStartGame  = "startGame"
)

var (
	// ErrBadFigure indicates a figure number outside 1..4.
	ErrBadFigure = errors.New("figure must be between 1 and 4")

	// ErrBadPlayer indicates an empty player name in a piece command.
	ErrBadPlayer = errors.New("player name must not be empty")
)

// SelectCommand builds the command that blinks a player's figure.
func SelectCommand(player string, figure int) (string, error) {
	return pieceCommand("select", player, figure)
}

// ConfirmCommand builds the command that confirms a figure for the move.
func ConfirmCommand(player string, figure int) (string, error) {
	return pieceCommand("confirm", player, figure)
}

func pieceCommand(verb, player string, figure int) (string, error) {
	if player == "" {
		return "", ErrBadPlayer
	}
	if figure < 1 || figure > 4 {
		return "", ErrBadFigure
	}
	return fmt.Sprintf("%s:%s:%d", verb, player, figure), nil
}

// startGamePayload is the structured game-start command.
type startGamePayload struct {
	Type    string          `json:"type"`
	Players []models.Player `json:"players"`
}

// StartGameCommand builds the JSON command announcing the final roster.
func StartGameCommand(players []models.Player) (string, error) {
	data, err := json.Marshal(startGamePayload{Type: TypeStartGame, Players: players})
	if err != nil {
		return "", fmt.Errorf("failed to marshal startGame command: %w", err)
	}
	return string(data), nil
}

// Message is one parsed inbound payload. Raw keeps the full object so
// handlers can decode whatever fields they care about.
type Message struct {
	Type string
	Raw  json.RawMessage
}

// ParseMessage decodes inbound bytes. Non-JSON input is an error; the caller
// treats such frames as opaque diagnostics, not messages.
func ParseMessage(data []byte) (Message, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Message{}, err
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Message{Type: envelope.Type, Raw: raw}, nil
}

// BatteryStatus is the payload of a battery message.
type BatteryStatus struct {
	Percent    int `json:"percent"`
	Millivolts int `json:"mv"`
}

// Battery decodes a battery message, clamping percent to [0,100].
func (m Message) Battery() (BatteryStatus, bool) {
	if m.Type != TypeBattery {
		return BatteryStatus{}, false
	}
	var status BatteryStatus
	if err := json.Unmarshal(m.Raw, &status); err != nil {
		return BatteryStatus{}, false
	}
	if status.Percent < 0 {
		status.Percent = 0
	} else if status.Percent > 100 {
		status.Percent = 100
	}
	return status, true
}

// DiceValue decodes a dice_result message.
func (m Message) DiceValue() (int, bool) {
	if m.Type != TypeDiceResult {
		return 0, false
	}
	var payload struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(m.Raw, &payload); err != nil {
		return 0, false
	}
	return payload.Value, true
}
