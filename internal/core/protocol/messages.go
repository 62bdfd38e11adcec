// Package protocol defines the JSON wire format between server and
// clients. One JSON object per websocket message, discriminated by the
// "type" field.
package protocol

import (
	"encoding/json"

	"github.com/tiltring/tiltring/internal/core/sim"
)

// Message type discriminators.
const (
	TypeInit       = "init"
	TypeConnect    = "connect"
	TypeState      = "state"
	TypeDeath      = "death"
	TypeDisconnect = "disconnect"
	TypeInput      = "input"
)

// Rotation carries the three entity rotation axes:
// x is pitch tilt, y is yaw, z is roll tilt.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Player is the per-entity state clients render from.
type Player struct {
	ID          string   `json:"id"`
	Position    sim.Vec3 `json:"position"`
	Rotation    Rotation `json:"rotation"`
	IsDead      bool     `json:"isDead"`
	Personality string   `json:"personality,omitempty"`
}

// PlayerFromSnapshot maps a simulation snapshot onto the wire shape.
func PlayerFromSnapshot(s sim.Snapshot) Player {
	return Player{
		ID:          s.ID,
		Position:    s.Position,
		Rotation:    Rotation{X: s.TiltX, Y: s.Yaw, Z: s.TiltZ},
		IsDead:      s.Dead,
		Personality: s.Personality,
	}
}

// Init is sent once to a new connection, carrying its assigned id and
// initial entity state.
type Init struct {
	Type               string `json:"type"`
	ID                 string `json:"id"`
	InitialPlayerState Player `json:"initialPlayerState"`
}

// Connect announces a new player to everyone else.
type Connect struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

// State is the full per-tick snapshot broadcast.
type State struct {
	Type    string   `json:"type"`
	Players []Player `json:"players"`
}

// Death announces that an entity died this tick.
type Death struct {
	Type     string   `json:"type"`
	ID       string   `json:"id"`
	Position sim.Vec3 `json:"position"`
}

// Disconnect announces a player's removal.
type Disconnect struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Input is the only client-to-server message: one key edge.
type Input struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

// envelope probes just the discriminator of an incoming message.
type envelope struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses one client message. It returns the input
// edge and true for a well-formed input message, and false for any
// recognized-but-ignorable message. Malformed JSON returns an error.
func DecodeClientMessage(data []byte) (Input, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Input{}, false, err
	}
	if env.Type != TypeInput {
		// Unrecognized message types are ignored, not rejected.
		return Input{}, false, nil
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, false, err
	}
	return in, true, nil
}
