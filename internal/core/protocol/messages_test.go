package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiltring/tiltring/internal/core/sim"
)

func TestDecodeClientMessageInput(t *testing.T) {
	in, ok, err := DecodeClientMessage([]byte(`{"type":"input","key":"w","pressed":true}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "w", in.Key)
	assert.True(t, in.Pressed)
}

func TestDecodeClientMessageIgnoresUnknownType(t *testing.T) {
	_, ok, err := DecodeClientMessage([]byte(`{"type":"teleport","x":999}`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeClientMessageMalformed(t *testing.T) {
	cases := []string{
		`not json at all`,
		`{"type":"input","key":"w","pressed":"yes"}`,
		``,
	}
	for _, raw := range cases {
		_, ok, err := DecodeClientMessage([]byte(raw))
		assert.Errorf(t, err, "payload %q should fail to decode", raw)
		assert.False(t, ok)
	}
}

func TestPlayerFromSnapshotRotationMapping(t *testing.T) {
	p := PlayerFromSnapshot(sim.Snapshot{
		ID:          "e1",
		Position:    sim.Vec3{X: 1, Y: 2, Z: 3},
		Yaw:         0.7,
		TiltX:       0.1,
		TiltZ:       -0.2,
		Dead:        true,
		Personality: "hyper",
	})

	assert.Equal(t, 0.1, p.Rotation.X, "rotation.x carries pitch tilt")
	assert.Equal(t, 0.7, p.Rotation.Y, "rotation.y carries yaw")
	assert.Equal(t, -0.2, p.Rotation.Z, "rotation.z carries roll tilt")
	assert.True(t, p.IsDead)
	assert.Equal(t, "hyper", p.Personality)
}

func TestStateWireShape(t *testing.T) {
	state := State{
		Type: TypeState,
		Players: []Player{
			{ID: "p1", Position: sim.Vec3{X: 1}, Rotation: Rotation{Y: 0.5}},
			{ID: "ai-00", Personality: "timid"},
		},
	}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "state", decoded["type"])

	players := decoded["players"].([]any)
	require.Len(t, players, 2)

	first := players[0].(map[string]any)
	_, hasPersonality := first["personality"]
	assert.False(t, hasPersonality, "players omit the personality field")

	second := players[1].(map[string]any)
	assert.Equal(t, "timid", second["personality"])
}
