package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiltring/tiltring/internal/config"
	"github.com/tiltring/tiltring/internal/core/events/bus"
	"github.com/tiltring/tiltring/internal/core/observability/log"
)

func newTestWorldWithBus(t *testing.T, mutate func(*config.SimConfig)) (*World, *bus.Bus) {
	t.Helper()
	cfg := config.Default().Sim
	cfg.AICount = 0
	if mutate != nil {
		mutate(&cfg)
	}
	b := bus.New()
	return NewWorld(cfg, b, log.NewNop()), b
}

func collectDeaths(b *bus.Bus) *[]DeathEvent {
	deaths := &[]DeathEvent{}
	b.Subscribe(EventDeath, func(e bus.Event) {
		*deaths = append(*deaths, e.Data.(DeathEvent))
	})
	return deaths
}

func TestWorldSpawnsConfiguredAI(t *testing.T) {
	cfg := config.Default().Sim
	cfg.AICount = 7
	w := NewWorld(cfg, bus.New(), log.NewNop())

	require.Equal(t, 7, w.EntityCount())

	snaps := w.Snapshot()
	seen := map[string]int{}
	for _, s := range snaps {
		require.NotEmpty(t, s.Personality, "AI entities carry a personality")
		seen[s.Personality]++
	}
	// Round-robin over five profiles: two extra after the first full lap.
	assert.Equal(t, 2, seen["timid"])
	assert.Equal(t, 2, seen["brave"])
	assert.Equal(t, 1, seen["curious"])
}

func TestAddRemovePlayer(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)

	snap := w.AddPlayer("p1")
	assert.Equal(t, "p1", snap.ID)
	assert.Empty(t, snap.Personality)
	assert.False(t, snap.Dead)
	assert.LessOrEqual(t, snap.Position.PlanarLength(), w.cfg.SpawnRadius)
	assert.Equal(t, 1, w.EntityCount())

	require.True(t, w.RemovePlayer("p1"))
	assert.Equal(t, 0, w.EntityCount())
	assert.False(t, w.RemovePlayer("p1"), "already removed")

	_, hasInput := w.inputs["p1"]
	assert.False(t, hasInput, "input record removed with the entity")
}

func TestRemovePlayerRefusesAI(t *testing.T) {
	cfg := config.Default().Sim
	cfg.AICount = 1
	w := NewWorld(cfg, bus.New(), log.NewNop())

	assert.False(t, w.RemovePlayer("ai-00"))
	assert.Equal(t, 1, w.EntityCount())
}

func TestSetInput(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("p1")

	require.True(t, w.SetInput("p1", "w", true))
	assert.True(t, w.inputs["p1"].Forward)

	assert.False(t, w.SetInput("p1", "x", true), "unknown key ignored")
	assert.False(t, w.SetInput("ghost", "w", true), "unknown player ignored")

	require.True(t, w.SetInput("p1", "w", false))
	assert.False(t, w.inputs["p1"].Forward)
}

func TestInputDrivesEntityNextTick(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("p1")
	w.SetInput("p1", "w", true)

	before := w.entities["p1"].Pos
	w.Step()
	after := w.entities["p1"].Pos

	assert.NotEqual(t, before, after, "held forward key moves the entity")
}

func TestFenceDeathFiresExactlyOnce(t *testing.T) {
	w, b := newTestWorldWithBus(t, nil)
	deaths := collectDeaths(b)

	w.AddPlayer("p1")
	e := w.entities["p1"]
	e.Pos = Vec3{X: 100.5}

	w.Step()

	require.Len(t, *deaths, 1, "exactly one death event")
	assert.Equal(t, "p1", (*deaths)[0].ID)
	assert.True(t, e.Dead)
	assert.Equal(t, 3.0, e.RespawnRemaining)

	// Still outside the fence, but already dead: no duplicate events.
	w.Step()
	w.Step()
	assert.Len(t, *deaths, 1)
}

func TestDeadEntityIsFrozenUntilRespawn(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("p1")
	e := w.entities["p1"]
	e.Pos = Vec3{X: 200}
	w.SetInput("p1", "w", true)

	w.Step()
	require.True(t, e.Dead)
	deadPos := e.Pos

	for i := 0; i < 60; i++ {
		w.Step()
	}
	assert.True(t, e.Dead, "3s respawn timer still running after 1s")
	assert.Equal(t, deadPos, e.Pos, "dead entities do not move")
}

func TestRespawnResetsMotionState(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("p1")
	e := w.entities["p1"]
	e.Pos = Vec3{X: 200}
	e.Vel = Vec3{X: 1, Y: -0.5, Z: 0.3}
	e.YawRate = 0.2
	e.TiltX, e.TiltZ = 0.4, -0.4
	e.TiltRateX, e.TiltRateZ = 0.1, 0.1

	w.Step()
	require.True(t, e.Dead)

	// 3 seconds at 60 Hz, plus the tick that flips the state back.
	for i := 0; i < 3*60+1; i++ {
		w.Step()
	}

	require.False(t, e.Dead)
	assert.Equal(t, Vec3{}, e.Vel)
	assert.Zero(t, e.YawRate)
	assert.Zero(t, e.TiltX)
	assert.Zero(t, e.TiltZ)
	assert.Zero(t, e.TiltRateX)
	assert.Zero(t, e.TiltRateZ)
	assert.LessOrEqual(t, e.Pos.PlanarLength(), w.cfg.SpawnRadius)
	assert.Equal(t, w.cfg.GroundLevel, e.Pos.Y)
}

func TestRespawnUsesSpawnPoint(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("p1")
	e := w.entities["p1"]
	home := Vec3{X: 3, Y: 0, Z: 4}
	e.SpawnPoint = &home
	e.Pos = Vec3{X: 200}

	w.Step()
	require.True(t, e.Dead)
	for i := 0; i < 3*60+1; i++ {
		w.Step()
	}

	require.False(t, e.Dead)
	assert.Equal(t, home, e.Pos)
}

func TestTiltDeathWhileGrounded(t *testing.T) {
	w, b := newTestWorldWithBus(t, nil)
	deaths := collectDeaths(b)

	w.AddPlayer("p1")
	e := w.entities["p1"]
	e.TiltX = 2.0

	w.Step()

	assert.True(t, e.Dead)
	assert.Len(t, *deaths, 1)
}

func TestTiltDeathSkippedWhileAirborne(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("p1")
	e := w.entities["p1"]
	e.Pos.Y = 10
	e.TiltX = 2.0

	w.Step()

	assert.False(t, e.Dead, "tilt death only applies on the ground")
}

func TestScaredTimidIsImmuneToTiltDeath(t *testing.T) {
	cfg := config.Default().Sim
	cfg.AICount = 1 // first profile is timid
	w := NewWorld(cfg, bus.New(), log.NewNop())
	e := w.entities["ai-00"]
	require.Equal(t, PersonalityTimid, e.Personality)

	require.True(t, w.Scare("ai-00", 5))
	e.TiltX = 2.0
	w.Step()
	assert.False(t, e.Dead, "scared timid entities cannot tilt-die")

	// Once the window closes the same tilt is fatal.
	e.ScaredTimer = 0
	e.TiltX = 2.0
	w.Step()
	assert.True(t, e.Dead)
}

func TestScareOnlyAffectsTimid(t *testing.T) {
	cfg := config.Default().Sim
	cfg.AICount = 2 // timid, brave
	w := NewWorld(cfg, bus.New(), log.NewNop())

	assert.True(t, w.Scare("ai-00", 1))
	assert.False(t, w.Scare("ai-01", 1), "brave entities do not scare")
	assert.False(t, w.Scare("ghost", 1))
}

func TestSnapshotTracksStoreSize(t *testing.T) {
	cfg := config.Default().Sim
	cfg.AICount = 3
	w := NewWorld(cfg, bus.New(), log.NewNop())

	w.AddPlayer("p1")
	w.AddPlayer("p2")
	require.Len(t, w.Snapshot(), 5)

	// Dead entities stay in the store and in the snapshot.
	w.entities["p1"].Pos = Vec3{X: 200}
	w.Step()
	require.True(t, w.entities["p1"].Dead)
	require.Len(t, w.Snapshot(), w.EntityCount())

	w.RemovePlayer("p2")
	require.Len(t, w.Snapshot(), 4)
}

func TestSnapshotStableOrder(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	w.AddPlayer("b")
	w.AddPlayer("a")
	w.AddPlayer("c")

	snaps := w.Snapshot()
	require.Len(t, snaps, 3)
	assert.Equal(t, "a", snaps[0].ID)
	assert.Equal(t, "b", snaps[1].ID)
	assert.Equal(t, "c", snaps[2].ID)
}

func TestSameSeedSameWorld(t *testing.T) {
	cfg := config.Default().Sim
	cfg.AICount = 5

	a := NewWorld(cfg, bus.New(), log.NewNop())
	b := NewWorld(cfg, bus.New(), log.NewNop())
	for i := 0; i < 120; i++ {
		a.Step()
		b.Step()
	}

	assert.Equal(t, a.Snapshot(), b.Snapshot(), "identical seeds evolve identically")
}

func TestTickCounter(t *testing.T) {
	w, _ := newTestWorldWithBus(t, nil)
	require.Zero(t, w.Tick())
	w.Step()
	w.Step()
	assert.Equal(t, uint64(2), w.Tick())
}
