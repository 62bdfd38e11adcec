package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tiltring/tiltring/internal/config"
	"github.com/tiltring/tiltring/internal/core/events/bus"
	"github.com/tiltring/tiltring/internal/core/observability/log"
)

// EventDeath is published on the bus once each time an entity dies.
const EventDeath = "entity.death"

// DeathEvent is the payload of an EventDeath event.
type DeathEvent struct {
	ID       string
	Position Vec3
}

// World owns the entity store and the input store and advances both by
// one fixed tick at a time. Connection handlers mutate it concurrently
// with the tick loop, so every entry point takes the world lock; the
// tick itself is a single synchronous pass.
type World struct {
	mu  sync.Mutex
	cfg config.SimConfig
	rng *rand.Rand

	bus    *bus.Bus
	logger log.Log

	entities map[string]*Entity
	inputs   map[string]Input
	tick     uint64
}

// NewWorld creates a world populated with the configured AI entities.
// The RNG is seeded from the config seed string, so two worlds with the
// same seed and the same inputs evolve identically.
func NewWorld(cfg config.SimConfig, b *bus.Bus, logger log.Log) *World {
	w := &World{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(int64(xxhash.Sum64String(cfg.Seed)))),
		bus:      b,
		logger:   logger.With(log.String("component", "world")),
		entities: make(map[string]*Entity),
		inputs:   make(map[string]Input),
	}

	for i := 0; i < cfg.AICount; i++ {
		e := &Entity{
			ID:          aiID(i),
			Pos:         w.randomSpawnPoint(),
			Yaw:         w.rng.Float64() * 2 * math.Pi,
			AI:          true,
			Personality: Personalities[i%len(Personalities)],
			AITimer:     uniform(w.rng, 0, 1),
		}
		w.entities[e.ID] = e
		w.logger.Debug("ai entity created",
			log.String("id", e.ID),
			log.String("personality", e.Personality.String()))
	}

	return w
}

func aiID(i int) string {
	return fmt.Sprintf("ai-%02d", i)
}

// AddPlayer creates an entity and an input record for a new connection
// and returns the entity's initial snapshot.
func (w *World) AddPlayer(id string) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := &Entity{
		ID:  id,
		Pos: w.randomSpawnPoint(),
		Yaw: w.rng.Float64() * 2 * math.Pi,
	}
	w.entities[id] = e
	w.inputs[id] = Input{}
	return e.snapshot()
}

// RemovePlayer tears down a player's entity and input record. It reports
// whether the player existed. AI entities are never removed.
func (w *World) RemovePlayer(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[id]
	if !ok || e.AI {
		return false
	}
	delete(w.entities, id)
	delete(w.inputs, id)
	return true
}

// SetInput flips one directional flag on a player's input record. The
// change is visible no later than the next tick. Unknown keys and
// unknown players are ignored.
func (w *World) SetInput(id, key string, pressed bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	in, ok := w.inputs[id]
	if !ok {
		return false
	}
	if !in.ApplyKey(key, pressed) {
		return false
	}
	w.inputs[id] = in
	return true
}

// Scare opens a timid entity's scare window for the given duration.
// While the window is open the entity flees the fence, tumbles while
// airborne and is immune to tilt death.
func (w *World) Scare(id string, seconds float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[id]
	if !ok || e.Personality != PersonalityTimid || e.Dead {
		return false
	}
	e.ScaredTimer = seconds
	return true
}

// Step advances the simulation by one fixed tick: physics, AI steering,
// death checks and respawn countdowns. Death events are published after
// the world lock is released.
func (w *World) Step() {
	dt := w.cfg.Dt()

	w.mu.Lock()
	deaths := w.stepLocked(dt)
	w.mu.Unlock()

	for _, d := range deaths {
		w.logger.Info("entity died",
			log.String("id", d.ID),
			log.Float64("x", d.Position.X),
			log.Float64("z", d.Position.Z))
		w.bus.Publish(bus.NewEvent(EventDeath, "world", d))
	}
}

func (w *World) stepLocked(dt float64) []DeathEvent {
	var deaths []DeathEvent

	for _, id := range w.sortedIDs() {
		e := w.entities[id]

		if e.Dead {
			e.RespawnRemaining -= dt
			if e.RespawnRemaining <= 0 {
				w.respawn(e)
			}
			continue
		}

		if e.AI {
			w.steerAI(e, dt)
		} else {
			applyControls(e, w.inputs[e.ID], w.cfg)
		}
		integrate(e, w.cfg, dt)

		if w.shouldDie(e) {
			e.Dead = true
			e.RespawnRemaining = w.cfg.RespawnSeconds
			deaths = append(deaths, DeathEvent{ID: e.ID, Position: e.Pos})
		}
	}

	w.tick++
	return deaths
}

// shouldDie evaluates the post-integration death conditions: crossing
// the fence, or tipping past the death angle while grounded. A timid
// entity inside its scare window cannot tilt-die.
func (w *World) shouldDie(e *Entity) bool {
	if e.Pos.PlanarLength() >= w.cfg.FenceRadius {
		return true
	}
	if e.Pos.Y <= w.cfg.GroundLevel+groundEps {
		tipped := math.Abs(e.TiltX) > w.cfg.TiltDeathAngle || math.Abs(e.TiltZ) > w.cfg.TiltDeathAngle
		scared := e.Personality == PersonalityTimid && e.ScaredTimer > 0
		if tipped && !scared {
			return true
		}
	}
	return false
}

// respawn returns a dead entity to play: at its spawn point if it has
// one, otherwise at a fresh random point, with a new yaw and all motion
// state zeroed.
func (w *World) respawn(e *Entity) {
	if e.SpawnPoint != nil {
		e.Pos = *e.SpawnPoint
	} else {
		e.Pos = w.randomSpawnPoint()
	}
	e.Yaw = w.rng.Float64() * 2 * math.Pi
	e.Vel = Vec3{}
	e.YawRate = 0
	e.TiltX = 0
	e.TiltZ = 0
	e.TiltRateX = 0
	e.TiltRateZ = 0
	e.RespawnRemaining = 0
	e.Dead = false
}

// randomSpawnPoint draws a uniform point in the spawn disk at ground
// height. Callers hold the world lock.
func (w *World) randomSpawnPoint() Vec3 {
	r := w.cfg.SpawnRadius * math.Sqrt(w.rng.Float64())
	theta := w.rng.Float64() * 2 * math.Pi
	return Vec3{
		X: r * math.Sin(theta),
		Y: w.cfg.GroundLevel,
		Z: r * math.Cos(theta),
	}
}

// Snapshot returns the full entity store in stable id order.
func (w *World) Snapshot() []Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Snapshot, 0, len(w.entities))
	for _, id := range w.sortedIDs() {
		out = append(out, w.entities[id].snapshot())
	}
	return out
}

func (w *World) sortedIDs() []string {
	ids := make([]string, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tick returns the number of completed simulation steps.
func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// EntityCount returns the size of the entity store, dead included.
func (w *World) EntityCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}
