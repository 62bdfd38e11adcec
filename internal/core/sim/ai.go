package sim

import (
	"math"
	"math/rand"
)

// Fence avoidance kicks in once an AI entity wanders past this fraction
// of the fence radius.
const avoidanceBand = 0.9

// How long a timid entity's avoidance window suppresses the random walk.
const avoidWindow = 0.5

// steerAI picks a target heading for one alive AI entity and converts it
// into yaw and thrust. The shared friction, clamp and tilt stages in
// integrate run afterwards in the same tick.
func (w *World) steerAI(e *Entity, dt float64) {
	p := personalityTable[e.Personality]

	if e.AIAvoidTimer > 0 {
		e.AIAvoidTimer -= dt
	}

	// Random-walk fallback. Personality targeting below may override the
	// rolled heading in the same tick.
	e.AITimer -= dt
	if e.AITimer <= 0 && (e.Personality != PersonalityTimid || e.AIAvoidTimer <= 0) {
		e.AITargetHeading = w.rng.Float64() * 2 * math.Pi
		e.AITimer = uniform(w.rng, p.walkMin, p.walkMax)
	}

	switch e.Personality {
	case PersonalityTimid:
		if e.ScaredTimer > 0 {
			e.ScaredTimer -= dt
			if e.Pos.PlanarLength() > w.cfg.FenceRadius*avoidanceBand {
				e.AITargetHeading = headingToCenter(e) + uniform(w.rng, -0.2, 0.2)
				e.AITimer = 0.1
				e.AIAvoidTimer = avoidWindow
			}
		}
	case PersonalityBrave:
		// Usually avoids the fence; one roll in five it just keeps going.
		if w.rng.Float64() < 0.8 && e.Pos.PlanarLength() > w.cfg.FenceRadius*avoidanceBand {
			e.AITargetHeading = headingToCenter(e) + uniform(w.rng, -0.2, 0.2)
		}
	case PersonalityCurious:
		if w.rng.Float64() < 0.01 {
			if target, ok := w.nearestOther(e); ok {
				e.AITargetHeading = headingTo(e, target) + uniform(w.rng, -0.15, 0.15)
			}
		}
	case PersonalityAggressive:
		// Persistent chase, re-acquired every tick.
		if target, ok := w.nearestOther(e); ok {
			e.AITargetHeading = headingTo(e, target) + uniform(w.rng, -0.1, 0.1)
		}
	case PersonalityHyper:
		// Random walk only; the short timer above keeps it twitchy.
	}

	diff := normalizeAngle(e.AITargetHeading - e.Yaw)
	e.YawRate = diff * p.turnSpeed
	e.Yaw += e.YawRate

	e.Vel.X += math.Sin(e.Yaw) * w.cfg.Accel * p.moveSpeed
	e.Vel.Z += math.Cos(e.Yaw) * w.cfg.Accel * p.moveSpeed
}

// nearestOther scans for the closest other live entity by planar
// distance. Dead entities are skipped. The scan is linear; entity counts
// are small.
func (w *World) nearestOther(e *Entity) (*Entity, bool) {
	var best *Entity
	bestDist := math.MaxFloat64
	for _, other := range w.entities {
		if other == e || other.Dead {
			continue
		}
		dx := other.Pos.X - e.Pos.X
		dz := other.Pos.Z - e.Pos.Z
		if d := math.Hypot(dx, dz); d < bestDist {
			bestDist = d
			best = other
		}
	}
	return best, best != nil
}

// headingToCenter returns the yaw that points from the entity to the
// arena center. Headings map to the direction vector (sin, cos).
func headingToCenter(e *Entity) float64 {
	return math.Atan2(-e.Pos.X, -e.Pos.Z)
}

func headingTo(e, target *Entity) float64 {
	return math.Atan2(target.Pos.X-e.Pos.X, target.Pos.Z-e.Pos.Z)
}

// normalizeAngle wraps an angle difference into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}
