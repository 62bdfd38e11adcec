package sim

import (
	"math"

	"github.com/tiltring/tiltring/internal/config"
)

const (
	// Planar speeds below this snap to zero so idle entities do not drift.
	speedSnapEps = 0.01
	// Tilt rates below this snap to zero to kill perpetual jitter.
	tiltSnapEps = 1e-3
	// Grounded-contact tolerance for the tilt death check and scare override.
	groundEps = 0.01
)

// applyControls runs the turning and thrust stages for a player-driven
// entity. AI entities steer through steerAI instead.
func applyControls(e *Entity, in Input, cfg config.SimConfig) {
	// Reversing flips the steering direction, like a car backing up.
	dir := 1.0
	if in.Back && !in.Forward {
		dir = -1.0
	}
	if in.Left {
		e.YawRate += cfg.TurnAccel * dir
	}
	if in.Right {
		e.YawRate -= cfg.TurnAccel * dir
	}
	e.YawRate *= cfg.AngularFriction
	e.Yaw += e.YawRate

	if in.Forward {
		e.Vel.X += math.Sin(e.Yaw) * cfg.Accel
		e.Vel.Z += math.Cos(e.Yaw) * cfg.Accel
	}
	if in.Back {
		e.Vel.X -= math.Sin(e.Yaw) * cfg.Accel * 0.5
		e.Vel.Z -= math.Cos(e.Yaw) * cfg.Accel * 0.5
	}
}

// integrate advances the shared motion and tilt stages by one tick:
// anisotropic friction, speed clamp, gravity, position, ground contact,
// scare override and tilt dynamics. It runs after applyControls or
// steerAI has updated yaw and added thrust.
func integrate(e *Entity, cfg config.SimConfig, dt float64) {
	// Decompose planar velocity onto the entity's heading basis. Sideways
	// motion decays much faster than forward motion, so the entity grips
	// like a wheeled vehicle instead of sliding like a puck.
	fwdX, fwdZ := math.Sin(e.Yaw), math.Cos(e.Yaw)
	rightX, rightZ := math.Cos(e.Yaw), -math.Sin(e.Yaw)

	vf := e.Vel.X*fwdX + e.Vel.Z*fwdZ
	vr := e.Vel.X*rightX + e.Vel.Z*rightZ

	vf *= cfg.Friction
	vr *= 1 - (1-cfg.Friction)*cfg.SidewaysMultiplier

	e.Vel.X = vf*fwdX + vr*rightX
	e.Vel.Z = vf*fwdZ + vr*rightZ

	speed := e.Vel.PlanarLength()
	if speed > cfg.MaxSpeed {
		scale := cfg.MaxSpeed / speed
		e.Vel.X *= scale
		e.Vel.Z *= scale
	} else if speed < speedSnapEps {
		e.Vel.X = 0
		e.Vel.Z = 0
	}

	e.Vel.Y -= cfg.Gravity * dt

	e.Pos.X += e.Vel.X
	e.Pos.Y += e.Vel.Y
	e.Pos.Z += e.Vel.Z

	if e.Pos.Y < cfg.GroundLevel {
		e.Pos.Y = cfg.GroundLevel
		e.Vel.Y = 0
		e.TiltRateX *= cfg.GroundTiltDamp
		e.TiltRateZ *= cfg.GroundTiltDamp
	}

	// Scared timid entities tumble backwards while airborne. This is an
	// animation override, not physics: planar motion stops and the pitch
	// rate is pinned to a constant.
	if e.ScaredTimer > 0 && e.Pos.Y > cfg.GroundLevel {
		e.Vel.X = 0
		e.Vel.Z = 0
		e.TiltRateX = cfg.ScareTiltRate
	}

	// Spring-damped tilt recovery.
	e.TiltX += e.TiltRateX
	e.TiltZ += e.TiltRateZ
	e.TiltRateX -= e.TiltX * cfg.TiltRecoveryForce
	e.TiltRateZ -= e.TiltZ * cfg.TiltRecoveryForce
	e.TiltRateX *= cfg.TiltRecoveryDamp
	e.TiltRateZ *= cfg.TiltRecoveryDamp
	if math.Abs(e.TiltRateX) < tiltSnapEps {
		e.TiltRateX = 0
	}
	if math.Abs(e.TiltRateZ) < tiltSnapEps {
		e.TiltRateZ = 0
	}

	// Lean into turns: blend roll toward a yaw-rate-derived target.
	targetLeanZ := -e.YawRate * cfg.LeanFactor
	e.TiltZ = e.TiltZ*0.95 + targetLeanZ*0.05

	if math.Abs(e.TiltZ) < tiltSnapEps && math.Abs(e.TiltRateZ) < tiltSnapEps {
		e.TiltZ = 0
	}
	if math.Abs(e.TiltX) < tiltSnapEps && math.Abs(e.TiltRateX) < tiltSnapEps {
		e.TiltX = 0
	}
}
