package sim

import "math"

// Vec3 is a position or velocity in world space. Y is vertical.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarLength returns the magnitude of the XZ projection.
func (v Vec3) PlanarLength() float64 {
	return math.Hypot(v.X, v.Z)
}

// Personality is the fixed behavioral profile of an AI entity.
type Personality uint8

const (
	PersonalityNone Personality = iota
	PersonalityTimid
	PersonalityBrave
	PersonalityCurious
	PersonalityHyper
	PersonalityAggressive
)

// Personalities lists the AI profiles in round-robin assignment order.
var Personalities = []Personality{
	PersonalityTimid,
	PersonalityBrave,
	PersonalityCurious,
	PersonalityHyper,
	PersonalityAggressive,
}

func (p Personality) String() string {
	switch p {
	case PersonalityTimid:
		return "timid"
	case PersonalityBrave:
		return "brave"
	case PersonalityCurious:
		return "curious"
	case PersonalityHyper:
		return "hyper"
	case PersonalityAggressive:
		return "aggressive"
	default:
		return ""
	}
}

// personalityParams holds the per-profile movement constants and the
// random-walk re-roll interval bounds in seconds.
type personalityParams struct {
	turnSpeed float64
	moveSpeed float64
	walkMin   float64
	walkMax   float64
}

var personalityTable = map[Personality]personalityParams{
	PersonalityTimid:      {turnSpeed: 0.09, moveSpeed: 0.6, walkMin: 2, walkMax: 5},
	PersonalityBrave:      {turnSpeed: 0.05, moveSpeed: 0.8, walkMin: 2, walkMax: 5},
	PersonalityCurious:    {turnSpeed: 0.07, moveSpeed: 0.7, walkMin: 2, walkMax: 5},
	PersonalityHyper:      {turnSpeed: 0.13, moveSpeed: 1.1, walkMin: 0.5, walkMax: 1.0},
	PersonalityAggressive: {turnSpeed: 0.07, moveSpeed: 0.7, walkMin: 2, walkMax: 5},
}

// Entity is one simulated body, player-controlled or AI-controlled. All
// numeric fields are explicit at creation; none may be absent.
type Entity struct {
	ID string

	Pos Vec3
	Vel Vec3

	Yaw     float64
	YawRate float64

	TiltX     float64
	TiltZ     float64
	TiltRateX float64
	TiltRateZ float64

	Dead             bool
	RespawnRemaining float64

	// SpawnPoint pins respawns to a fixed location. Players only; AI
	// entities respawn at a fresh random point in the spawn disk.
	SpawnPoint *Vec3

	AI          bool
	Personality Personality

	// AI transient state.
	AITimer         float64
	AITargetHeading float64
	AIAvoidTimer    float64
	ScaredTimer     float64
}

// Snapshot is the per-entity view handed to the broadcaster each tick.
type Snapshot struct {
	ID          string
	Position    Vec3
	Yaw         float64
	TiltX       float64
	TiltZ       float64
	Dead        bool
	Personality string
}

func (e *Entity) snapshot() Snapshot {
	return Snapshot{
		ID:          e.ID,
		Position:    e.Pos,
		Yaw:         e.Yaw,
		TiltX:       e.TiltX,
		TiltZ:       e.TiltZ,
		Dead:        e.Dead,
		Personality: e.Personality.String(),
	}
}
