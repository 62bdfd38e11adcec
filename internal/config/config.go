package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration, loadable from a YAML file.
// Zero values are filled in from Default, so a partial file is fine.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Sim    SimConfig    `yaml:"sim"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	LogLevel       string        `yaml:"log_level"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadLimit      int64         `yaml:"read_limit"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	MaxClients     int           `yaml:"max_clients"`
	AllowAllOrigin bool          `yaml:"allow_all_origin"`
}

// SimConfig holds arena geometry, physics tuning and AI population settings.
// Defaults reproduce the reference arena.
type SimConfig struct {
	TickRate           int     `yaml:"tick_rate"`
	Seed               string  `yaml:"seed"`
	FenceRadius        float64 `yaml:"fence_radius"`
	SpawnRadius        float64 `yaml:"spawn_radius"`
	GroundLevel        float64 `yaml:"ground_level"`
	Gravity            float64 `yaml:"gravity"`
	Accel              float64 `yaml:"accel"`
	TurnAccel          float64 `yaml:"turn_accel"`
	AngularFriction    float64 `yaml:"angular_friction"`
	Friction           float64 `yaml:"friction"`
	SidewaysMultiplier float64 `yaml:"sideways_multiplier"`
	MaxSpeed           float64 `yaml:"max_speed"`
	TiltDeathAngle     float64 `yaml:"tilt_death_angle"`
	TiltRecoveryForce  float64 `yaml:"tilt_recovery_force"`
	TiltRecoveryDamp   float64 `yaml:"tilt_recovery_damping"`
	GroundTiltDamp     float64 `yaml:"ground_tilt_damping"`
	LeanFactor         float64 `yaml:"lean_factor"`
	ScareTiltRate      float64 `yaml:"scare_tilt_rate"`
	RespawnSeconds     float64 `yaml:"respawn_seconds"`
	AICount            int     `yaml:"ai_count"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:8080",
			LogLevel:       "info",
			WriteTimeout:   5 * time.Second,
			ReadLimit:      1 << 16,
			PingInterval:   25 * time.Second,
			PongTimeout:    60 * time.Second,
			MaxClients:     256,
			AllowAllOrigin: true,
		},
		Sim: SimConfig{
			TickRate:           60,
			Seed:               "tiltring",
			FenceRadius:        100,
			SpawnRadius:        40,
			GroundLevel:        0,
			Gravity:            9.8,
			Accel:              0.02,
			TurnAccel:          0.003,
			AngularFriction:    0.95,
			Friction:           0.99,
			SidewaysMultiplier: 8.0,
			MaxSpeed:           1.5,
			TiltDeathAngle:     0.9,
			TiltRecoveryForce:  0.02,
			TiltRecoveryDamp:   0.9,
			GroundTiltDamp:     0.7,
			LeanFactor:         5.0,
			ScareTiltRate:      -0.25,
			RespawnSeconds:     3.0,
			AICount:            5,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the simulation cannot run with.
func (c Config) Validate() error {
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tick_rate must be positive, got %d", c.Sim.TickRate)
	}
	if c.Sim.FenceRadius <= 0 {
		return fmt.Errorf("sim.fence_radius must be positive, got %g", c.Sim.FenceRadius)
	}
	if c.Sim.SpawnRadius <= 0 || c.Sim.SpawnRadius > c.Sim.FenceRadius {
		return fmt.Errorf("sim.spawn_radius must be in (0, fence_radius], got %g", c.Sim.SpawnRadius)
	}
	if c.Sim.MaxSpeed <= 0 {
		return fmt.Errorf("sim.max_speed must be positive, got %g", c.Sim.MaxSpeed)
	}
	if c.Sim.AICount < 0 {
		return fmt.Errorf("sim.ai_count must not be negative, got %d", c.Sim.AICount)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	return nil
}

// TickDuration returns the fixed simulation step as a time.Duration.
func (c SimConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Dt returns the fixed simulation step in seconds.
func (c SimConfig) Dt() float64 {
	return 1.0 / float64(c.TickRate)
}
