package swarm

import (
	"errors"
	"fmt"

	"github.com/stepien-lab/MidgePy/internal/climate"
)

// Defaults for a midge swarm over a 1 km farm, one step per simulated minute.
const (
	DefaultActiveVelocity      = 0.50 // m/s
	DefaultRoamVelocity        = 0.13 // m/s
	DefaultDetectionDistance   = 300  // m
	DefaultDayLength           = 300  // steps of active flight per day
	DefaultPVtoH               = 0.90
	DefaultPHtoV               = 0.14
	DefaultInitialInfectedProb = 0.01
	DefaultHostWalkVelocity    = 0.1 // m/s
)

// ErrInvalidConfig is wrapped by every ConfigError.
var ErrInvalidConfig = errors.New("swarm: invalid configuration")

// ConfigError names the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("swarm: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config is the fixed parameter set of one run. Build it with DefaultConfig
// and override fields; the engine copies it on construction.
type Config struct {
	// Size is the number of midges. When zero, VectorsPerHost times the
	// herd size is used.
	Size           int
	VectorsPerHost int

	// Infected seeds infectious midges explicitly. When nil every midge is
	// infectious with probability InitialInfectedProb.
	Infected            []bool
	InitialInfectedProb float64

	// LastFeed optionally fixes each midge's last blood meal step. When nil
	// they are drawn uniformly from [-BiteRate, -1].
	LastFeed []int

	Schedule climate.Schedule
	PVtoH    float64
	PHtoV    float64

	Turnover        bool
	RecordPositions bool

	ActiveVelocity        float64
	RoamVelocity          float64 // reported only; roaming flies at ActiveVelocity
	DetectionDistance     float64
	BiteThresholdDistance float64
	DayLength             int
	BiteRate              int

	// MoveHosts walks the herd along the movement strategy every step.
	MoveHosts        bool
	HostWalkVelocity float64
}

// DefaultConfig returns the parameters of the field study.
func DefaultConfig() Config {
	return Config{
		VectorsPerHost:        100,
		InitialInfectedProb:   DefaultInitialInfectedProb,
		Schedule:              climate.Default(),
		PVtoH:                 DefaultPVtoH,
		PHtoV:                 DefaultPHtoV,
		Turnover:              true,
		ActiveVelocity:        DefaultActiveVelocity,
		RoamVelocity:          DefaultRoamVelocity,
		DetectionDistance:     DefaultDetectionDistance,
		BiteThresholdDistance: DefaultActiveVelocity,
		DayLength:             DefaultDayLength,
		BiteRate:              2 * DefaultDayLength,
		HostWalkVelocity:      DefaultHostWalkVelocity,
	}
}

func validProb(p float64) bool { return p >= 0 && p <= 1 }

// resolve checks cfg against a herd of hostSize and fills Size.
func (cfg Config) resolve(hostSize int) (Config, error) {
	if cfg.Size == 0 {
		if cfg.VectorsPerHost <= 0 {
			return cfg, configErr("Size", "either Size or VectorsPerHost must be positive")
		}
		cfg.Size = cfg.VectorsPerHost * hostSize
	}
	if cfg.Size < 0 {
		return cfg, configErr("Size", "got %d", cfg.Size)
	}
	if cfg.Infected != nil && len(cfg.Infected) != cfg.Size {
		return cfg, configErr("Infected", "%d flags for %d midges", len(cfg.Infected), cfg.Size)
	}
	if cfg.LastFeed != nil && len(cfg.LastFeed) != cfg.Size {
		return cfg, configErr("LastFeed", "%d feed times for %d midges", len(cfg.LastFeed), cfg.Size)
	}

	for _, p := range []struct {
		name string
		v    float64
	}{
		{"PVtoH", cfg.PVtoH},
		{"PHtoV", cfg.PHtoV},
		{"InitialInfectedProb", cfg.InitialInfectedProb},
	} {
		if !validProb(p.v) {
			return cfg, configErr(p.name, "probability %v outside [0,1]", p.v)
		}
	}
	if cfg.Schedule.Days() == 0 {
		return cfg, configErr("Schedule", "no EIP/DPS values")
	}

	if cfg.DayLength <= 0 {
		return cfg, configErr("DayLength", "got %d", cfg.DayLength)
	}
	if cfg.BiteRate < 0 {
		return cfg, configErr("BiteRate", "got %d", cfg.BiteRate)
	}
	if cfg.ActiveVelocity < 0 || cfg.RoamVelocity < 0 || cfg.HostWalkVelocity < 0 {
		return cfg, configErr("velocity", "velocities must not be negative")
	}
	if cfg.DetectionDistance < 0 || cfg.BiteThresholdDistance < 0 {
		return cfg, configErr("distance", "distances must not be negative")
	}

	// keep the caller's slices out of reach
	if cfg.Infected != nil {
		cfg.Infected = append([]bool(nil), cfg.Infected...)
	}
	if cfg.LastFeed != nil {
		cfg.LastFeed = append([]int(nil), cfg.LastFeed...)
	}
	return cfg, nil
}
