package topology

import (
	"fmt"
	"math/rand"
	"time"
)

// Placement attempt ceilings. Exhausting both random tiers falls through to
// the deterministic grid position.
const (
	DefaultZoneAttempts   = 200
	DefaultCanvasAttempts = 100
)

// Options tunes the simulator. Every field is used as given, so zero means
// zero: no clearance, no drift, no pointer push or no random placement tier.
// Start from DefaultOptions and override.
type Options struct {
	Width  float64
	Height float64

	// EdgePadding is the margin a node's bounding box keeps from the canvas
	// edge while moving.
	EdgePadding float64
	// ZonePadding is the margin used when laying out zones.
	ZonePadding float64
	// MinClearance is the minimum gap between two bounding boxes.
	MinClearance float64

	DriftSpeed      float64
	PointerRadius   float64
	PointerStrength float64
	PulseStep       float64
	FlowStep        float64

	ZoneAttempts   int
	CanvasAttempts int
}

// DefaultOptions returns the stock background animation tuning for
// a 1920x1080 viewport.
func DefaultOptions() Options {
	return Options{
		Width:           1920,
		Height:          1080,
		EdgePadding:     50,
		ZonePadding:     80,
		MinClearance:    120,
		DriftSpeed:      0.03,
		PointerRadius:   150,
		PointerStrength: 0.2,
		PulseStep:       0.02,
		FlowStep:        0.01,
		ZoneAttempts:    DefaultZoneAttempts,
		CanvasAttempts:  DefaultCanvasAttempts,
	}
}

// Validate rejects negative or non-positive tuning values.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("canvas size %.0fx%.0f must be positive", o.Width, o.Height)
	}
	if o.EdgePadding < 0 || o.ZonePadding < 0 || o.MinClearance < 0 {
		return fmt.Errorf("padding and clearance must not be negative")
	}
	if o.DriftSpeed < 0 || o.PointerRadius < 0 || o.PointerStrength < 0 {
		return fmt.Errorf("drift speed and pointer settings must not be negative")
	}
	if o.ZoneAttempts < 0 || o.CanvasAttempts < 0 {
		return fmt.Errorf("placement attempts must not be negative")
	}
	return nil
}

// Random is the randomness the simulation draws from. *rand.Rand satisfies
// it; tests substitute scripted sources to force fallback paths.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// NewRandom returns a seeded source. A zero seed uses the current time.
func NewRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
