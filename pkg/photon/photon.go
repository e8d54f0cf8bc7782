// Package photon holds the optical photon state record and its append-only
// step history. Sources create photons, the tracker mutates them, and a
// photon is terminal once its status leaves Alive.
package photon

import (
	"fmt"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
)

// Status is the photon lifecycle state
type Status int

const (
	StatusAlive Status = iota
	StatusAbsorbed
	StatusDetected
	StatusEscaped
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusAbsorbed:
		return "absorbed"
	case StatusDetected:
		return "detected"
	case StatusEscaped:
		return "escaped"
	case StatusInvalid:
		return "invalid"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText renders the status as its name in JSON output
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StepKind classifies one tracked interaction
type StepKind int

const (
	StepEmission StepKind = iota
	StepBulkAbsorb
	StepBulkScatter
	StepFlatReflect
	StepFlatTransmit
	StepLocalReflect
	StepLocalTransmit
	StepCoatReflect
	StepCoatAbsorb
	StepDetected
	StepEscaped
	StepInvalid
)

func (k StepKind) String() string {
	switch k {
	case StepEmission:
		return "emission"
	case StepBulkAbsorb:
		return "bulkAbsorb"
	case StepBulkScatter:
		return "bulkScatter"
	case StepFlatReflect:
		return "flatReflect"
	case StepFlatTransmit:
		return "flatTransmit"
	case StepLocalReflect:
		return "localReflect"
	case StepLocalTransmit:
		return "localTransmit"
	case StepCoatReflect:
		return "coatReflect"
	case StepCoatAbsorb:
		return "coatAbsorb"
	case StepDetected:
		return "detected"
	case StepEscaped:
		return "escaped"
	case StepInvalid:
		return "invalid"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// MarshalText renders the kind as its name in JSON output
func (k StepKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Step is one entry of the photon history
type Step struct {
	Index        int       `json:"index"`
	Kind         StepKind  `json:"kind"`
	Position     core.Vec3 `json:"position"`
	Time         float64   `json:"time"`
	Volume       string    `json:"volume,omitempty"`
	Face         string    `json:"face,omitempty"`
	IncidenceDeg float64   `json:"incidenceDeg,omitempty"`
	ExitDeg      float64   `json:"exitDeg,omitempty"`
	Fallback     bool      `json:"fallback,omitempty"`
	Cause        string    `json:"cause,omitempty"`
}

// OpticalPhoton is the mutable tracking state of one photon.
// Positions are in µm, time in ns, wavelength in nm.
type OpticalPhoton struct {
	ID               uint64
	Position         core.Vec3
	Direction        core.Vec3 // unit
	Polarization     core.Vec3 // unit, carried opaquely
	Wavelength       float64
	Time             float64
	TraveledDistance float64
	Volume           *geometry.Volume // nil when in the exterior
	Status           Status
	Steps            []Step
}

// New creates an alive photon and records its emission step
func New(id uint64, position, direction, polarization core.Vec3, wavelength, time float64) *OpticalPhoton {
	p := &OpticalPhoton{
		ID:           id,
		Position:     position,
		Direction:    direction.Normalize(),
		Polarization: polarization,
		Wavelength:   wavelength,
		Time:         time,
		Status:       StatusAlive,
	}
	p.Append(Step{Kind: StepEmission, Position: position, Time: time})
	return p
}

// Append adds a step to the history, assigning its index
func (p *OpticalPhoton) Append(step Step) {
	step.Index = len(p.Steps)
	p.Steps = append(p.Steps, step)
}

// Advance moves the photon a distance along its direction, accumulating
// travel time from the speed in the current medium.
func (p *OpticalPhoton) Advance(distance, speed float64) {
	p.Position = p.Position.Add(p.Direction.Multiply(distance))
	p.TraveledDistance += distance
	p.Time += distance / speed
}

// Terminal reports whether tracking has finished
func (p *OpticalPhoton) Terminal() bool {
	return p.Status != StatusAlive
}

// Result is the per-photon output record, one JSON line per photon
type Result struct {
	ID               uint64    `json:"id"`
	Status           Status    `json:"status"`
	Position         core.Vec3 `json:"position"`
	Direction        core.Vec3 `json:"direction"`
	Wavelength       float64   `json:"wavelength"`
	Time             float64   `json:"time"`
	TraveledDistance float64   `json:"traveledDistance"`
	Steps            []Step    `json:"steps"`
}

// Result snapshots the photon for output
func (p *OpticalPhoton) Result() Result {
	return Result{
		ID:               p.ID,
		Status:           p.Status,
		Position:         p.Position,
		Direction:        p.Direction,
		Wavelength:       p.Wavelength,
		Time:             p.Time,
		TraveledDistance: p.TraveledDistance,
		Steps:            p.Steps,
	}
}
