// Package tracker advances optical photons through the volume setup one
// boundary interaction at a time, from emission to a terminal state.
package tracker

import (
	"errors"
	"math"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
	"github.com/scintilla-sim/pillartrack/pkg/log"
	"github.com/scintilla-sim/pillartrack/pkg/material"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

var logger = log.New("tracker")

// ErrStepLimitExceeded marks photons that never reached a terminal state
// within the step limit. Per-photon, never a run failure.
var ErrStepLimitExceeded = errors.New("step limit exceeded")

const (
	// DefaultMaxSteps bounds the interaction count per photon.
	DefaultMaxSteps = 1000
	// grazingRetries bounds microfacet redraws before the macroscopic
	// normal fallback.
	grazingRetries = 3
	// surfaceNudge keeps post-interaction origins off the face plane.
	surfaceNudge = 1e-6
)

// exteriorIndex is the refractive index outside every volume
const exteriorIndex = 1.0

// Tracker advances photons through a validated geometry
type Tracker struct {
	geometry *geometry.Geometry
	maxSteps int
}

// New creates a tracker. maxSteps <= 0 selects DefaultMaxSteps.
func New(g *geometry.Geometry, maxSteps int) *Tracker {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Tracker{geometry: g, maxSteps: maxSteps}
}

// Track runs a photon until it reaches a terminal state or the step limit
func (t *Tracker) Track(p *photon.OpticalPhoton, sampler core.Sampler) {
	p.Volume = t.geometry.Locate(p.Position)

	for !p.Terminal() {
		if len(p.Steps) >= t.maxSteps {
			p.Status = photon.StatusInvalid
			p.Append(photon.Step{
				Kind:     photon.StepInvalid,
				Position: p.Position,
				Time:     p.Time,
				Volume:   volumeName(p.Volume),
				Cause:    ErrStepLimitExceeded.Error(),
			})
			return
		}
		t.Step(p, sampler)
	}
}

// Step advances the photon by exactly one interaction: it flies to the next
// boundary (or an absorption point short of it) and resolves what happens
// there. Terminal statuses are set on the photon itself.
func (t *Tracker) Step(p *photon.OpticalPhoton, sampler core.Sampler) {
	if p.Volume == nil {
		// Photons handed over without a volume handle (replayed lists,
		// single-step callers) start wherever their position puts them.
		p.Volume = t.geometry.Locate(p.Position)
	}

	hit, ok := t.geometry.NextBoundary(p.Position, p.Direction, p.Volume)
	if !ok {
		// Nothing ahead: the photon leaves the setup.
		p.Status = photon.StatusEscaped
		p.Append(photon.Step{
			Kind:     photon.StepEscaped,
			Position: p.Position,
			Time:     p.Time,
		})
		return
	}

	speed := material.SpeedOfLight
	if p.Volume != nil {
		speed = p.Volume.Material.Speed(p.Wavelength)
		if t.bulkInteraction(p, hit.Distance, speed, sampler) {
			return
		}
	}

	p.Advance(hit.Distance, speed)
	p.Position = hit.Point

	// Detector sentinels terminate on arrival, before any Fresnel draw.
	if kindAt(hit, geometry.FaceDetector) {
		p.Status = photon.StatusDetected
		p.Append(photon.Step{
			Kind:     photon.StepDetected,
			Position: p.Position,
			Time:     p.Time,
			Volume:   volumeName(hit.Volume),
			Face:     hit.Face.Direction.String(),
		})
		return
	}

	switch {
	case kindAt(hit, geometry.FaceCoated):
		t.interactWithCoating(p, hit, sampler)
	case kindAt(hit, geometry.FaceRough):
		t.interactWithTopography(p, hit, sampler)
	default:
		t.interactWithFlatFace(p, hit, sampler)
	}
}

// kindAt checks the struck face and, for coincident planes, the facing
// neighbor face for a designation
func kindAt(hit geometry.BoundaryHit, kind geometry.FaceKind) bool {
	if hit.Face.Kind == kind {
		return true
	}
	return hit.NeighborFace != nil && hit.NeighborFace.Kind == kind
}

// indices returns the refractive indices on the incidence and far side of
// the struck face
func (t *Tracker) indices(p *photon.OpticalPhoton, hit geometry.BoundaryHit) (n1, n2 float64) {
	n1, n2 = exteriorIndex, exteriorIndex
	if p.Volume != nil {
		n1 = p.Volume.Material.RefractiveIndex(p.Wavelength)
	}
	far := t.farVolume(p, hit)
	if far != nil {
		n2 = far.Material.RefractiveIndex(p.Wavelength)
	}
	return n1, n2
}

// farVolume is the volume on the other side of the struck face
func (t *Tracker) farVolume(p *photon.OpticalPhoton, hit geometry.BoundaryHit) *geometry.Volume {
	if p.Volume == nil {
		// Entering from the exterior: the far side is the struck volume.
		return hit.Volume
	}
	return hit.Neighbor
}

// interactWithFlatFace runs a Fresnel draw against the macroscopic normal
func (t *Tracker) interactWithFlatFace(p *photon.OpticalPhoton, hit geometry.BoundaryHit, sampler core.Sampler) {
	normal := incidenceNormal(p.Direction, hit.Normal)
	t.fresnel(p, hit, normal, sampler, photon.Step{
		Volume: volumeName(p.Volume),
		Face:   hit.Face.Direction.String(),
	}, photon.StepFlatReflect, photon.StepFlatTransmit)
}

// fresnel resolves reflection or transmission against the given incidence
// normal and finalizes the step record
func (t *Tracker) fresnel(p *photon.OpticalPhoton, hit geometry.BoundaryHit, normal core.Vec3,
	sampler core.Sampler, step photon.Step, reflectKind, transmitKind photon.StepKind) {

	n1, n2 := t.indices(p, hit)
	newDirection, reflected := fresnelDirection(p.Direction, normal, n1, n2, sampler)
	t.applyDirection(p, hit, newDirection, reflected, normal, step, reflectKind, transmitKind)
}

// fresnelDirection draws the reflect/transmit decision and returns the new
// direction. Total internal reflection always reflects.
func fresnelDirection(direction, normal core.Vec3, n1, n2 float64, sampler core.Sampler) (core.Vec3, bool) {
	cosI, ok := material.CosIncidence(direction, normal)
	if !ok {
		// Degenerate geometry: treat as a mirror.
		return material.Reflect(direction, normal), true
	}
	sinT, ok := material.SinTransmission(cosI, n1, n2)
	if !ok {
		return material.Reflect(direction, normal), true
	}
	if sampler.Get1D() < material.Reflectance(cosI, sinT, n1, n2) {
		return material.Reflect(direction, normal), true
	}
	return material.Refract(direction, normal, cosI, sinT, n1, n2), false
}

// applyDirection commits an interaction outcome: direction, volume handoff
// on transmission, step record, and a nudge off the face plane.
func (t *Tracker) applyDirection(p *photon.OpticalPhoton, hit geometry.BoundaryHit,
	newDirection core.Vec3, reflected bool, normal core.Vec3,
	step photon.Step, reflectKind, transmitKind photon.StepKind) {

	step.Position = p.Position
	step.Time = p.Time
	step.IncidenceDeg = angleDeg(p.Direction.Negate(), normal)

	p.Direction = newDirection
	if reflected {
		step.Kind = reflectKind
		step.ExitDeg = angleDeg(newDirection, normal)
	} else {
		step.Kind = transmitKind
		step.ExitDeg = angleDeg(newDirection, normal.Negate())
		p.Volume = t.farVolume(p, hit)
	}
	p.Position = p.Position.Add(newDirection.Multiply(surfaceNudge))
	p.Append(step)
}

// incidenceNormal orients a face normal against the incoming direction
func incidenceNormal(direction, normal core.Vec3) core.Vec3 {
	if direction.Dot(normal) > 0 {
		return normal.Negate()
	}
	return normal
}

// angleDeg returns the angle between two unit vectors in degrees
func angleDeg(a, b core.Vec3) float64 {
	cos := math.Max(-1, math.Min(1, a.Dot(b)))
	return math.Acos(cos) * 180 / math.Pi
}

func volumeName(v *geometry.Volume) string {
	if v == nil {
		return ""
	}
	return v.Name
}
