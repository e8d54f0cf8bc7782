package tracker

import (
	"math"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// interactWithTopography resolves a boundary crossing on a face with
// measured topography. The Fresnel draw runs against the struck microfacet
// normal; outcomes that leave the wrong half-space of the patch reference
// normal are redrawn with a jittered cast, and after grazingRetries the
// macroscopic face normal takes over.
func (t *Tracker) interactWithTopography(p *photon.OpticalPhoton, hit geometry.BoundaryHit, sampler core.Sampler) {
	face := hit.Face
	if face.Kind != geometry.FaceRough {
		face = hit.NeighborFace
	}

	step := photon.Step{
		Volume: volumeName(p.Volume),
		Face:   hit.Face.Direction.String(),
	}

	mesh, refNormal, err := face.Surface.LocalFrame(hit.Point)
	if err != nil {
		p.Status = photon.StatusInvalid
		step.Kind = photon.StepInvalid
		step.Position = p.Position
		step.Time = p.Time
		step.Cause = err.Error()
		p.Append(step)
		return
	}

	refIncidence := incidenceNormal(p.Direction, refNormal)
	rough := face.Surface.RoughnessScale()
	lift := math.Max(4*rough, 1.0)
	lat0, lat1 := lateralAxes(hit.Face.Direction.Axis())
	n1, n2 := t.indices(p, hit)

	for attempt := 0; attempt <= grazingRetries; attempt++ {
		origin := hit.Point.Subtract(p.Direction.Multiply(lift))
		if attempt > 0 {
			jitter := sampler.Get2D()
			origin = origin.
				WithComponent(lat0, origin.Component(lat0)+(jitter.X-0.5)*2*rough).
				WithComponent(lat1, origin.Component(lat1)+(jitter.Y-0.5)*2*rough)
		}

		record, ok := mesh.Hit(core.Ray{Origin: origin, Direction: p.Direction}, 1e-9, math.Inf(1))
		if !ok {
			continue
		}

		candidate, reflected := fresnelDirection(p.Direction, record.Normal, n1, n2, sampler)
		if reflected && candidate.Dot(refIncidence) <= 0 {
			continue
		}
		if !reflected && candidate.Dot(refIncidence) >= 0 {
			continue
		}

		t.applyDirection(p, hit, candidate, reflected, record.Normal, step,
			photon.StepLocalReflect, photon.StepLocalTransmit)
		return
	}

	// Grazing incidence degenerate: every microfacet draw failed. Fall back
	// to the macroscopic face normal and flag the step.
	logger.Debugf("photon %d: grazing incidence fallback on %s%s at %v",
		p.ID, volumeName(hit.Volume), hit.Face.Direction, hit.Point)
	step.Fallback = true
	t.fresnel(p, hit, incidenceNormal(p.Direction, hit.Normal), sampler, step,
		photon.StepLocalReflect, photon.StepLocalTransmit)
}

// lateralAxes returns the two axes spanning the face plane
func lateralAxes(axis int) (int, int) {
	return (axis + 1) % 3, (axis + 2) % 3
}
