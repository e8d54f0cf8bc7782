package tracker

import (
	"math"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// interactWithCoating resolves a boundary crossing on a wrapped face.
// The coating either absorbs the photon or reflects it, diffusely with the
// measured lambertian fraction or through a Gaussian specular lobe.
func (t *Tracker) interactWithCoating(p *photon.OpticalPhoton, hit geometry.BoundaryHit, sampler core.Sampler) {
	coating := hit.Face.Coating
	if coating == nil && hit.NeighborFace != nil {
		coating = hit.NeighborFace.Coating
	}

	step := photon.Step{
		Volume: volumeName(p.Volume),
		Face:   hit.Face.Direction.String(),
	}

	normal := incidenceNormal(p.Direction, hit.Normal)

	if sampler.Get1D() >= coating.Reflectivity {
		p.Status = photon.StatusAbsorbed
		step.Kind = photon.StepCoatAbsorb
		step.Position = p.Position
		step.Time = p.Time
		step.IncidenceDeg = angleDeg(p.Direction.Negate(), normal)
		p.Append(step)
		return
	}

	incidence := angleDeg(p.Direction.Negate(), normal)
	var newDirection core.Vec3

	if sampler.Get1D() < coating.LambertianFraction(incidence) {
		newDirection = core.SampleCosineHemisphere(normal, sampler.Get2D())
	} else {
		newDirection = sampleSpecularLobe(p.Direction, normal, coating.LobeSigma(incidence), sampler)
	}

	t.applyDirection(p, hit, newDirection, true, normal, step,
		photon.StepCoatReflect, photon.StepCoatReflect)
}

// sampleSpecularLobe reflects about a normal perturbed by a Gaussian angle
// of the given width in degrees, keeping the outcome in the incidence
// half-space. Persistent failures degrade to a plain mirror.
func sampleSpecularLobe(direction, normal core.Vec3, sigmaDeg float64, sampler core.Sampler) core.Vec3 {
	for attempt := 0; attempt <= grazingRetries; attempt++ {
		theta := sampleGaussian(sampler) * sigmaDeg * math.Pi / 180
		phi := 2 * math.Pi * sampler.Get1D()

		tangent, bitangent := orthonormalBasis(normal)
		perturbed := normal.Multiply(math.Cos(theta)).
			Add(tangent.Multiply(math.Sin(theta) * math.Cos(phi))).
			Add(bitangent.Multiply(math.Sin(theta) * math.Sin(phi))).
			Normalize()

		candidate := direction.Subtract(perturbed.Multiply(2 * direction.Dot(perturbed))).Normalize()
		if candidate.Dot(normal) > 0 {
			return candidate
		}
	}
	return direction.Subtract(normal.Multiply(2 * direction.Dot(normal))).Normalize()
}

// sampleGaussian draws a standard normal variate by Box-Muller
func sampleGaussian(sampler core.Sampler) float64 {
	u1 := sampler.Get1D()
	for u1 == 0 {
		u1 = sampler.Get1D()
	}
	u2 := sampler.Get1D()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// orthonormalBasis builds two tangents perpendicular to a unit vector
func orthonormalBasis(n core.Vec3) (core.Vec3, core.Vec3) {
	var helper core.Vec3
	if math.Abs(n.X) > 0.1 {
		helper = core.NewVec3(0, 1, 0)
	} else {
		helper = core.NewVec3(1, 0, 0)
	}
	tangent := helper.Cross(n).Normalize()
	return tangent, n.Cross(tangent)
}
