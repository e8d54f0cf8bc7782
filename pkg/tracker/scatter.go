package tracker

import (
	"math"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// bulkInteraction resolves absorption and elastic scattering over the free
// path to the next boundary. The two compete as independent exponential
// processes with a combined interaction length 1/(1/l_abs + 1/l_scat).
// Returns true when the photon interacted short of the boundary.
func (t *Tracker) bulkInteraction(p *photon.OpticalPhoton, freePath, speed float64, sampler core.Sampler) bool {
	mat := p.Volume.Material
	absScale := mat.AttenuationLength * 1e3 // mm to µm
	scale := absScale
	if mat.ScatteringLength > 0 {
		scale = 1 / (1/absScale + 1/(mat.ScatteringLength*1e3))
	}

	if sampler.Get1D() < math.Exp(-freePath/scale) {
		// Reaches the boundary untouched.
		return false
	}

	stop := core.SampleTruncatedExponential(scale, freePath, sampler.Get1D())
	p.Advance(stop, speed)

	// Attribute the interaction by the ratio of inverse lengths.
	if mat.ScatteringLength <= 0 || sampler.Get1D() < scale/absScale {
		p.Status = photon.StatusAbsorbed
		p.Append(photon.Step{
			Kind:     photon.StepBulkAbsorb,
			Position: p.Position,
			Time:     p.Time,
			Volume:   volumeName(p.Volume),
		})
		return true
	}

	p.Direction = scatterDirection(p.Direction, mat.Anisotropy, sampler)
	p.Append(photon.Step{
		Kind:     photon.StepBulkScatter,
		Position: p.Position,
		Time:     p.Time,
		Volume:   volumeName(p.Volume),
	})
	return true
}

// scatterDirection draws a new direction from the Henyey-Greenstein phase
// function around the incoming one. g = 0 is isotropic; the wavelength is
// unchanged by elastic scattering.
func scatterDirection(direction core.Vec3, g float64, sampler core.Sampler) core.Vec3 {
	u := sampler.Get1D()
	var cosTheta float64
	if math.Abs(g) < 1e-6 {
		cosTheta = 1 - 2*u
	} else {
		sq := (1 - g*g) / (1 - g + 2*g*u)
		cosTheta = (1 + g*g - sq*sq) / (2 * g)
	}
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * sampler.Get1D()

	tangent, bitangent := orthonormalBasis(direction)
	return direction.Multiply(cosTheta).
		Add(tangent.Multiply(sinTheta * math.Cos(phi))).
		Add(bitangent.Multiply(sinTheta * math.Sin(phi))).
		Normalize()
}
