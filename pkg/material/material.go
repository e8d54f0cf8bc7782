// Package material provides immutable optical property records for the
// media a photon can travel through: refractive index, bulk attenuation,
// and the scintillation emission data used by photon sources.
package material

import (
	"math"
	"sort"

	"github.com/scintilla-sim/pillartrack/pkg/core"
)

// Spectrum is a tabulated distribution over wavelengths, used for sampling
// scintillation emission. Amplitudes are normalized to sum to 1 at build time.
type Spectrum struct {
	Wavelengths []float64 // nm, ascending
	cdf         []float64
}

// NewSpectrum builds a sampleable spectrum from wavelength/amplitude pairs
func NewSpectrum(wavelengths, amplitudes []float64) *Spectrum {
	if len(wavelengths) != len(amplitudes) || len(wavelengths) == 0 {
		panic("spectrum requires matching non-empty wavelength and amplitude tables")
	}

	total := 0.0
	for _, a := range amplitudes {
		total += a
	}

	cdf := make([]float64, len(amplitudes))
	running := 0.0
	for i, a := range amplitudes {
		running += a / total
		cdf[i] = running
	}
	cdf[len(cdf)-1] = 1.0

	return &Spectrum{Wavelengths: wavelengths, cdf: cdf}
}

// Sample draws a wavelength from the spectrum given a uniform [0,1) variate
func (s *Spectrum) Sample(u float64) float64 {
	i := sort.SearchFloat64s(s.cdf, u)
	if i >= len(s.Wavelengths) {
		i = len(s.Wavelengths) - 1
	}
	return s.Wavelengths[i]
}

// TimeResponse is the scintillation pulse shape, tabulated and sampleable
// the same way as a Spectrum but over emission times in ns.
type TimeResponse struct {
	Times []float64 // ns, ascending
	cdf   []float64
}

// NewTimeResponse tabulates the double-exponential pulse shape
// exp(-t/fall) - exp(-t/rise) over [0, span] ns.
func NewTimeResponse(riseTime, fallTime, span, step float64) *TimeResponse {
	n := int(span/step) + 1
	times := make([]float64, n)
	amplitudes := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) * step
		times[i] = t
		amplitudes[i] = math.Exp(-t/fallTime) - math.Exp(-t/riseTime)
		total += amplitudes[i]
	}

	cdf := make([]float64, n)
	running := 0.0
	for i, a := range amplitudes {
		running += a / total
		cdf[i] = running
	}
	cdf[n-1] = 1.0

	return &TimeResponse{Times: times, cdf: cdf}
}

// Sample draws an emission time from the pulse shape
func (tr *TimeResponse) Sample(u float64) float64 {
	i := sort.SearchFloat64s(tr.cdf, u)
	if i >= len(tr.Times) {
		i = len(tr.Times) - 1
	}
	return tr.Times[i]
}

// IndexPoint is one entry of a dispersion table
type IndexPoint struct {
	Wavelength float64 // nm
	Index      float64
}

// Material is an immutable optical property record. Materials are shared by
// reference across all volumes using them and never mutated after load.
type Material struct {
	Name string

	// Refractive index at the reference wavelength. When Dispersion is
	// non-empty the index is interpolated from it instead.
	Index      float64
	Dispersion []IndexPoint // optional, ascending by wavelength

	// Bulk attenuation length in mm. +Inf means a lossless medium.
	AttenuationLength float64

	// Scattering length in mm and anisotropy factor (Henyey-Greenstein g).
	// Zero scattering length disables bulk scattering.
	ScatteringLength float64
	Anisotropy       float64

	// Scintillation emission data, nil for non-scintillating media.
	LightYield   float64 // photons/MeV
	Emission     *Spectrum
	TimeResponse *TimeResponse
}

// RefractiveIndex returns the refractive index at the given wavelength in nm
func (m *Material) RefractiveIndex(wavelength float64) float64 {
	if len(m.Dispersion) == 0 {
		return m.Index
	}
	pts := m.Dispersion
	if wavelength <= pts[0].Wavelength {
		return pts[0].Index
	}
	if wavelength >= pts[len(pts)-1].Wavelength {
		return pts[len(pts)-1].Index
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Wavelength >= wavelength })
	lo, hi := pts[i-1], pts[i]
	f := (wavelength - lo.Wavelength) / (hi.Wavelength - lo.Wavelength)
	return lo.Index + f*(hi.Index-lo.Index)
}

// SpeedOfLight is the vacuum speed of light in µm/ns
const SpeedOfLight = 299792.458

// Speed returns the photon speed in this medium in µm/ns
func (m *Material) Speed(wavelength float64) float64 {
	return SpeedOfLight / m.RefractiveIndex(wavelength)
}

// SurvivalProbability returns the probability that a photon survives bulk
// attenuation over a path of the given length. Path length in µm, the
// attenuation length field is in mm.
func (m *Material) SurvivalProbability(pathLength float64) float64 {
	if math.IsInf(m.AttenuationLength, 1) {
		return 1.0
	}
	return math.Exp(-(pathLength * 1e-3) / m.AttenuationLength)
}

// SampleEmission draws an emission wavelength and time for one scintillation
// photon. Panics if the material does not scintillate.
func (m *Material) SampleEmission(sampler core.Sampler) (wavelength, time float64) {
	return m.Emission.Sample(sampler.Get1D()), m.TimeResponse.Sample(sampler.Get1D())
}
