package material

import "math"

// Coating describes a diffusely reflective wrapping (e.g. PTFE tape) applied
// to a face. Reflectivity is the total reflection probability; the lambertian
// fraction of reflections is diffuse, the rest follow a Gaussian specular
// lobe around the mirror direction.
type Coating struct {
	Name         string
	Reflectivity float64

	// Double-exponential fit to the measured diffuse fraction as a
	// function of incidence angle in degrees: a1*exp(b1*x) + a2*exp(b2*x).
	LambertianA1, LambertianB1 float64
	LambertianA2, LambertianB2 float64

	// Specular lobe width in degrees, interpolated over incidence angle.
	LobeAngles []float64
	LobeSigmas []float64
}

// LambertianFraction returns the diffuse fraction at the given incidence
// angle in degrees
func (c *Coating) LambertianFraction(angleDeg float64) float64 {
	return c.LambertianA1*math.Exp(c.LambertianB1*angleDeg) +
		c.LambertianA2*math.Exp(c.LambertianB2*angleDeg)
}

// LobeSigma returns the specular lobe width in degrees at the given
// incidence angle, linearly interpolated from the measured table
func (c *Coating) LobeSigma(angleDeg float64) float64 {
	a, s := c.LobeAngles, c.LobeSigmas
	if angleDeg <= a[0] {
		return s[0]
	}
	for i := 1; i < len(a); i++ {
		if angleDeg <= a[i] {
			f := (angleDeg - a[i-1]) / (a[i] - a[i-1])
			return s[i-1] + f*(s[i]-s[i-1])
		}
	}
	return s[len(s)-1]
}

// Library holds the built-in materials and coatings keyed by name
type Library struct {
	Materials map[string]*Material
	Coatings  map[string]*Coating
}

// NewLibrary builds the default material library
func NewLibrary() *Library {
	lib := &Library{
		Materials: map[string]*Material{},
		Coatings:  map[string]*Coating{},
	}
	for _, m := range []*Material{buildEJ204(), buildEJ550(), buildAir(), buildSensLGlass()} {
		lib.Materials[m.Name] = m
	}
	lib.Coatings["Teflon"] = buildTeflon()
	return lib
}

// Get returns a material by name, or nil if unknown
func (l *Library) Get(name string) *Material {
	return l.Materials[name]
}

// buildEJ204 returns the EJ-204 plastic scintillator. Optical constants from
// the Eljen datasheet; the emission spectrum is a digest of the published
// curve, peaked at 408 nm.
func buildEJ204() *Material {
	wavelengths := []float64{
		380, 384, 388, 392, 396, 400, 404, 408, 410, 412, 414, 418,
		422, 426, 430, 435, 440, 445, 450, 455, 460, 465, 470, 475,
		480, 485, 490, 496,
	}
	amplitudes := []float64{
		0.044, 0.075, 0.130, 0.240, 0.380, 0.560, 0.760, 0.950, 0.990, 1.000,
		0.970, 0.880, 0.740, 0.630, 0.550, 0.470, 0.410, 0.360, 0.300, 0.240,
		0.185, 0.150, 0.110, 0.085, 0.065, 0.050, 0.040, 0.030,
	}

	return &Material{
		Name:              "EJ-204",
		Index:             1.58,
		AttenuationLength: 1600, // mm
		LightYield:        10400,
		Emission:          NewSpectrum(wavelengths, amplitudes),
		TimeResponse:      NewTimeResponse(1.3, 2.0, 32.0, 0.05),
	}
}

// buildEJ550 returns the EJ-550 optical coupling grease
func buildEJ550() *Material {
	return &Material{
		Name:              "EJ-550",
		Index:             1.46,
		AttenuationLength: 1600, // arbitrary, only the index matters in the coupling layer
	}
}

func buildAir() *Material {
	return &Material{
		Name:              "Air",
		Index:             1.0,
		AttenuationLength: 3000,
	}
}

// buildSensLGlass returns the SensL photodetector window glass
func buildSensLGlass() *Material {
	return &Material{
		Name:              "SensLGlass",
		Index:             1.53,
		AttenuationLength: 1600,
	}
}

// buildTeflon returns the PTFE wrapping coating. Reflectivity and lobe data
// from Janecek & Moses reflectance measurements.
func buildTeflon() *Coating {
	return &Coating{
		Name:         "Teflon",
		Reflectivity: 0.945,
		LambertianA1: -9.182e-5, LambertianB1: 0.09479,
		LambertianA2: 0.9799, LambertianB2: -9.27e-5,
		LobeAngles: []float64{0, 10, 30, 50, 62, 74, 90},
		LobeSigmas: []float64{32.07, 25.97, 13.77, 13.4, 11.4, 7.60, 2.52},
	}
}
