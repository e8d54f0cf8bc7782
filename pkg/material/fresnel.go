package material

import (
	"math"

	"github.com/scintilla-sim/pillartrack/pkg/core"
)

// CosIncidence returns the cosine of the angle between an incident ray and
// the surface normal facing the incidence side. The direction must point
// toward the surface, so the dot product is negative for a valid incidence;
// ok is false when the geometry is degenerate (grazing past 90 degrees).
func CosIncidence(direction, normal core.Vec3) (float64, bool) {
	cos := -direction.Dot(normal)
	if cos < 0 {
		return 0, false
	}
	return math.Min(cos, 1.0), true
}

// SinTransmission applies Snell's law. ok is false on total internal
// reflection, where no transmitted ray exists.
func SinTransmission(cosIncidence, n1, n2 float64) (float64, bool) {
	sinIncidence := math.Sqrt(math.Max(0, 1.0-cosIncidence*cosIncidence))
	sinTransmission := (n1 / n2) * sinIncidence
	if sinTransmission > 1.0 {
		return 0, false
	}
	return sinTransmission, true
}

// Reflectance returns the polarization-averaged Fresnel reflection
// probability for an unpolarized photon crossing from index n1 to n2.
func Reflectance(cosIncidence, sinTransmission, n1, n2 float64) float64 {
	cosTransmission := math.Sqrt(math.Max(0, 1.0-sinTransmission*sinTransmission))

	rPerpendicular := (n1*cosIncidence - n2*cosTransmission) /
		(n1*cosIncidence + n2*cosTransmission)
	rParallel := (n1*cosTransmission - n2*cosIncidence) /
		(n1*cosTransmission + n2*cosIncidence)

	return 0.5 * (rPerpendicular*rPerpendicular + rParallel*rParallel)
}

// Reflect returns v mirrored about the surface normal: r = v - 2(v·n)n
func Reflect(v, n core.Vec3) core.Vec3 {
	return v.Subtract(n.Multiply(2 * v.Dot(n))).Normalize()
}

// Refract returns the transmitted direction across the interface:
// t = (n1/n2)(v + cosI·n) - cosT·n
func Refract(v, n core.Vec3, cosIncidence, sinTransmission, n1, n2 float64) core.Vec3 {
	cosTransmission := math.Sqrt(math.Max(0, 1.0-sinTransmission*sinTransmission))
	t := v.Add(n.Multiply(cosIncidence)).Multiply(n1 / n2).
		Subtract(n.Multiply(cosTransmission))
	return t.Normalize()
}
