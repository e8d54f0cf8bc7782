package material

import (
	"math"
	"math/rand"
	"testing"

	"github.com/scintilla-sim/pillartrack/pkg/core"
)

func TestCosIncidence(t *testing.T) {
	normal := core.NewVec3(0, 0, 1)

	cos, ok := CosIncidence(core.NewVec3(0, 0, -1), normal)
	if !ok || math.Abs(cos-1.0) > 1e-12 {
		t.Errorf("normal incidence: got cos=%v ok=%v, want 1 true", cos, ok)
	}

	// 45 degree incidence
	dir := core.NewVec3(1, 0, -1).Normalize()
	cos, ok = CosIncidence(dir, normal)
	if !ok || math.Abs(cos-math.Sqrt2/2) > 1e-12 {
		t.Errorf("45 degree incidence: got cos=%v ok=%v", cos, ok)
	}

	// Direction pointing away from the surface is degenerate
	if _, ok := CosIncidence(core.NewVec3(0, 0, 1), normal); ok {
		t.Error("expected degenerate incidence for direction along the normal")
	}
}

func TestSinTransmissionTIR(t *testing.T) {
	// Critical angle for n=1.58 to air is asin(1/1.58) ≈ 39.3 degrees.
	// Beyond it there is no transmitted ray.
	cosBeyond := math.Cos(50 * math.Pi / 180)
	if _, ok := SinTransmission(cosBeyond, 1.58, 1.0); ok {
		t.Error("expected total internal reflection at 50 degrees")
	}

	cosBelow := math.Cos(30 * math.Pi / 180)
	sin, ok := SinTransmission(cosBelow, 1.58, 1.0)
	if !ok {
		t.Fatal("expected transmission at 30 degrees")
	}
	want := 1.58 * math.Sin(30*math.Pi/180)
	if math.Abs(sin-want) > 1e-12 {
		t.Errorf("got sinT=%v, want %v", sin, want)
	}
}

func TestReflectanceNormalIncidence(t *testing.T) {
	// At normal incidence R = ((n1-n2)/(n1+n2))^2.
	sinT, ok := SinTransmission(1.0, 1.0, 1.58)
	if !ok {
		t.Fatal("unexpected TIR at normal incidence")
	}
	r := Reflectance(1.0, sinT, 1.0, 1.58)
	want := math.Pow((1.0-1.58)/(1.0+1.58), 2)
	if math.Abs(r-want) > 1e-12 {
		t.Errorf("got R=%v, want %v", r, want)
	}
}

func TestReflectanceIndexMatched(t *testing.T) {
	// An index-matched interface transmits with probability 1 at any angle.
	for _, deg := range []float64{0, 20, 45, 70, 85} {
		cosI := math.Cos(deg * math.Pi / 180)
		sinT, ok := SinTransmission(cosI, 1.46, 1.46)
		if !ok {
			t.Fatalf("unexpected TIR at %v degrees", deg)
		}
		if r := Reflectance(cosI, sinT, 1.46, 1.46); r > 1e-12 {
			t.Errorf("index-matched reflectance at %v degrees: got %v, want 0", deg, r)
		}
	}
}

func TestReflectanceBrewster(t *testing.T) {
	// At Brewster's angle the parallel component vanishes, so the averaged
	// reflectance equals half the perpendicular reflectance.
	n1, n2 := 1.0, 1.58
	brewster := math.Atan(n2 / n1)
	cosI := math.Cos(brewster)
	sinT, ok := SinTransmission(cosI, n1, n2)
	if !ok {
		t.Fatal("unexpected TIR at Brewster's angle")
	}
	cosT := math.Sqrt(1 - sinT*sinT)
	rPerp := (n1*cosI - n2*cosT) / (n1*cosI + n2*cosT)
	want := 0.5 * rPerp * rPerp
	if r := Reflectance(cosI, sinT, n1, n2); math.Abs(r-want) > 1e-12 {
		t.Errorf("got R=%v, want %v", r, want)
	}
}

func TestReflectanceMonteCarloConvergence(t *testing.T) {
	// Drawing reflect/transmit decisions against the analytic reflectance
	// must converge to it. 10k trials, ±1% absolute tolerance.
	random := rand.New(rand.NewSource(42))
	n1, n2 := 1.58, 1.0

	for _, deg := range []float64{0, 15, 30} {
		cosI := math.Cos(deg * math.Pi / 180)
		sinT, ok := SinTransmission(cosI, n1, n2)
		if !ok {
			t.Fatalf("unexpected TIR at %v degrees", deg)
		}
		want := Reflectance(cosI, sinT, n1, n2)

		const trials = 10000
		reflected := 0
		for i := 0; i < trials; i++ {
			if random.Float64() < want {
				reflected++
			}
		}
		got := float64(reflected) / trials
		if math.Abs(got-want) > 0.01 {
			t.Errorf("at %v degrees: sampled fraction %v, analytic %v", deg, got, want)
		}
	}
}

func TestReflectPreservesAngle(t *testing.T) {
	normal := core.NewVec3(0, 0, 1)
	random := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		dir := core.NewVec3(random.Float64()-0.5, random.Float64()-0.5, -random.Float64()-0.1).Normalize()
		reflected := Reflect(dir, normal)

		if math.Abs(reflected.Length()-1.0) > 1e-12 {
			t.Fatalf("reflected direction not unit length: %v", reflected.Length())
		}
		cosIn := -dir.Dot(normal)
		cosOut := reflected.Dot(normal)
		if math.Abs(cosIn-cosOut) > 1e-12 {
			t.Fatalf("reflection changed the incidence angle: in %v out %v", cosIn, cosOut)
		}
	}
}

func TestRefractSnell(t *testing.T) {
	normal := core.NewVec3(0, 0, 1)
	n1, n2 := 1.0, 1.58

	dir := core.NewVec3(1, 0, -1).Normalize()
	cosI, ok := CosIncidence(dir, normal)
	if !ok {
		t.Fatal("degenerate incidence")
	}
	sinT, ok := SinTransmission(cosI, n1, n2)
	if !ok {
		t.Fatal("unexpected TIR")
	}
	refracted := Refract(dir, normal, cosI, sinT, n1, n2)

	if math.Abs(refracted.Length()-1.0) > 1e-12 {
		t.Fatalf("refracted direction not unit length: %v", refracted.Length())
	}
	// The transverse component must satisfy Snell's law.
	sinOut := math.Sqrt(refracted.X*refracted.X + refracted.Y*refracted.Y)
	if math.Abs(sinOut-sinT) > 1e-12 {
		t.Errorf("got sin of refraction %v, want %v", sinOut, sinT)
	}
	// Transmission continues into the surface.
	if refracted.Z >= 0 {
		t.Error("refracted direction does not cross the interface")
	}
}

func TestRefractNormalIncidenceStraightThrough(t *testing.T) {
	normal := core.NewVec3(0, 0, 1)
	dir := core.NewVec3(0, 0, -1)
	refracted := Refract(dir, normal, 1.0, 0.0, 1.0, 1.58)
	if refracted.Subtract(dir).Length() > 1e-12 {
		t.Errorf("normal incidence must pass straight through, got %v", refracted)
	}
}
