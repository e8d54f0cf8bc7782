// Package source creates the optical photons a run tracks: scintillation
// from point emitters or energy deposits, and replay of externally
// generated photon lists.
package source

import (
	"fmt"
	"sync/atomic"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/material"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// Source produces the photon population of one run
type Source interface {
	Generate(sampler core.Sampler) ([]*photon.OpticalPhoton, error)
}

// idCounter hands out unique photon identifiers across all sources
var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// PointSource emits isotropically from a fixed position. Wavelengths come
// from the material emission spectrum and emission times from its
// scintillation pulse shape.
type PointSource struct {
	Position core.Vec3
	Material *material.Material
	Count    int
}

// NewPointSource validates that the material scintillates
func NewPointSource(position core.Vec3, mat *material.Material, count int) (*PointSource, error) {
	if mat == nil || mat.Emission == nil || mat.TimeResponse == nil {
		return nil, fmt.Errorf("point source requires a scintillating material")
	}
	if count <= 0 {
		return nil, fmt.Errorf("point source count must be positive, got %d", count)
	}
	return &PointSource{Position: position, Material: mat, Count: count}, nil
}

// Generate draws Count photons
func (s *PointSource) Generate(sampler core.Sampler) ([]*photon.OpticalPhoton, error) {
	photons := make([]*photon.OpticalPhoton, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		photons = append(photons, emitIsotropic(s.Position, s.Material, sampler))
	}
	return photons, nil
}

// emitIsotropic draws one scintillation photon: uniform direction on the
// sphere, uniform polarization, wavelength and time from the material.
func emitIsotropic(position core.Vec3, mat *material.Material, sampler core.Sampler) *photon.OpticalPhoton {
	direction := core.SampleOnUnitSphere(sampler.Get2D())
	polarization := core.SampleOnUnitSphere(sampler.Get2D())
	wavelength, time := mat.SampleEmission(sampler)
	return photon.New(nextID(), position, direction, polarization, wavelength, time)
}

// Deposit is one localized energy deposition in a scintillator
type Deposit struct {
	Position core.Vec3
	Energy   float64 // MeV
}

// DepositionSource converts energy deposits into scintillation photons
// using the material light yield.
type DepositionSource struct {
	Deposits []Deposit
	Material *material.Material
}

// NewDepositionSource validates that the material scintillates
func NewDepositionSource(deposits []Deposit, mat *material.Material) (*DepositionSource, error) {
	if mat == nil || mat.Emission == nil || mat.TimeResponse == nil {
		return nil, fmt.Errorf("deposition source requires a scintillating material")
	}
	if len(deposits) == 0 {
		return nil, fmt.Errorf("deposition source has no deposits")
	}
	return &DepositionSource{Deposits: deposits, Material: mat}, nil
}

// Generate emits LightYield photons per MeV at each deposit
func (s *DepositionSource) Generate(sampler core.Sampler) ([]*photon.OpticalPhoton, error) {
	var photons []*photon.OpticalPhoton
	for _, d := range s.Deposits {
		count := int(d.Energy*s.Material.LightYield + 0.5)
		for i := 0; i < count; i++ {
			photons = append(photons, emitIsotropic(d.Position, s.Material, sampler))
		}
	}
	if len(photons) == 0 {
		return nil, fmt.Errorf("deposits too small to yield any photons")
	}
	return photons, nil
}
