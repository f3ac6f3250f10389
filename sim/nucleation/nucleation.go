// Package nucleation implements classical nucleation theory for a cluster
// forming on a wetting substrate.
package nucleation

import (
	"fmt"
	"math"
)

// Params are the physical constants of the nucleating phase.
type Params struct {
	MeltingTemperature float64 // T_m (K)
	LatentHeat         float64 // L (J/m³)
	SurfaceEnergy      float64 // γ (J/m²)
	ContactAngleDeg    float64 // θ (degrees)
	AttemptFrequency   float64 // A (Hz)
	BoltzmannConstant  float64 // k_B
}

// Calculator evaluates nucleation barriers and rates. It holds no mutable state.
type Calculator struct {
	p       Params
	fFactor float64
}

// NewCalculator validates p and precomputes the wetting factor f(θ).
func NewCalculator(p Params) (*Calculator, error) {
	switch {
	case p.MeltingTemperature <= 0:
		return nil, fmt.Errorf("melting temperature must be positive, got %g", p.MeltingTemperature)
	case p.LatentHeat <= 0:
		return nil, fmt.Errorf("latent heat must be positive, got %g", p.LatentHeat)
	case p.SurfaceEnergy <= 0:
		return nil, fmt.Errorf("surface energy must be positive, got %g", p.SurfaceEnergy)
	case p.ContactAngleDeg < 0 || p.ContactAngleDeg > 180:
		return nil, fmt.Errorf("contact angle must be in [0, 180] degrees, got %g", p.ContactAngleDeg)
	case p.AttemptFrequency <= 0:
		return nil, fmt.Errorf("nucleation attempt frequency must be positive, got %g", p.AttemptFrequency)
	case p.BoltzmannConstant <= 0:
		return nil, fmt.Errorf("boltzmann constant must be positive, got %g", p.BoltzmannConstant)
	}
	return &Calculator{p: p, fFactor: HeteroFactor(p.ContactAngleDeg)}, nil
}

// HeteroFactor is the wetting correction f(θ) = (2+cosθ)(1−cosθ)²/4.
func HeteroFactor(thetaDeg float64) float64 {
	cos := math.Cos(thetaDeg * math.Pi / 180)
	return (2 + cos) * (1 - cos) * (1 - cos) / 4
}

// Undercooling returns ΔT = T_m − T.
func (c *Calculator) Undercooling(t float64) float64 {
	return c.p.MeltingTemperature - t
}

// VolumeFreeEnergy returns ΔG_v = L·ΔT / T_m.
func (c *Calculator) VolumeFreeEnergy(deltaT float64) float64 {
	return c.p.LatentHeat * deltaT / c.p.MeltingTemperature
}

// CriticalRadius returns r* = 2γ / ΔG_v.
func (c *Calculator) CriticalRadius(deltaGv float64) float64 {
	return 2 * c.p.SurfaceEnergy / deltaGv
}

// Barriers returns the homogeneous and heterogeneous barriers for undercooling
// deltaT. Non-positive undercooling has no finite barrier and is rejected.
func (c *Calculator) Barriers(deltaT float64) (homo, hetero float64, err error) {
	if deltaT <= 0 {
		return 0, 0, fmt.Errorf("undercooling must be positive, got %g", deltaT)
	}
	gv := c.VolumeFreeEnergy(deltaT)
	gamma := c.p.SurfaceEnergy
	homo = 16 * math.Pi * gamma * gamma * gamma / (3 * gv * gv)
	return homo, c.fFactor * homo, nil
}

// Probability returns the Boltzmann factor exp(−ΔG / (k_B·T)).
func (c *Calculator) Probability(deltaG, t float64) float64 {
	return math.Exp(-deltaG / (c.p.BoltzmannConstant * t))
}

// ClusterRate is the nucleation rate contributed by one critical cluster of
// size atoms at temperature t: A · P(ΔG_hetero, t) · size.
func (c *Calculator) ClusterRate(size int, t float64) (float64, error) {
	_, hetero, err := c.Barriers(c.Undercooling(t))
	if err != nil {
		return 0, err
	}
	return c.p.AttemptFrequency * c.Probability(hetero, t) * float64(size), nil
}
