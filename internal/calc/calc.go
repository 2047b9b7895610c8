// Package calc estimates formation properties of a compound from the
// coefficient-weighted contributions of its constituent species.
package calc

import (
	"math"

	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/errors"
)

const (
	// ChargeTolerance is the largest absolute charge sum accepted as neutral.
	ChargeTolerance = 1e-10

	// ReferenceTemperature in kelvin.
	ReferenceTemperature = 298.0

	// GasConstant in J/mol/K.
	GasConstant = 8.314

	// Ln10 is the natural log of 10 as used for pKsp.
	Ln10 = 2.303
)

// Term is one species of a composition with its stoichiometric coefficient.
type Term struct {
	Species *catalog.Species
	Coef    float64
}

// Result holds the estimated properties at full precision.
type Result struct {
	// DeltaG is the Gibbs energy of formation (J/mol)
	DeltaG float64 `json:"delta_g"`

	// DeltaH is the enthalpy of formation (J/mol)
	DeltaH float64 `json:"delta_h"`

	// DeltaS is the entropy of formation (J/mol/K)
	DeltaS float64 `json:"delta_s"`

	// Entropy is the standard molar entropy S° (J/mol/K)
	Entropy float64 `json:"entropy"`

	// HasKsp reports whether the dissociation marker was present with a zero coefficient.
	HasKsp bool `json:"has_ksp"`

	// DeltaGDisso is the Gibbs energy of dissolution (J/mol), set with HasKsp.
	DeltaGDisso float64 `json:"delta_g_disso,omitempty"`

	// PKsp is -log10 of the solubility product, set with HasKsp.
	PKsp float64 `json:"pksp,omitempty"`

	// MarkerUsed reports whether the dissociation marker species was entered
	// with a non-zero coefficient, which rules out the pKsp estimate.
	MarkerUsed bool `json:"marker_used"`
}

// Rounded is the display form of a Result: energies in kJ/mol and every
// magnitude rounded half-to-even to an integer.
type Rounded struct {
	DeltaGf int64  `json:"delta_gf_kj"`
	DeltaHf int64  `json:"delta_hf_kj"`
	DeltaSf int64  `json:"delta_sf"`
	Entropy int64  `json:"entropy"`
	PKsp    *int64 `json:"pksp,omitempty"`
}

// Rounded returns the display values of r.
func (r *Result) Rounded() Rounded {
	out := Rounded{
		DeltaGf: roundInt(r.DeltaG / 1000),
		DeltaHf: roundInt(r.DeltaH / 1000),
		DeltaSf: roundInt(r.DeltaS),
		Entropy: roundInt(r.Entropy),
	}
	if r.HasKsp {
		p := roundInt(r.PKsp)
		out.PKsp = &p
	}
	return out
}

// DropKsp clears the solubility-product fields.
func (r *Result) DropKsp() {
	r.HasKsp = false
	r.DeltaGDisso = 0
	r.PKsp = 0
}

func roundInt(v float64) int64 {
	return int64(math.RoundToEven(v))
}

// ChargeSum returns the coefficient-weighted charge of the terms with a
// non-zero coefficient.
func ChargeSum(terms []Term) float64 {
	var sum float64
	for _, t := range terms {
		if t.Coef != 0 {
			sum += t.Coef * t.Species.Charge
		}
	}
	return sum
}

// Compute validates electroneutrality and derives ΔG, ΔH, ΔS and S° of the
// composition. terms must be in species collection order; marker names the
// species whose zero coefficient enables the pKsp estimate.
//
// Nothing is derived on failure.
func Compute(elems *catalog.Elements, terms []Term, marker string) (*Result, error) {
	if sum := ChargeSum(terms); math.Abs(sum) > ChargeTolerance {
		return nil, errors.NewElectroneutrality(sum)
	}

	var sg, ss, sdgaq, sselem float64
	var dissociation, markerUsed bool
	for _, t := range terms {
		sp := t.Species
		sg += t.Coef * sp.G
		ss += t.Coef * sp.S
		sdgaq += t.Coef * sp.DGaq

		var selem float64
		for _, ec := range sp.Elements {
			el, ok := elems.Lookup(ec.Symbol)
			if !ok {
				return nil, errors.NewUnknownElement(ec.Symbol)
			}
			selem += el.Entropy * float64(ec.Count)
		}
		sselem += t.Coef * selem

		if sp.Name == marker {
			if t.Coef == 0 {
				dissociation = true
			} else {
				markerUsed = true
			}
		}
	}

	r := &Result{
		DeltaG:     sg,
		DeltaS:     ss - sselem,
		Entropy:    ss,
		MarkerUsed: markerUsed,
	}
	r.DeltaH = sg + ReferenceTemperature*r.DeltaS

	if dissociation {
		r.HasKsp = true
		r.DeltaGDisso = sdgaq - sg
		logKsp := -r.DeltaGDisso / (Ln10 * GasConstant * ReferenceTemperature)
		r.PKsp = -logKsp
	}
	return r, nil
}
