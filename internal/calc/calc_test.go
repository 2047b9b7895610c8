package calc

import (
	"math"
	"testing"

	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/errors"
)

func apatiteSet(t *testing.T) *catalog.Set {
	t.Helper()
	elems, err := catalog.NewElements(
		catalog.Element{Symbol: "Ca", State: catalog.StateSolid, Entropy: 41.59},
		catalog.Element{Symbol: "P", State: catalog.StateSolid, Entropy: 41.09},
		catalog.Element{Symbol: "O", State: catalog.StateGas, Entropy: 102.576},
		catalog.Element{Symbol: "F", State: catalog.StateGas, Entropy: 101.3955},
		catalog.Element{Symbol: "H", State: catalog.StateGas, Entropy: 65.34},
	)
	if err != nil {
		t.Fatal(err)
	}
	species := []catalog.Species{
		{Name: "Ca2+", Column: 1, Charge: 2, G: -742500, S: 23.5, DGaq: -553580},
		{Name: "PO4", Column: 2, Charge: -3, G: -861500, S: 80, DGaq: -1018700},
		{Name: "F-", Column: 3, Charge: -1, G: -121000, S: 27.5, DGaq: -282500},
		{Name: "H+", Column: 3, Charge: 1},
	}
	set, err := catalog.Build(elems, species)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return set
}

func terms(set *catalog.Set, coefs ...float64) []Term {
	out := make([]Term, len(set.Species))
	for i := range set.Species {
		out[i] = Term{Species: &set.Species[i]}
		if i < len(coefs) {
			out[i].Coef = coefs[i]
		}
	}
	return out
}

func TestCompute_Fluorapatite(t *testing.T) {
	set := apatiteSet(t)

	r, err := Compute(set.Elements, terms(set, 10, 6, 2, 0), "H+")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	got := r.Rounded()
	if got.DeltaGf != -12836 {
		t.Errorf("ΔGf = %d, want -12836", got.DeltaGf)
	}
	if got.DeltaHf != -13598 {
		t.Errorf("ΔHf = %d, want -13598", got.DeltaHf)
	}
	if got.DeltaSf != -2557 {
		t.Errorf("ΔSf = %d, want -2557", got.DeltaSf)
	}
	if got.Entropy != 770 {
		t.Errorf("S° = %d, want 770", got.Entropy)
	}
	if got.PKsp == nil || *got.PKsp != 109 {
		t.Errorf("pKsp = %v, want 109", got.PKsp)
	}

	// Full precision is kept internally
	if math.Abs(r.DeltaS-(-2557.055)) > 1e-6 {
		t.Errorf("DeltaS = %v, want -2557.055", r.DeltaS)
	}
	if math.Abs(r.DeltaGDisso-623000) > 1e-6 {
		t.Errorf("DeltaGDisso = %v, want 623000", r.DeltaGDisso)
	}
}

func TestCompute_Electroneutrality(t *testing.T) {
	set := apatiteSet(t)

	r, err := Compute(set.Elements, terms(set, 10), "H+")
	if r != nil {
		t.Errorf("Compute() = %+v, want no result", r)
	}
	if !errors.Is(err, errors.ErrElectroneutrality) {
		t.Fatalf("error = %v, want ELECTRONEUTRALITY", err)
	}
	tErr := err.(*errors.ThermapError)
	if tErr.Details["charge_sum"] != 20.0 {
		t.Errorf("Details[charge_sum] = %v, want 20", tErr.Details["charge_sum"])
	}
}

func TestCompute_ChargeSumIgnoresZeroCoefficients(t *testing.T) {
	set := apatiteSet(t)
	if sum := ChargeSum(terms(set, 10, 6, 2, 0)); sum != 0 {
		t.Errorf("ChargeSum() = %v, want 0", sum)
	}
	if sum := ChargeSum(terms(set, 0, 0, 1, 1)); sum != 0 {
		t.Errorf("ChargeSum(HF) = %v, want 0", sum)
	}
}

func TestCompute_UnknownElement(t *testing.T) {
	set := apatiteSet(t)
	// A catalog swapped out from under the decomposed species
	other, err := catalog.NewElements(catalog.Element{Symbol: "Ca", State: catalog.StateSolid, Entropy: 41.59})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Compute(other, terms(set, 10, 6, 2, 0), "H+")
	if !errors.Is(err, errors.ErrUnknownElement) {
		t.Fatalf("error = %v, want UNKNOWN_ELEMENT", err)
	}
}

func TestCompute_DissociationFlag(t *testing.T) {
	set := apatiteSet(t)

	tests := []struct {
		name     string
		coefs    []float64
		marker   string
		wantKsp  bool
		wantUsed bool
	}{
		{"marker with zero coefficient", []float64{10, 6, 2, 0}, "H+", true, false},
		{"marker with non-zero coefficient", []float64{10, 6, 3, 1}, "H+", false, true},
		{"marker not in collection", []float64{10, 6, 2, 0}, "OH-", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Compute(set.Elements, terms(set, tt.coefs...), tt.marker)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if r.HasKsp != tt.wantKsp {
				t.Errorf("HasKsp = %v, want %v", r.HasKsp, tt.wantKsp)
			}
			if r.MarkerUsed != tt.wantUsed {
				t.Errorf("MarkerUsed = %v, want %v", r.MarkerUsed, tt.wantUsed)
			}
			if !tt.wantKsp && r.Rounded().PKsp != nil {
				t.Error("Rounded().PKsp set without dissociation flag")
			}
		})
	}
}

func TestRounded_HalfEven(t *testing.T) {
	r := &Result{DeltaG: 2500, DeltaH: -3500, DeltaS: 0.5, Entropy: 1.5}
	got := r.Rounded()
	if got.DeltaGf != 2 || got.DeltaHf != -4 || got.DeltaSf != 0 || got.Entropy != 2 {
		t.Errorf("Rounded() = %+v, want {2 -4 0 2}", got)
	}
}

func TestDropKsp(t *testing.T) {
	r := &Result{HasKsp: true, PKsp: 109.2, DeltaGDisso: 623000}
	r.DropKsp()
	if r.HasKsp || r.PKsp != 0 || r.Rounded().PKsp != nil {
		t.Errorf("DropKsp() left %+v", r)
	}
}
