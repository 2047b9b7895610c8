// Package catalog holds the reference data of a thermodynamic database:
// the element catalog, the species collection, and the elemental
// composition of each species.
package catalog

import (
	"fmt"

	"github.com/hpungsan/thermap/internal/errors"
)

// State is the physical state of an element in its standard state.
type State string

const (
	StateSolid  State = "S"
	StateLiquid State = "L"
	StateGas    State = "G"
)

// String returns the long name of the state.
func (s State) String() string {
	switch s {
	case StateSolid:
		return "solid"
	case StateLiquid:
		return "liquid"
	case StateGas:
		return "gas"
	}
	return string(s)
}

// Element is one entry of the element catalog.
type Element struct {
	// Symbol is the element symbol, unique within a catalog
	Symbol string `json:"symbol"`

	// State is the physical state at 298 K, 1 bar
	State State `json:"state"`

	// Entropy is the standard-state molar entropy at 298 K (J/mol/K)
	Entropy float64 `json:"entropy"`
}

// ElementCount is one (element, stoichiometric count) pair of a species formula.
type ElementCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// String formats the pair as "Sym,n".
func (ec ElementCount) String() string {
	return fmt.Sprintf("%s,%d", ec.Symbol, ec.Count)
}

// Species is a chemical entity with tabulated contribution values.
// G and DGaq are stored in J/mol (sources give kJ/mol).
type Species struct {
	// Name identifies the species and is the formula text decomposed into elements
	Name string `json:"name"`

	// Column is a display grouping hint
	Column int `json:"column"`

	// Charge in elementary-charge units
	Charge float64 `json:"charge"`

	// G is the Gibbs energy contribution (J/mol)
	G float64 `json:"g"`

	// S is the entropy contribution (J/mol/K)
	S float64 `json:"s"`

	// DGaq is the Gibbs energy of the species dissolved in water (J/mol)
	DGaq float64 `json:"dgaq"`

	// Elements is the elemental composition, empty until decomposed
	Elements []ElementCount `json:"elements,omitempty"`
}

// Elements is an ordered element catalog. Order is load order and drives
// formula decomposition.
type Elements struct {
	list  []Element
	index map[string]int
}

// NewElements builds a catalog from elements in the given order.
func NewElements(list ...Element) (*Elements, error) {
	e := &Elements{
		list:  make([]Element, 0, len(list)),
		index: make(map[string]int, len(list)),
	}
	for _, el := range list {
		if err := e.add(el); err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
	}
	return e, nil
}

func (e *Elements) add(el Element) error {
	if _, dup := e.index[el.Symbol]; dup {
		return fmt.Errorf("duplicate element %s", el.Symbol)
	}
	e.index[el.Symbol] = len(e.list)
	e.list = append(e.list, el)
	return nil
}

// Lookup returns the element with the given symbol.
func (e *Elements) Lookup(symbol string) (Element, bool) {
	if e == nil {
		return Element{}, false
	}
	i, ok := e.index[symbol]
	if !ok {
		return Element{}, false
	}
	return e.list[i], true
}

// Len returns the number of elements.
func (e *Elements) Len() int {
	if e == nil {
		return 0
	}
	return len(e.list)
}

// All returns a copy of the elements in catalog order.
func (e *Elements) All() []Element {
	if e == nil {
		return nil
	}
	out := make([]Element, len(e.list))
	copy(out, e.list)
	return out
}

// Set is the immutable pair of catalogs for one selected database, with
// every species already decomposed.
type Set struct {
	Elements *Elements
	Species  []Species
}

// Index returns the position of the named species, or -1.
func (s *Set) Index(name string) int {
	for i := range s.Species {
		if s.Species[i].Name == name {
			return i
		}
	}
	return -1
}
