// Package session owns the active reference database of one user session:
// the decomposed catalog set and the coefficients entered against it.
package session

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hpungsan/thermap/internal/calc"
	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/refdb"
)

// Loader loads and decomposes the catalog set of a database.
type Loader func(desc refdb.Descriptor) (*catalog.Set, error)

// active is the immutable state installed by Select.
type active struct {
	desc refdb.Descriptor
	set  *catalog.Set
}

// Session holds the selected database and the per-session coefficients.
// The active catalog set is swapped wholesale and never mutated.
type Session struct {
	cfg          *config.Config
	snapshotPath string
	load         Loader

	cur atomic.Pointer[active]

	mu    sync.Mutex
	coefs map[string]float64
}

// New creates a session with no database selected. exportsDir receives the
// species snapshot written on Select; empty disables it.
func New(cfg *config.Config, exportsDir string) *Session {
	s := &Session{
		cfg:   cfg,
		load:  Load,
		coefs: make(map[string]float64),
	}
	if exportsDir != "" && cfg.SnapshotEnabled() {
		s.snapshotPath = filepath.Join(exportsDir, cfg.SnapshotFile)
	}
	return s
}

// SetLoader replaces the catalog loader, e.g. with a Cache.
func (s *Session) SetLoader(l Loader) {
	s.load = l
}

// Load reads the element and species sources of desc and decomposes every
// species. Nothing is returned unless all steps succeed.
func Load(desc refdb.Descriptor) (*catalog.Set, error) {
	elems, err := catalog.LoadElementsFile(desc.ElementPath)
	if err != nil {
		return nil, err
	}
	species, err := catalog.LoadSpeciesFile(desc.SpeciesPath)
	if err != nil {
		return nil, err
	}
	set, err := catalog.Build(elems, species)
	if err != nil {
		return nil, err
	}
	slog.Debug("catalog loaded",
		"db", desc.Name, "elements", elems.Len(), "species", len(set.Species))
	return set, nil
}

// Select loads desc and makes it the active database. Coefficients are
// cleared. On failure the previously active database is discarded.
func (s *Session) Select(desc refdb.Descriptor) error {
	set, err := s.load(desc)
	if err != nil {
		s.cur.Store(nil)
		s.Clear()
		return err
	}
	s.cur.Store(&active{desc: desc, set: set})
	s.Clear()
	slog.Debug("database selected", "db", desc.Name, "index", desc.Index)

	if s.snapshotPath != "" {
		s.writeSnapshot(set)
	}
	return nil
}

// writeSnapshot exports the species table. Failures are logged and never
// reach the caller.
func (s *Session) writeSnapshot(set *catalog.Set) {
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0700); err != nil {
		slog.Warn("snapshot not written", "path", s.snapshotPath, "error", err)
		return
	}
	f, err := os.Create(s.snapshotPath)
	if err != nil {
		slog.Warn("snapshot not written", "path", s.snapshotPath, "error", err)
		return
	}
	defer f.Close()
	if err := catalog.WriteSnapshot(f, set.Species); err != nil {
		slog.Warn("snapshot not written", "path", s.snapshotPath, "error", err)
		return
	}
	slog.Debug("snapshot written", "path", s.snapshotPath)
}

// Database returns the active database descriptor.
func (s *Session) Database() (refdb.Descriptor, bool) {
	a := s.cur.Load()
	if a == nil {
		return refdb.Descriptor{}, false
	}
	return a.desc, true
}

// Set returns the active catalog set, or nil.
func (s *Session) Set() *catalog.Set {
	a := s.cur.Load()
	if a == nil {
		return nil
	}
	return a.set
}

// Species returns the species of the active database in collection order.
func (s *Session) Species() []catalog.Species {
	set := s.Set()
	if set == nil {
		return nil
	}
	return set.Species
}

func (s *Session) requireActive() (*active, error) {
	a := s.cur.Load()
	if a == nil {
		return nil, errors.NewInvalidRequest("no database selected")
	}
	return a, nil
}

// SetCoefficient records the coefficient of the named species.
func (s *Session) SetCoefficient(name string, value float64) error {
	a, err := s.requireActive()
	if err != nil {
		return err
	}
	if a.set.Index(name) < 0 {
		return errors.NewInvalidRequest("unknown species: " + name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coefs[name] = value
	return nil
}

// SetCoefficients records coefficients given as text, as entered in a form.
// Blank or non-numeric values count as 0. No coefficient is recorded when
// any name is unknown.
func (s *Session) SetCoefficients(values map[string]string) error {
	a, err := s.requireActive()
	if err != nil {
		return err
	}
	parsed := make(map[string]float64, len(values))
	for name, raw := range values {
		if a.set.Index(name) < 0 {
			return errors.NewInvalidRequest("unknown species: " + name)
		}
		parsed[name] = ParseCoefficient(raw)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, v := range parsed {
		s.coefs[name] = v
	}
	return nil
}

// ParseCoefficient converts entered text to a coefficient; anything that is
// not a finite number is 0.
func ParseCoefficient(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Coefficients returns a copy of the entered coefficients.
func (s *Session) Coefficients() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.coefs))
	for k, v := range s.coefs {
		out[k] = v
	}
	return out
}

// Clear resets every coefficient to 0.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coefs = make(map[string]float64)
}

// Terms returns the composition in species collection order, with 0 for
// species that have no coefficient.
func (s *Session) Terms() ([]calc.Term, error) {
	a, err := s.requireActive()
	if err != nil {
		return nil, err
	}
	return s.terms(a), nil
}

func (s *Session) terms(a *active) []calc.Term {
	coefs := s.Coefficients()
	terms := make([]calc.Term, len(a.set.Species))
	for i := range a.set.Species {
		sp := &a.set.Species[i]
		terms[i] = calc.Term{Species: sp, Coef: coefs[sp.Name]}
	}
	return terms
}

// Compute runs the calculator over the active database and the entered
// coefficients. pKsp is withheld for databases not listed in ksp_databases.
func (s *Session) Compute() (*calc.Result, error) {
	a, err := s.requireActive()
	if err != nil {
		return nil, err
	}
	r, err := calc.Compute(a.set.Elements, s.terms(a), s.cfg.DissociationMarker)
	if err != nil {
		slog.Debug("compute rejected", "db", a.desc.Name, "error", err)
		return nil, err
	}
	if r.HasKsp && !s.cfg.KspAllowed(a.desc.Name) {
		r.DropKsp()
	}
	slog.Debug("compute done", "db", a.desc.Name, "delta_g", r.DeltaG, "has_ksp", r.HasKsp)
	return r, nil
}
