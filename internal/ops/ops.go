package ops

import (
	"strconv"
	"strings"

	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/refdb"
	"github.com/hpungsan/thermap/internal/session"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Sources locates the reference databases and says how sessions load them.
type Sources struct {
	Config *config.Config

	// ExportsDir receives session snapshots and snapshot exports.
	ExportsDir string

	// Cache, when set, shares loaded catalogs between sessions.
	Cache *session.Cache
}

// Discover lists the database sets of the configured data directory.
func (s *Sources) Discover() ([]refdb.Descriptor, error) {
	return refdb.Discover(refdb.LayoutFromConfig(s.Config))
}

// Open starts a session on database index.
func (s *Sources) Open(index int) (*session.Session, error) {
	descs, err := s.Discover()
	if err != nil {
		return nil, err
	}
	desc, err := refdb.Find(descs, index)
	if err != nil {
		return nil, err
	}
	sess := session.New(s.Config, s.ExportsDir)
	if s.Cache != nil {
		sess.SetLoader(s.Cache.Load)
	}
	if err := sess.Select(desc); err != nil {
		return nil, err
	}
	return sess, nil
}

// DatabaseItem describes one database set.
type DatabaseItem struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	KspEnabled bool   `json:"ksp_enabled"`
}

func databaseItem(cfg *config.Config, d refdb.Descriptor) DatabaseItem {
	return DatabaseItem{
		Index:      d.Index,
		Name:       d.Name,
		Title:      d.Title,
		KspEnabled: cfg.KspAllowed(d.Name),
	}
}

// CompositionLabel formats the non-zero coefficients in species order,
// e.g. "Ca2+:10 PO4:6 F-:2".
func CompositionLabel(species []catalog.Species, coefs map[string]float64) string {
	parts := make([]string, 0, len(coefs))
	for _, sp := range species {
		if v := coefs[sp.Name]; v != 0 {
			parts = append(parts, sp.Name+":"+strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return strings.Join(parts, " ")
}

// nonZero drops zero coefficients.
func nonZero(coefs map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(coefs))
	for k, v := range coefs {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}
