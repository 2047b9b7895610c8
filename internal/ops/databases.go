package ops

import (
	"sort"

	"github.com/hpungsan/thermap/internal/catalog"
)

// ListDatabasesOutput contains the result of the ListDatabases operation.
type ListDatabasesOutput struct {
	DataDir string         `json:"data_dir"`
	Items   []DatabaseItem `json:"items"`
}

// ListDatabases discovers the database sets in the data directory.
func ListDatabases(src *Sources) (*ListDatabasesOutput, error) {
	descs, err := src.Discover()
	if err != nil {
		return nil, err
	}
	items := make([]DatabaseItem, len(descs))
	for i, d := range descs {
		items[i] = databaseItem(src.Config, d)
	}
	return &ListDatabasesOutput{DataDir: src.Config.DataDir, Items: items}, nil
}

// SpeciesInput contains parameters for the Species operation.
type SpeciesInput struct {
	Database int // 1-based index, required
}

// SpeciesColumn is one display column of the composition form.
type SpeciesColumn struct {
	Column  int               `json:"column"`
	Species []catalog.Species `json:"species"`
}

// SpeciesOutput contains the result of the Species operation.
type SpeciesOutput struct {
	Database DatabaseItem      `json:"database"`
	Elements []catalog.Element `json:"elements"`
	Species  []catalog.Species `json:"species"`
	Columns  []SpeciesColumn   `json:"-"`
	Marker   string            `json:"dissociation_marker"`
}

// Species loads a database and returns its decomposed species.
func Species(src *Sources, input SpeciesInput) (*SpeciesOutput, error) {
	sess, err := src.Open(input.Database)
	if err != nil {
		return nil, err
	}
	desc, _ := sess.Database()
	set := sess.Set()
	return &SpeciesOutput{
		Database: databaseItem(src.Config, desc),
		Elements: set.Elements.All(),
		Species:  set.Species,
		Columns:  groupByColumn(set.Species),
		Marker:   src.Config.DissociationMarker,
	}, nil
}

// groupByColumn groups species by display column, keeping collection order
// within each column.
func groupByColumn(species []catalog.Species) []SpeciesColumn {
	idx := make(map[int]int)
	var cols []SpeciesColumn
	for _, sp := range species {
		i, ok := idx[sp.Column]
		if !ok {
			i = len(cols)
			idx[sp.Column] = i
			cols = append(cols, SpeciesColumn{Column: sp.Column})
		}
		cols[i].Species = append(cols[i].Species, sp)
	}
	sort.SliceStable(cols, func(a, b int) bool { return cols[a].Column < cols[b].Column })
	return cols
}
