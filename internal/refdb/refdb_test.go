package refdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/errors"
)

func testLayout(dir string) Layout {
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	return LayoutFromConfig(cfg)
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	_, err := Discover(testLayout(t.TempDir()))
	if !errors.Is(err, errors.ErrNoDatabase) {
		t.Fatalf("Discover() error = %v, want NO_DATABASE", err)
	}
	if !strings.Contains(err.Error(), "no databases found") {
		t.Errorf("error = %q, want 'no databases found'", err.Error())
	}
}

func TestDiscover_StopsAtGap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SpeciesDB1.txt", "# Apatites\n# Phosphate apatites\n")
	writeFile(t, dir, "SpeciesDB2.txt", "# Oxides\n")
	writeFile(t, dir, "SpeciesDB3.txt", "# Silicates\n")
	writeFile(t, dir, "SpeciesDB5.txt", "# Unreachable\n")

	descs, err := Discover(testLayout(dir))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("len = %d, want 3", len(descs))
	}
	wantNames := []string{"Apatites", "Oxides", "Silicates"}
	for i, d := range descs {
		if d.Index != i+1 {
			t.Errorf("descs[%d].Index = %d, want %d", i, d.Index, i+1)
		}
		if d.Name != wantNames[i] {
			t.Errorf("descs[%d].Name = %q, want %q", i, d.Name, wantNames[i])
		}
	}
}

func TestDiscover_Title(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SpeciesDB1.txt", `# Apatites #
#  Ca, Sr, Ba, Pb phosphate apatites
# Drouet (2015)
# List of species
1 Ca2+ 2 -742.5 23.5 -553.58
`)

	descs, err := Discover(testLayout(dir))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	d := descs[0]
	if d.Name != "Apatites" {
		t.Errorf("Name = %q, want %q", d.Name, "Apatites")
	}
	want := "Ca, Sr, Ba, Pb phosphate apatites\nDrouet (2015)\n"
	if d.Title != want {
		t.Errorf("Title = %q, want %q", d.Title, want)
	}
	if lines := d.TitleLines(); len(lines) != 2 {
		t.Errorf("TitleLines() = %v, want 2 lines", lines)
	}
}

func TestDiscover_TitleStopsAtBlankAndData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SpeciesDB1.txt", "# A\n# first\n\n# not title\n")
	writeFile(t, dir, "SpeciesDB2.txt", "# B\n# only\n1 Ca2+ 2 0 0 0\n# after data\n")

	descs, err := Discover(testLayout(dir))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if descs[0].Title != "first\n" {
		t.Errorf("descs[0].Title = %q", descs[0].Title)
	}
	if descs[1].Title != "only\n" {
		t.Errorf("descs[1].Title = %q", descs[1].Title)
	}
}

func TestDiscover_EmptySource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SpeciesDB1.txt", "# Apatites\n")
	writeFile(t, dir, "SpeciesDB2.txt", "")

	_, err := Discover(testLayout(dir))
	if !errors.Is(err, errors.ErrEmptySource) {
		t.Fatalf("Discover() error = %v, want EMPTY_SOURCE", err)
	}
	if !strings.Contains(err.Error(), "SpeciesDB2.txt") {
		t.Errorf("error = %q, want file name", err.Error())
	}
}

func TestElementPath(t *testing.T) {
	dir := t.TempDir()
	l := testLayout(dir)
	writeFile(t, dir, "ElemDB2.txt", "Ca S 41.59\n")

	if got := l.ElementPath(1); got != filepath.Join(dir, "ElemDB.txt") {
		t.Errorf("ElementPath(1) = %q, want shared file", got)
	}
	if got := l.ElementPath(2); got != filepath.Join(dir, "ElemDB2.txt") {
		t.Errorf("ElementPath(2) = %q, want numbered file", got)
	}
}

func TestFind(t *testing.T) {
	descs := []Descriptor{{Index: 1, Name: "A"}, {Index: 2, Name: "B"}}

	d, err := Find(descs, 2)
	if err != nil || d.Name != "B" {
		t.Errorf("Find(2) = %+v, %v", d, err)
	}
	if _, err := Find(descs, 3); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Find(3) error = %v, want NOT_FOUND", err)
	}
}
