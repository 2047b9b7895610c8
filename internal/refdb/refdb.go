// Package refdb discovers the numbered reference database sets in a data
// directory and reads their titles.
package refdb

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/errors"
)

// speciesListMarker ends the title block of a species source.
const speciesListMarker = "List of species"

// Descriptor identifies one database set.
type Descriptor struct {
	Index       int    `json:"index"` // 1-based
	Name        string `json:"name"`
	Title       string `json:"title"` // each line terminated by "\n"
	SpeciesPath string `json:"species_path"`
	ElementPath string `json:"element_path"`
}

// TitleLines returns the title split into its lines.
func (d Descriptor) TitleLines() []string {
	return strings.Split(strings.TrimSuffix(d.Title, "\n"), "\n")
}

// Layout describes where the reference sources live.
type Layout struct {
	Dir           string
	ElementFile   string
	SpeciesPrefix string
	Ext           string
}

// LayoutFromConfig builds a Layout from cfg.
func LayoutFromConfig(cfg *config.Config) Layout {
	return Layout{
		Dir:           cfg.DataDir,
		ElementFile:   cfg.ElementFile,
		SpeciesPrefix: cfg.SpeciesPrefix,
		Ext:           cfg.SourceExt,
	}
}

// SpeciesPath returns the path of species source n.
func (l Layout) SpeciesPath(n int) string {
	return filepath.Join(l.Dir, l.SpeciesPrefix+strconv.Itoa(n)+l.Ext)
}

// ElementPath returns the element source paired with database n: a numbered
// element source (ElemDB2.txt) when one exists, otherwise the shared one.
func (l Layout) ElementPath(n int) string {
	base := strings.TrimSuffix(l.ElementFile, filepath.Ext(l.ElementFile))
	numbered := filepath.Join(l.Dir, base+strconv.Itoa(n)+filepath.Ext(l.ElementFile))
	if _, err := os.Stat(numbered); err == nil {
		return numbered
	}
	return filepath.Join(l.Dir, l.ElementFile)
}

// Discover probes species sources 1, 2, ... and stops at the first missing
// index. Every present source must have content.
func Discover(l Layout) ([]Descriptor, error) {
	var out []Descriptor
	for n := 1; ; n++ {
		path := l.SpeciesPath(n)
		fh, err := os.Open(path)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				break
			}
			return nil, errors.NewIO(path, err)
		}
		name, title, err := readHeader(fh, path)
		_ = fh.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, Descriptor{
			Index:       n,
			Name:        name,
			Title:       title,
			SpeciesPath: path,
			ElementPath: l.ElementPath(n),
		})
	}
	if len(out) == 0 {
		return nil, errors.NewNoDatabase(l.Dir)
	}
	return out, nil
}

// Find returns the descriptor with the given 1-based index.
func Find(descs []Descriptor, index int) (Descriptor, error) {
	for _, d := range descs {
		if d.Index == index {
			return d, nil
		}
	}
	return Descriptor{}, errors.NewNotFound("database", strconv.Itoa(index))
}

// readHeader extracts the short name (first line) and the title (following
// comment lines up to a blank line or the species list marker).
func readHeader(r io.Reader, path string) (name, title string, err error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", "", errors.NewIO(path, err)
		}
		return "", "", errors.NewEmptySource(filepath.Base(path))
	}
	name = strings.Trim(sc.Text(), "# ")

	var b strings.Builder
	for sc.Scan() {
		raw := sc.Text()
		line := strings.Trim(raw, "# ")
		if line == "" || strings.HasPrefix(line, speciesListMarker) {
			break
		}
		if !strings.HasPrefix(strings.TrimSpace(raw), "#") {
			break
		}
		fmt.Fprintln(&b, line)
	}
	if err := sc.Err(); err != nil {
		return "", "", errors.NewIO(path, err)
	}
	return name, b.String(), nil
}
