package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/thermap/internal/errors"
)

const (
	elementFieldCount = 3
	speciesFieldCount = 6
	kiloJoule         = 1000.0
)

// eachDataLine calls fn with the 1-based line number and whitespace-separated
// tokens of every line that is neither blank nor a # comment.
func eachDataLine(r io.Reader, source string, fn func(line int, tokens []string) error) error {
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if err := fn(ln, strings.Fields(line)); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.NewIO(source, err)
	}
	return nil
}

// LoadElements parses an element source: `symbol state entropy` per line.
// Nothing is returned on failure.
func LoadElements(r io.Reader, source string) (*Elements, error) {
	elems := &Elements{index: make(map[string]int)}
	err := eachDataLine(r, source, func(ln int, tokens []string) error {
		if len(tokens) != elementFieldCount {
			return errors.NewSchema(source, ln, 0, "",
				fmt.Sprintf("expected %d items, got %d", elementFieldCount, len(tokens)))
		}
		lf := lineFields{tokens: tokens}
		el := Element{
			Symbol:  lf.text(1),
			State:   lf.state(2),
			Entropy: lf.real(3),
		}
		if lf.err != nil {
			return errors.NewSchema(source, ln, lf.err.pos, lf.err.token, lf.err.reason)
		}
		if err := elems.add(el); err != nil {
			return errors.NewSchema(source, ln, 1, el.Symbol, err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return elems, nil
}

// LoadSpecies parses a species source: `column name charge g s dgaq` per line.
// g and dgaq are converted from kJ/mol to J/mol. Source order is preserved.
func LoadSpecies(r io.Reader, source string) ([]Species, error) {
	var list []Species
	seen := make(map[string]bool)
	err := eachDataLine(r, source, func(ln int, tokens []string) error {
		if len(tokens) != speciesFieldCount {
			return errors.NewSchema(source, ln, 0, "",
				fmt.Sprintf("expected %d items, got %d", speciesFieldCount, len(tokens)))
		}
		lf := lineFields{tokens: tokens}
		sp := Species{
			Column: lf.integer(1),
			Name:   lf.text(2),
			Charge: lf.real(3),
			G:      lf.real(4) * kiloJoule,
			S:      lf.real(5),
			DGaq:   lf.real(6) * kiloJoule,
		}
		if lf.err != nil {
			return errors.NewSchema(source, ln, lf.err.pos, lf.err.token, lf.err.reason)
		}
		if seen[sp.Name] {
			return errors.NewSchema(source, ln, 2, sp.Name, "duplicate species")
		}
		seen[sp.Name] = true
		list = append(list, sp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// LoadElementsFile opens path and parses it with LoadElements.
func LoadElementsFile(path string) (*Elements, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO(path, err)
	}
	defer func() { _ = fh.Close() }()
	return LoadElements(fh, filepath.Base(path))
}

// LoadSpeciesFile opens path and parses it with LoadSpecies.
func LoadSpeciesFile(path string) ([]Species, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO(path, err)
	}
	defer func() { _ = fh.Close() }()
	return LoadSpecies(fh, filepath.Base(path))
}
