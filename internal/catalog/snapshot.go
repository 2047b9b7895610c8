package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SnapshotHeader is the first line of a species snapshot table.
const SnapshotHeader = "Name\tcharge\t   g(i)\t   s(i)\t   DG(aq)\tElements"

// WriteSnapshot writes a tab-separated table of the species reference values
// and their decomposed formulas. Energies are written in kJ/mol.
func WriteSnapshot(w io.Writer, species []Species) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, SnapshotHeader); err != nil {
		return err
	}
	for _, sp := range species {
		parts := make([]string, len(sp.Elements))
		for i, ec := range sp.Elements {
			parts[i] = ec.String()
		}
		_, err := fmt.Fprintf(bw, "%-7s\t%+3.0f\t%+7.2f\t%+7.2f\t%+9.2f\t%s\n",
			sp.Name, sp.Charge, sp.G/kiloJoule, sp.S, sp.DGaq/kiloJoule, strings.Join(parts, "; "))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
