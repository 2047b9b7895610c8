// Package report renders estimated formation properties as text, Markdown,
// HTML or JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/thermap/internal/calc"
	"github.com/hpungsan/thermap/internal/errors"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// KspNote explains the dissolution equation behind a pKsp estimate.
const KspNote = "*Considering equation of the type: " +
	"M10(PO4)6X2 → 10 M2+(aq) + 6 PO4 3-(aq) + 2 X-(aq). " +
	"These Ksp estimates should be considered only as first approximation " +
	"taking into account propagated uncertainties."

// MSENote explains why no pKsp is given for a non-stoichiometric composition.
const MSENote = "In the case of non-stoichiometric samples, the existence of a " +
	"metastable equilibrium solubility (MSE) behavior has been evidenced at least " +
	"in some cases, leading to a non-fixed value of the solubility product. " +
	"Therefore, in such cases, Ksp was not calculated."

// Report is one computed composition ready for display.
type Report struct {
	Database    string
	Title       string
	Composition string
	Result      *calc.Result

	// KspEligible is set when the database reports solubility products at all.
	KspEligible bool
}

// Row is one displayed property.
type Row struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

// Rows returns the displayed properties in order, with pKsp last when present.
func (r *Report) Rows() []Row {
	v := r.Result.Rounded()
	rows := []Row{
		{"ΔGf°", v.DeltaGf, "kJ/mol"},
		{"ΔHf°", v.DeltaHf, "kJ/mol"},
		{"ΔSf°", v.DeltaSf, "J/mol/K"},
		{"S°", v.Entropy, "J/mol/K"},
	}
	if v.PKsp != nil {
		rows = append(rows, Row{"pKsp*", *v.PKsp, ""})
	}
	return rows
}

// Notes returns the explanatory notes that accompany the rows.
func (r *Report) Notes() []string {
	switch {
	case r.Result.HasKsp:
		return []string{KspNote}
	case r.KspEligible && r.Result.MarkerUsed:
		return []string{MSENote}
	}
	return nil
}

// Text writes an aligned plain-text table.
func Text(w io.Writer, r *Report) error {
	var b strings.Builder
	if r.Database != "" {
		fmt.Fprintf(&b, "Database:    %s\n", r.Database)
	}
	if r.Composition != "" {
		fmt.Fprintf(&b, "Composition: %s\n", r.Composition)
	}
	b.WriteString("\n")
	for _, row := range r.Rows() {
		fmt.Fprintf(&b, "Estimated %-6s %8d %s\n", row.Label+":", row.Value, row.Unit)
	}
	for _, note := range r.Notes() {
		fmt.Fprintf(&b, "\n%s\n", note)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown returns the report as a Markdown document.
func Markdown(r *Report) string {
	var b strings.Builder
	if r.Database != "" {
		fmt.Fprintf(&b, "## %s\n\n", r.Database)
	}
	if r.Title != "" {
		for _, line := range strings.Split(strings.TrimSuffix(r.Title, "\n"), "\n") {
			fmt.Fprintf(&b, "%s  \n", line)
		}
		b.WriteString("\n")
	}
	if r.Composition != "" {
		fmt.Fprintf(&b, "Composition: `%s`\n\n", r.Composition)
	}
	b.WriteString("| Property | Value | Unit |\n|---|---:|---|\n")
	for _, row := range r.Rows() {
		fmt.Fprintf(&b, "| Estimated %s | %d | %s |\n", escapeCell(row.Label), row.Value, row.Unit)
	}
	for _, note := range r.Notes() {
		fmt.Fprintf(&b, "\n%s\n", escapeMarkdown(note))
	}
	return b.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the Markdown form to an HTML fragment.
func HTML(r *Report) (string, error) {
	return MarkdownToHTML(Markdown(r))
}

// MarkdownToHTML converts Markdown text with table support.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", errors.NewInternal(err)
	}
	return buf.String(), nil
}

// jsonReport is the JSON shape of a report.
type jsonReport struct {
	Database    string       `json:"database,omitempty"`
	Composition string       `json:"composition,omitempty"`
	Result      *calc.Result `json:"result"`
	Rounded     calc.Rounded `json:"rounded"`
	Notes       []string     `json:"notes,omitempty"`
}

// Render writes r in the named format.
func Render(w io.Writer, format string, r *Report) error {
	switch format {
	case FormatText, "":
		return Text(w, r)
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatHTML:
		html, err := HTML(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonReport{
			Database:    r.Database,
			Composition: r.Composition,
			Result:      r.Result,
			Rounded:     r.Result.Rounded(),
			Notes:       r.Notes(),
		})
	}
	return errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want text, markdown, html or json)", format))
}

// escapeCell keeps table cells from breaking the row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// escapeMarkdown escapes characters that would start emphasis.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`).Replace(s)
}
