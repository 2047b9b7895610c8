package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hpungsan/thermap/internal/calc"
	"github.com/hpungsan/thermap/internal/errors"
)

func fluorapatite() *Report {
	return &Report{
		Database:    "Apatites",
		Title:       "Ca, Sr, Ba, Pb phosphate apatites\n",
		Composition: "Ca2+:10 PO4:6 F-:2",
		Result: &calc.Result{
			DeltaG:      -12836000,
			DeltaH:      -13598002.39,
			DeltaS:      -2557.055,
			Entropy:     770,
			HasKsp:      true,
			DeltaGDisso: 623000,
			PKsp:        109.186,
		},
		KspEligible: true,
	}
}

func TestRows(t *testing.T) {
	rows := fluorapatite().Rows()
	want := []int64{-12836, -13598, -2557, 770, 109}
	if len(rows) != len(want) {
		t.Fatalf("Rows() len = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Value != w {
			t.Errorf("rows[%d] (%s) = %d, want %d", i, rows[i].Label, rows[i].Value, w)
		}
	}
}

func TestNotes(t *testing.T) {
	r := fluorapatite()
	if notes := r.Notes(); len(notes) != 1 || notes[0] != KspNote {
		t.Errorf("Notes() with pKsp = %v", notes)
	}

	r.Result = &calc.Result{MarkerUsed: true}
	if notes := r.Notes(); len(notes) != 1 || notes[0] != MSENote {
		t.Errorf("Notes() with marker entered = %v", notes)
	}

	r.KspEligible = false
	if notes := r.Notes(); notes != nil {
		t.Errorf("Notes() for ineligible database = %v", notes)
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, fluorapatite()); err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Database:    Apatites",
		"Composition: Ca2+:10 PO4:6 F-:2",
		"-12836 kJ/mol",
		"-13598 kJ/mol",
		"-2557 J/mol/K",
		"770 J/mol/K",
		"109",
		"first approximation",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text() missing %q in:\n%s", want, out)
		}
	}
}

func TestMarkdownAndHTML(t *testing.T) {
	r := fluorapatite()

	mdText := Markdown(r)
	if !strings.Contains(mdText, "| Estimated ΔGf° | -12836 | kJ/mol |") {
		t.Errorf("Markdown() = %s", mdText)
	}

	html, err := HTML(r)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "-12836</td>") {
		t.Errorf("HTML() missing table cell: %s", html)
	}
	if !strings.Contains(html, "<h2>Apatites</h2>") {
		t.Errorf("HTML() missing heading: %s", html)
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatJSON, fluorapatite()); err != nil {
		t.Fatalf("Render(json) error = %v", err)
	}
	var got struct {
		Database string `json:"database"`
		Rounded  struct {
			DeltaGf int64  `json:"delta_gf_kj"`
			PKsp    *int64 `json:"pksp"`
		} `json:"rounded"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Database != "Apatites" || got.Rounded.DeltaGf != -12836 || got.Rounded.PKsp == nil {
		t.Errorf("Render(json) = %s", buf.String())
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "pdf", fluorapatite())
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Render(pdf) error = %v, want INVALID_REQUEST", err)
	}
}
