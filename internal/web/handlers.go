package web

import (
	stderrors "errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/ops"
	"github.com/hpungsan/thermap/internal/report"
)

// coefFieldPrefix prefixes composition form fields; the rest is the species name.
const coefFieldPrefix = "coef:"

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sqlx.DB
	src      *ops.Sources
	renderer *Renderer
	metrics  *Metrics
}

// HandleDatabases handles GET /databases: list the discovered reference databases.
func (h *Handlers) HandleDatabases(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListDatabases(h.src)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "databases", DatabasesPageData{
		PageData: h.renderer.page("Databases", "databases"),
		DataDir:  result.DataDir,
		Items:    result.Items,
	})
}

// HandleCompose handles GET /databases/{n}: the composition entry form.
func (h *Handlers) HandleCompose(w http.ResponseWriter, r *http.Request) {
	n, err := pathIndex(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	species, err := ops.Species(h.src, ops.SpeciesInput{Database: n})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, species)
		return
	}

	h.renderer.renderPage(w, r, "compose", h.composeData(species, nil, ""))
}

// HandleCompute handles POST /databases/{n}/compute: estimate properties of
// the submitted composition. A rejected composition re-renders the form with
// the entered values and the error.
func (h *Handlers) HandleCompute(w http.ResponseWriter, r *http.Request) {
	n, err := pathIndex(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	entries := formEntries(r)
	out, err := ops.Compute(r.Context(), h.db, h.src, ops.ComputeInput{
		Database: n,
		Entries:  entries,
		NoSave:   r.FormValue("no_save") == "on" || r.FormValue("no_save") == "true",
	})
	h.metrics.observeCompute(err)
	if err != nil {
		h.computeFailed(w, r, n, entries, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	html, err := report.HTML(out.Report)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, r, "result", ResultPageData{
		PageData:    h.renderer.page(out.Database.Name, "databases"),
		ID:          out.ID,
		Database:    out.Database.Name,
		DatabaseIdx: out.Database.Index,
		Composition: out.Composition,
		ReportHTML:  template.HTML(html),
		Saved:       out.ID != "",
	})
}

// computeFailed answers a rejected computation. Form posts get the compose
// page back; htmx and JSON clients get the regular error response.
func (h *Handlers) computeFailed(w http.ResponseWriter, r *http.Request, n int, entries map[string]string, err error) {
	if wantsJSON(r) || r.Header.Get("HX-Request") == "true" {
		h.renderer.renderError(w, r, err)
		return
	}
	var tErr *errors.ThermapError
	if !stderrors.As(err, &tErr) || errors.IsFatal(err) || tErr.Code == errors.ErrInternal {
		h.renderer.renderError(w, r, err)
		return
	}
	species, sErr := ops.Species(h.src, ops.SpeciesInput{Database: n})
	if sErr != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPageStatus(w, r, tErr.Status, "compose", h.composeData(species, entries, tErr.Message))
}

func (h *Handlers) composeData(species *ops.SpeciesOutput, values map[string]string, msg string) ComposePageData {
	return ComposePageData{
		PageData:  h.renderer.page(species.Database.Name, "databases"),
		Species:   species,
		TitleHTML: renderMarkdown(titleMarkdown(species.Database.Title)),
		Values:    values,
		Error:     msg,
	}
}

// HandleCalculations handles GET /calculations: saved calculations, newest first.
func (h *Handlers) HandleCalculations(w http.ResponseWriter, r *http.Request) {
	database := r.URL.Query().Get("database")
	result, err := ops.History(h.db, ops.HistoryInput{
		Database: database,
		Limit:    parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "calculations", CalculationsPageData{
		PageData:   h.renderer.page("Calculations", "calculations"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Database:   database,
	})
}

// HandleDetail handles GET /calculations/{id}: view one saved calculation.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("calculation ID is required"))
		return
	}

	calc, err := ops.Fetch(h.db, h.src.Config, ops.FetchInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, calc)
		return
	}

	html, err := report.HTML(calc.Report)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, r, "result", ResultPageData{
		PageData:    h.renderer.page(calc.DatabaseName, "calculations"),
		ID:          calc.ID,
		Database:    calc.DatabaseName,
		DatabaseIdx: calc.DatabaseIndex,
		Composition: calc.Composition,
		ReportHTML:  template.HTML(html),
		CreatedAt:   calc.CreatedAt,
		Saved:       true,
	})
}

// HandleDelete handles DELETE /calculations/{id}: remove a saved calculation.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("calculation ID is required"))
		return
	}

	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/calculations")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/calculations", http.StatusFound)
}

// pathIndex parses the {n} database index path segment.
func pathIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n <= 0 {
		return 0, errors.NewInvalidRequest("database index must be a positive integer")
	}
	return n, nil
}

// formEntries collects the non-blank coefficient fields of a composition form.
func formEntries(r *http.Request) map[string]string {
	entries := make(map[string]string)
	for key, values := range r.PostForm {
		name, ok := strings.CutPrefix(key, coefFieldPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		if v := strings.TrimSpace(values[0]); v != "" {
			entries[name] = v
		}
	}
	return entries
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
