package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/db"
	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/ops"
)

const testElements = `Ca S 41.59
P  S 41.09
O  G 102.576
F  G 101.3955
H  G 65.34
`

const testApatites = `# Apatites
# Ca phosphate apatites
1 Ca2+ 2 -742.5 23.5 -553.58
2 PO4 -3 -861.5 80.0 -1018.7
3 F- -1 -121.0 27.5 -282.5
3 H+ 1 0 0 0
`

// testSetup creates a temporary data directory, history database and sources.
func testSetup(t *testing.T) (*sqlx.DB, *ops.Sources, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{
		"ElemDB.txt":     testElements,
		"SpeciesDB1.txt": testApatites,
	} {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}

	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	src := &ops.Sources{Config: cfg, ExportsDir: db.ExportsDir(tmpDir)}

	cleanup := func() {
		database.Close()
	}

	return database, src, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func fluorapatiteArgs() map[string]any {
	return map[string]any{
		"database":     1,
		"coefficients": map[string]any{"Ca2+": 10, "PO4": 6, "F-": 2},
	}
}

func TestHandleDatabaseList(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, src)
	result, _ := h.HandleDatabaseList(context.Background(), makeRequest(nil))
	output := parseOutput(t, result)

	items := output["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0].(map[string]any)
	if item["name"] != "Apatites" || item["index"].(float64) != 1 {
		t.Errorf("item = %v", item)
	}
}

func TestHandleDatabaseSpecies(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, src)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		errorCode string
	}{
		{name: "valid", args: map[string]any{"database": 1}},
		{name: "out of range", args: map[string]any{"database": 5}, errorCode: "NOT_FOUND"},
		{name: "wrong type", args: map[string]any{"database": "one"}, errorCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleDatabaseSpecies(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if tt.errorCode != "" {
				if !result.IsError {
					t.Fatal("expected error result")
				}
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			output := parseOutput(t, result)
			if species := output["species"].([]any); len(species) != 4 {
				t.Errorf("species = %d, want 4", len(species))
			}
		})
	}
}

func TestHandleCompute(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, src)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		errorCode string
	}{
		{
			name: "fluorapatite",
			args: fluorapatiteArgs(),
		},
		{
			name: "charge imbalance",
			args: map[string]any{
				"database":     1,
				"coefficients": map[string]any{"Ca2+": 10, "PO4": 6},
			},
			errorCode: "ELECTRONEUTRALITY",
		},
		{
			name: "unknown species",
			args: map[string]any{
				"database":     1,
				"coefficients": map[string]any{"Sr2+": 1},
			},
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "missing coefficients",
			args:      map[string]any{"database": 1},
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "missing database",
			args:      map[string]any{"coefficients": map[string]any{"Ca2+": 1}},
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "non-numeric coefficient",
			args: map[string]any{
				"database":     1,
				"coefficients": map[string]any{"Ca2+": "ten"},
			},
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "database as string",
			args:      map[string]any{"database": "one", "coefficients": map[string]any{"Ca2+": 1}},
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleCompute(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if tt.errorCode != "" {
				if !result.IsError {
					t.Fatal("expected error result")
				}
				assertErrorCode(t, result, tt.errorCode)
				return
			}

			output := parseOutput(t, result)
			if id, _ := output["id"].(string); id == "" {
				t.Error("expected saved calculation id")
			}
			rounded := output["rounded"].(map[string]any)
			if rounded["delta_gf_kj"].(float64) != -12836 {
				t.Errorf("delta_gf_kj = %v, want -12836", rounded["delta_gf_kj"])
			}
			if rounded["pksp"].(float64) != 109 {
				t.Errorf("pksp = %v, want 109", rounded["pksp"])
			}
			if _, ok := output["report"]; ok {
				t.Error("report included without include_report")
			}
		})
	}
}

func TestHandleCompute_NoSaveWithReport(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, src)
	args := fluorapatiteArgs()
	args["no_save"] = true
	args["include_report"] = true

	result, _ := h.HandleCompute(context.Background(), makeRequest(args))
	output := parseOutput(t, result)
	if _, ok := output["id"]; ok {
		t.Error("id present for unsaved calculation")
	}
	if md, _ := output["report"].(string); !strings.Contains(md, "| Estimated ΔGf° | -12836 | kJ/mol |") {
		t.Errorf("report = %q", md)
	}

	listResult, _ := h.HandleList(context.Background(), makeRequest(nil))
	list := parseOutput(t, listResult)
	if n := len(list["items"].([]any)); n != 0 {
		t.Errorf("history has %d items, want 0", n)
	}
}

func TestHandleFetchAndDelete(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, src)
	ctx := context.Background()

	computeResult, _ := h.HandleCompute(ctx, makeRequest(fluorapatiteArgs()))
	id := parseOutput(t, computeResult)["id"].(string)

	fetchResult, _ := h.HandleFetch(ctx, makeRequest(map[string]any{"id": id, "include_report": true}))
	fetched := parseOutput(t, fetchResult)
	if fetched["database_name"] != "Apatites" {
		t.Errorf("database_name = %v", fetched["database_name"])
	}
	coefs := fetched["coefficients"].(map[string]any)
	if coefs["PO4"].(float64) != 6 {
		t.Errorf("coefficients = %v", coefs)
	}
	if md, _ := fetched["report"].(string); !strings.Contains(md, "first approximation") {
		t.Errorf("report missing Ksp note: %q", md)
	}

	listResult, _ := h.HandleList(ctx, makeRequest(map[string]any{"database": "Apatites"}))
	list := parseOutput(t, listResult)
	if n := len(list["items"].([]any)); n != 1 {
		t.Errorf("list items = %d, want 1", n)
	}

	deleteResult, _ := h.HandleDelete(ctx, makeRequest(map[string]any{"id": id}))
	if parseOutput(t, deleteResult)["deleted"] != true {
		t.Error("expected deleted=true")
	}

	again, _ := h.HandleFetch(ctx, makeRequest(map[string]any{"id": id}))
	if !again.IsError {
		t.Fatal("expected error fetching deleted calculation")
	}
	assertErrorCode(t, again, "NOT_FOUND")

	missing, _ := h.HandleDelete(ctx, makeRequest(map[string]any{"id": ""}))
	assertErrorCode(t, missing, "INVALID_REQUEST")
}

func TestHandleDatabaseSnapshot(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, src)
	ctx := context.Background()

	result, _ := h.HandleDatabaseSnapshot(ctx, makeRequest(map[string]any{"database": 1}))
	output := parseOutput(t, result)
	path := output["path"].(string)
	if filepath.Dir(path) != src.ExportsDir {
		t.Errorf("path = %s, want inside %s", path, src.ExportsDir)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}

	bad, _ := h.HandleDatabaseSnapshot(ctx, makeRequest(map[string]any{
		"database": 1,
		"path":     filepath.Join(src.ExportsDir, "out.json"),
	}))
	assertErrorCode(t, bad, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(database, src, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"database_list",
		"database_species",
		"database_snapshot",
		"calc_compute",
		"calc_list",
		"calc_fetch",
		"calc_delete",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	src.Config.DisabledTools = []string{"calc_delete", "database_snapshot", "calc_delete"}
	s := NewServer(database, src, "test")
	tools := s.ListTools()

	if len(tools) != 5 {
		t.Errorf("registered tool count = %d, want 5", len(tools))
	}
	for _, name := range []string{"calc_delete", "database_snapshot"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	database, src, cleanup := testSetup(t)
	defer cleanup()

	src.Config.DisabledTypes = []string{"calc"}
	s := NewServer(database, src, "test")
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	for name := range tools {
		if GetTypeForTool(name) != "database" {
			t.Errorf("tool %q should be disabled with its type", name)
		}
	}
}

func TestValidateDisabled(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"calc_compute", "fake_tool"}); len(unknown) != 1 || unknown[0] != "fake_tool" {
		t.Errorf("ValidateDisabledTools() = %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"database", "mineral"}); len(unknown) != 1 || unknown[0] != "mineral" {
		t.Errorf("ValidateDisabledTypes() = %v", unknown)
	}
	if unknown := ValidateDisabledTools(AllToolNames()); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
	if got := ExpandTypesToTools(nil); got != nil {
		t.Errorf("ExpandTypesToTools(nil) = %v", got)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedError(t *testing.T) {
	r := errorResult(fmt.Errorf("select: %w", errors.NewElectroneutrality(2)))

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != string(errors.ErrElectroneutrality) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrElectroneutrality)
	}
	details := errObj["details"].(map[string]any)
	if details["charge_sum"].(float64) != 2 {
		t.Errorf("details = %v", details)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	assertErrorCode(t, r, "INTERNAL")
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}
