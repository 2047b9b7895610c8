package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/ops"
	"github.com/hpungsan/thermap/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sqlx.DB
	src *ops.Sources
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sqlx.DB, src *ops.Sources) *Handlers {
	return &Handlers{db: db, src: src}
}

// Request types for each tool

// DatabaseRequest represents the arguments for database_species.
type DatabaseRequest struct {
	Database int `json:"database"`
}

// SnapshotRequest represents the arguments for database_snapshot.
type SnapshotRequest struct {
	Database int    `json:"database"`
	Path     string `json:"path,omitempty"`
}

// ComputeRequest represents the arguments for calc_compute.
type ComputeRequest struct {
	Database      int                `json:"database"`
	Coefficients  map[string]float64 `json:"coefficients"`
	NoSave        bool               `json:"no_save,omitempty"`
	IncludeReport bool               `json:"include_report,omitempty"`
}

// ListRequest represents the arguments for calc_list.
type ListRequest struct {
	Database string `json:"database,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for calc_fetch.
type FetchRequest struct {
	ID            string `json:"id"`
	IncludeReport bool   `json:"include_report,omitempty"`
}

// DeleteRequest represents the arguments for calc_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// Handler implementations

// HandleDatabaseList handles the database_list tool call.
func (h *Handlers) HandleDatabaseList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListDatabases(h.src)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDatabaseSpecies handles the database_species tool call.
func (h *Handlers) HandleDatabaseSpecies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DatabaseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Species(h.src, ops.SpeciesInput{Database: input.Database})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDatabaseSnapshot handles the database_snapshot tool call.
func (h *Handlers) HandleDatabaseSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SnapshotRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Snapshot(ctx, h.src, ops.SnapshotInput{
		Database: input.Database,
		Path:     input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// computeResponse adds the optional Markdown report to a compute result.
type computeResponse struct {
	*ops.ComputeOutput
	Markdown string `json:"report,omitempty"`
}

// HandleCompute handles the calc_compute tool call.
func (h *Handlers) HandleCompute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ComputeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Compute(ctx, h.db, h.src, ops.ComputeInput{
		Database:     input.Database,
		Coefficients: input.Coefficients,
		NoSave:       input.NoSave,
	})
	if err != nil {
		return errorResult(err), nil
	}

	resp := computeResponse{ComputeOutput: result}
	if input.IncludeReport {
		resp.Markdown = report.Markdown(result.Report)
	}
	return successResult(resp)
}

// HandleList handles the calc_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		Database: input.Database,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// fetchResponse adds the optional Markdown report to a fetch result.
type fetchResponse struct {
	*ops.FetchOutput
	Markdown string `json:"report,omitempty"`
}

// HandleFetch handles the calc_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Fetch(h.db, h.src.Config, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	resp := fetchResponse{FetchOutput: result}
	if input.IncludeReport {
		resp.Markdown = report.Markdown(result.Report)
	}
	return successResult(resp)
}

// HandleDelete handles the calc_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tErr *errors.ThermapError
	if stderrors.As(err, &tErr) {
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": tErr.Message,
			"status":  tErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if tErr.Code != errors.ErrInternal && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
