package mcp

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/thermap/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"database", "calc"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"database_list": {
		def:     databaseListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDatabaseList },
	},
	"database_species": {
		def:     databaseSpeciesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDatabaseSpecies },
	},
	"database_snapshot": {
		def:     databaseSnapshotToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDatabaseSnapshot },
	},
	"calc_compute": {
		def:     calcComputeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompute },
	},
	"calc_list": {
		def:     calcListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"calc_fetch": {
		def:     calcFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"calc_delete": {
		def:     calcDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "calc_compute" → "calc").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with ThermAP tools registered.
// Tools listed in DisabledTools or belonging to DisabledTypes of the
// sources' config are excluded from registration.
func NewServer(db *sqlx.DB, src *ops.Sources, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"thermap",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, src)
	cfg := src.Config

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sqlx.DB, src *ops.Sources, version string) error {
	s := NewServer(db, src, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
