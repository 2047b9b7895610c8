package mcp

import "github.com/mark3labs/mcp-go/mcp"

var databaseListToolDef = mcp.NewTool("database_list",
	mcp.WithDescription("List the reference databases found in the data directory, with their index, short name, description and whether solubility products are reported."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var databaseSpeciesToolDef = mcp.NewTool("database_species",
	mcp.WithDescription("Load one reference database and list its elements and species (charge, enthalpy, entropy, Gibbs energy, element decomposition). Species names are the keys accepted by calc_compute."),
	mcp.WithNumber("database", mcp.Required(), mcp.Description("1-based database index from database_list")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var databaseSnapshotToolDef = mcp.NewTool("database_snapshot",
	mcp.WithDescription("Write the active species catalog of a database, with element decompositions, to a text file."),
	mcp.WithNumber("database", mcp.Required(), mcp.Description("1-based database index")),
	mcp.WithString("path", mcp.Description("Output path ending in .txt or .tsv (default: exports directory)")),
)

var calcComputeToolDef = mcp.NewTool("calc_compute",
	mcp.WithDescription("Estimate ΔGf°, ΔHf°, ΔSf° and S° of a solid from the stoichiometric coefficients of its constituent species, plus pKsp when the database allows it. The composition must be electroneutral. The calculation is saved to history unless no_save is set."),
	mcp.WithNumber("database", mcp.Required(), mcp.Description("1-based database index")),
	mcp.WithObject("coefficients",
		mcp.Required(),
		mcp.Description(`Map of species name to stoichiometric coefficient, e.g. {"Ca2+": 10, "PO4": 6, "F-": 2}`),
		mcp.AdditionalProperties(map[string]any{"type": "number"}),
	),
	mcp.WithBoolean("no_save", mcp.Description("Do not record the calculation in history")),
	mcp.WithBoolean("include_report", mcp.Description("Add a Markdown report to the output")),
)

var calcListToolDef = mcp.NewTool("calc_list",
	mcp.WithDescription("List saved calculations, newest first."),
	mcp.WithString("database", mcp.Description("Filter by database short name")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var calcFetchToolDef = mcp.NewTool("calc_fetch",
	mcp.WithDescription("Fetch one saved calculation with its coefficients and full-precision results."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Calculation ID")),
	mcp.WithBoolean("include_report", mcp.Description("Add a Markdown report to the output")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var calcDeleteToolDef = mcp.NewTool("calc_delete",
	mcp.WithDescription("Permanently delete a saved calculation."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Calculation ID")),
	mcp.WithDestructiveHintAnnotation(true),
)
