// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/geoseries/core"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the GeoSeries MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, env core.Env) *server.MCPServer {
	s := server.NewMCPServer(
		"GeoSeries Compositing Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		env:     env,
	}

	// --- 1. Tool: list_recipes ---
	s.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List the compositing recipes that can be planned or run."),
	), h.handleListRecipes)

	// --- 2. Tool: list_datasets ---
	s.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List the raster collections available in the configured catalog."),
	), h.handleListDatasets)

	// --- 3. Tool: describe_plan ---
	s.AddTool(mcp.NewTool("describe_plan",
		mcp.WithDescription("Describe the periods, transforms, statistics and exports a recipe would produce, without reading data."),
		mcp.WithString("recipe", mcp.Description("Name of the recipe."), mcp.Required()),
		mcp.WithString("start", mcp.Description("Override the first date (e.g., '2023-07-01').")),
		mcp.WithString("end", mcp.Description("Override the exclusive end date.")),
		mcp.WithString("step", mcp.Description("Override the period step (e.g., '1 day', '14d').")),
		mcp.WithString("bbox", mcp.Description("Region as minx,miny,maxx,maxy in degrees.")),
		mcp.WithString("region_path", mcp.Description("Path to a GeoJSON region file.")),
	), h.handleDescribePlan)

	// --- 4. Tool: run_series ---
	s.AddTool(mcp.NewTool("run_series",
		mcp.WithDescription("Run a recipe against the catalog and return its time series, change summary and export jobs."),
		mcp.WithString("recipe", mcp.Description("Name of the recipe."), mcp.Required()),
		mcp.WithString("start", mcp.Description("Override the first date (e.g., '2023-07-01').")),
		mcp.WithString("end", mcp.Description("Override the exclusive end date.")),
		mcp.WithString("step", mcp.Description("Override the period step (e.g., '1 day', '14d').")),
		mcp.WithString("bbox", mcp.Description("Region as minx,miny,maxx,maxy in degrees.")),
		mcp.WithString("region_path", mcp.Description("Path to a GeoJSON region file.")),
		mcp.WithBoolean("wait", mcp.Description("Wait for exports to finish before returning. Defaults to true.")),
	), h.handleRunSeries)

	return s
}

// StartMCPServer starts the GeoSeries MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, env core.Env) error {
	s := NewMCPServer(baseCfg, env)
	return server.ServeStdio(s)
}
