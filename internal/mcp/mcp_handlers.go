package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/geoseries/core"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	env     core.Env
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonData))
}

// recipeConfig clones the base config and applies the recipe arguments shared
// by describe_plan and run_series.
func (h *toolHandler) recipeConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.RecipeName = request.GetString("recipe", "")
	if cfg.RecipeName == "" {
		return nil, fmt.Errorf("recipe is required")
	}
	if p := request.GetString("region_path", ""); p != "" {
		cfg.RegionPath = p
	}
	err := contract.RevalidateOverrides(cfg,
		request.GetString("start", ""),
		request.GetString("end", ""),
		request.GetString("step", ""),
		request.GetString("bbox", ""),
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *toolHandler) handleListRecipes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.env.Registry.All()), nil
}

func (h *toolHandler) handleListDatasets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := core.GetDatasets(ctx, h.env)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing datasets failed: %v", err)), nil
	}
	return jsonResult(infos), nil
}

func (h *toolHandler) handleDescribePlan(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.recipeConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid plan parameters: %v", err)), nil
	}
	plan, err := core.BuildPlan(cfg, h.env.Registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("planning failed: %v", err)), nil
	}
	return jsonResult(core.Summarize(plan)), nil
}

func (h *toolHandler) handleRunSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.recipeConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run parameters: %v", err)), nil
	}
	cfg.Wait = request.GetBool("wait", true)

	report, err := core.GetSeriesResults(core.WithSuppressHeader(ctx), cfg, h.env)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	return jsonResult(report), nil
}
