package mcp

import (
	"context"
	"fmt"
	"strings"
)

// ===== TOOL SEARCH TOOLS =====

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"Regex pattern or search query matched against tool names, descriptions and keywords"`
	Category string `json:"category,omitempty" jsonschema:"Filter results to a category (classification, tabs, domains, events, notifications, search)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 5)"`
}

type toolSummary struct {
	Name        string   `json:"name" jsonschema:"Tool name"`
	Description string   `json:"description" jsonschema:"What the tool does"`
	Category    string   `json:"category" jsonschema:"Tool category"`
	Keywords    []string `json:"keywords,omitempty" jsonschema:"Search keywords"`
	Score       int      `json:"score,omitempty" jsonschema:"Match score, higher is better"`
	MatchReason string   `json:"match_reason,omitempty" jsonschema:"Why the tool matched"`
}

type toolSearchOutput struct {
	Query      string        `json:"query" jsonschema:"Search query used"`
	Results    []toolSummary `json:"results" jsonschema:"Matching tools"`
	Count      int           `json:"count" jsonschema:"Number of tools found"`
	TotalTools int           `json:"total_tools" jsonschema:"Total number of tools in registry"`
}

type toolListInput struct {
	Category string `json:"category,omitempty" jsonschema:"Filter to a specific category"`
}

type toolListOutput struct {
	Tools []toolSummary `json:"tools" jsonschema:"Registered tools"`
	Count int           `json:"count" jsonschema:"Number of tools returned"`
}

func summarize(tool *ToolMetadata) toolSummary {
	return toolSummary{
		Name:        tool.Name,
		Description: tool.Description,
		Category:    string(tool.Category),
		Keywords:    tool.Keywords,
	}
}

func (s *Server) registerSearchTools() error {
	err := addTool(s, &ToolMetadata{
		Name:        "tool_search",
		Description: "Search for available tools by name, description, or keyword. Use this to find relevant tools without loading every definition.",
		Category:    CategorySearch,
		Keywords:    []string{"discover", "find"},
	}, func(ctx context.Context, args toolSearchInput) (toolSearchOutput, string, error) {
		if args.Query == "" {
			return toolSearchOutput{}, "", fmt.Errorf("query is required: %w", errInvalidInput)
		}
		limit := args.Limit
		if limit <= 0 {
			limit = 5
		}

		var found []*SearchResult
		if args.Category != "" {
			found = s.toolRegistry.SearchByCategory(args.Query, ToolCategory(args.Category))
		} else {
			found = s.toolRegistry.Search(args.Query)
		}
		if len(found) > limit {
			found = found[:limit]
		}

		out := toolSearchOutput{
			Query:      args.Query,
			Results:    make([]toolSummary, 0, len(found)),
			TotalTools: s.toolRegistry.Count(),
		}
		names := make([]string, 0, len(found))
		for _, sr := range found {
			sum := summarize(sr.Tool)
			sum.Score = sr.Score
			sum.MatchReason = sr.MatchReason
			out.Results = append(out.Results, sum)
			names = append(names, sr.Tool.Name)
		}
		out.Count = len(out.Results)

		if out.Count == 0 {
			return out, fmt.Sprintf("No tools found matching: %s", args.Query), nil
		}
		return out, fmt.Sprintf("Found %d tool(s) for query '%s': %s", out.Count, args.Query, strings.Join(names, ", ")), nil
	})
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "tool_list",
		Description: "List all available tools in the registry with their metadata",
		Category:    CategorySearch,
	}, func(ctx context.Context, args toolListInput) (toolListOutput, string, error) {
		var tools []*ToolMetadata
		if args.Category != "" {
			tools = s.toolRegistry.ListByCategory(ToolCategory(args.Category))
		} else {
			tools = s.toolRegistry.List()
		}

		out := toolListOutput{Tools: make([]toolSummary, 0, len(tools))}
		for _, tool := range tools {
			out.Tools = append(out.Tools, summarize(tool))
		}
		out.Count = len(out.Tools)
		return out, fmt.Sprintf("%d tools available", out.Count), nil
	})
}
