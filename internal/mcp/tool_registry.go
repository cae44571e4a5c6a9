package mcp

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ToolCategory groups tools for discovery.
type ToolCategory string

const (
	CategoryClassification ToolCategory = "classification"
	CategoryTabs           ToolCategory = "tabs"
	CategoryDomains        ToolCategory = "domains"
	CategoryEvents         ToolCategory = "events"
	CategoryNotifications  ToolCategory = "notifications"
	CategorySearch         ToolCategory = "search"
)

// ErrToolRegistered is returned when a tool name is registered twice.
var ErrToolRegistered = errors.New("tool already registered")

// ToolMetadata describes one registered tool. Keywords widen search hits
// beyond the name and description.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`
	Keywords    []string     `json:"keywords,omitempty"`
}

// ToolRegistry indexes the server's tools by name.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolMetadata)}
}

func (r *ToolRegistry) Register(tool *ToolMetadata) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Category == "" {
		return fmt.Errorf("tool %s: category is required", tool.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("%s: %w", tool.Name, ErrToolRegistered)
	}
	r.tools[tool.Name] = tool
	return nil
}

func (r *ToolRegistry) Get(name string) (*ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tool metadata ordered by name.
func (r *ToolRegistry) List() []*ToolMetadata {
	return r.filter(func(*ToolMetadata) bool { return true })
}

// ListByCategory returns all tools in a specific category ordered by name.
func (r *ToolRegistry) ListByCategory(category ToolCategory) []*ToolMetadata {
	return r.filter(func(t *ToolMetadata) bool { return t.Category == category })
}

func (r *ToolRegistry) filter(keep func(*ToolMetadata) bool) []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		if keep(tool) {
			result = append(result, tool)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// SearchResult is one Search hit. Score is 3 for an exact name, 2 for a
// partial name match and 1 for description or keyword matches.
type SearchResult struct {
	Tool        *ToolMetadata `json:"tool"`
	Score       int           `json:"score"`
	MatchReason string        `json:"match_reason"`
}

// Search finds tools matching the query string. Matching is
// case-insensitive against names, descriptions and keywords, and the query
// is also tried as a regular expression.
func (r *ToolRegistry) Search(query string) []*SearchResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	queryLower := strings.ToLower(query)
	var regex *regexp.Regexp
	if re, err := regexp.Compile("(?i)" + query); err == nil {
		regex = re
	}
	matches := func(s string) bool {
		return strings.Contains(strings.ToLower(s), queryLower) || (regex != nil && regex.MatchString(s))
	}

	var results []*SearchResult
	for _, tool := range r.List() {
		switch {
		case strings.ToLower(tool.Name) == queryLower:
			results = append(results, &SearchResult{Tool: tool, Score: 3, MatchReason: "exact name match"})
		case matches(tool.Name):
			results = append(results, &SearchResult{Tool: tool, Score: 2, MatchReason: "name matches query"})
		case matches(tool.Description):
			results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "description matches query"})
		default:
			for _, kw := range tool.Keywords {
				if matches(kw) {
					results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "keyword matches query"})
					break
				}
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// SearchByCategory is Search restricted to one category.
func (r *ToolRegistry) SearchByCategory(query string, category ToolCategory) []*SearchResult {
	filtered := make([]*SearchResult, 0)
	for _, result := range r.Search(query) {
		if result.Tool.Category == category {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
