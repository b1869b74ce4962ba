// Package tools routes model tool calls to their implementations and owns
// the tool schemas advertised to the model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/llm"
	"github.com/quietlake/mnemo/internal/logger"
)

// defaultMaxResults is used when the model omits max_results.
const defaultMaxResults = 5

// ToolRouter routes and executes tool calls.
type ToolRouter struct {
	retriever core.MemorySearcher
}

// NewToolRouter creates a new ToolRouter.
func NewToolRouter(retriever core.MemorySearcher) *ToolRouter {
	return &ToolRouter{retriever: retriever}
}

// Specs returns the tool schemas offered to the model on the first call of
// each conversation turn.
func (r *ToolRouter) Specs() []llm.Tool {
	return []llm.Tool{
		{
			Type: "function",
			Function: llm.FunctionSchema{
				Name:        "search_memory",
				Description: "Search the user's personal memory archive for past notes, voice memos, and records relevant to a query.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "What to look for, phrased as the information need rather than the literal question.",
						},
						"max_results": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum number of memories to return. Defaults to 5.",
						},
						"date_filter": map[string]interface{}{
							"type":        "string",
							"description": "Optional temporal constraint: YYYY-MM-DD, YYYY-MM, YYYY, today, yesterday, last_week, last_month, last_year, N_days_ago, or N_months_ago.",
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

// ExecuteToolCall executes a tool call and returns the result serialized for
// the model. Argument problems come back as core.ToolArgumentError so the
// caller can report them to the model instead of aborting the conversation.
func (r *ToolRouter) ExecuteToolCall(ctx context.Context, call *llm.ToolCall) (string, error) {
	logger.ToolDebug("Executing tool '%s'...", call.Function.Name)

	switch call.Function.Name {
	case "search_memory":
		var args struct {
			Query      string `json:"query"`
			MaxResults int    `json:"max_results"`
			DateFilter string `json:"date_filter"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", &core.ToolArgumentError{Tool: call.Function.Name, Reason: fmt.Sprintf("malformed arguments: %v", err)}
		}
		logger.ToolDebug("Parsed search_memory arguments: %+v", args)

		if args.Query == "" {
			return "", &core.ToolArgumentError{Tool: call.Function.Name, Reason: "query is required"}
		}
		if args.MaxResults < 0 {
			return "", &core.ToolArgumentError{Tool: call.Function.Name, Reason: "max_results must not be negative"}
		}
		if args.MaxResults == 0 {
			args.MaxResults = defaultMaxResults
		}

		results, err := r.retriever.Search(ctx, args.Query, args.MaxResults, args.DateFilter)
		if err != nil {
			return "", fmt.Errorf("failed to execute search_memory: %w", err)
		}

		logger.ToolInfo("search_memory %q returned %d results", args.Query, len(results))
		return FormatSearchResults(results), nil

	default:
		logger.ToolWarn("Model requested unknown tool '%s'", call.Function.Name)
		return "", &core.ToolArgumentError{Tool: call.Function.Name, Reason: "unknown tool"}
	}
}
