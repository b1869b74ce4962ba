package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/llm"
)

type fakeSearcher struct {
	results []core.SearchResult
	err     error

	gotQuery      string
	gotMaxResults int
	gotDateFilter string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int, dateFilter string) ([]core.SearchResult, error) {
	f.gotQuery = query
	f.gotMaxResults = maxResults
	f.gotDateFilter = dateFilter
	return f.results, f.err
}

func searchCall(args string) *llm.ToolCall {
	return &llm.ToolCall{
		ID:   "call_1",
		Type: "function",
		Function: llm.FunctionDetails{
			Name:      "search_memory",
			Arguments: args,
		},
	}
}

func TestExecuteToolCallPassesArguments(t *testing.T) {
	searcher := &fakeSearcher{
		results: []core.SearchResult{
			{ChunkID: "a", Date: "2024-06-01", Content: "bought seeds", Distance: 0.3},
		},
	}
	router := NewToolRouter(searcher)

	out, err := router.ExecuteToolCall(context.Background(),
		searchCall(`{"query":"garden","max_results":3,"date_filter":"2024-06"}`))
	require.NoError(t, err)

	assert.Equal(t, "garden", searcher.gotQuery)
	assert.Equal(t, 3, searcher.gotMaxResults)
	assert.Equal(t, "2024-06", searcher.gotDateFilter)

	var parsed struct {
		TotalResults int `json:"total_results"`
		Results      []struct {
			Content string `json:"content"`
			Date    string `json:"date"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, 1, parsed.TotalResults)
	require.Len(t, parsed.Results, 1)
	assert.Equal(t, "bought seeds", parsed.Results[0].Content)
}

func TestExecuteToolCallDefaultsMaxResults(t *testing.T) {
	searcher := &fakeSearcher{}
	router := NewToolRouter(searcher)

	_, err := router.ExecuteToolCall(context.Background(), searchCall(`{"query":"garden"}`))
	require.NoError(t, err)
	assert.Equal(t, defaultMaxResults, searcher.gotMaxResults)
	assert.Equal(t, "", searcher.gotDateFilter)
}

func TestExecuteToolCallRejectsBadArguments(t *testing.T) {
	router := NewToolRouter(&fakeSearcher{})

	tests := []struct {
		name string
		args string
	}{
		{"missing query", `{"max_results":3}`},
		{"empty query", `{"query":""}`},
		{"negative max_results", `{"query":"x","max_results":-1}`},
		{"malformed json", `{"query":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := router.ExecuteToolCall(context.Background(), searchCall(tc.args))
			require.Error(t, err)

			var argErr *core.ToolArgumentError
			assert.True(t, errors.As(err, &argErr))
		})
	}
}

func TestExecuteToolCallUnknownTool(t *testing.T) {
	router := NewToolRouter(&fakeSearcher{})

	call := &llm.ToolCall{
		ID:       "call_1",
		Type:     "function",
		Function: llm.FunctionDetails{Name: "launch_rocket", Arguments: `{}`},
	}
	_, err := router.ExecuteToolCall(context.Background(), call)
	require.Error(t, err)

	var argErr *core.ToolArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "launch_rocket", argErr.Tool)
}

func TestExecuteToolCallPropagatesSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("index unavailable")}
	router := NewToolRouter(searcher)

	_, err := router.ExecuteToolCall(context.Background(), searchCall(`{"query":"garden"}`))
	assert.Error(t, err)
}

func TestFormatSearchResultsEmpty(t *testing.T) {
	out := FormatSearchResults(nil)

	var parsed struct {
		TotalResults int    `json:"total_results"`
		Message      string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, 0, parsed.TotalResults)
	assert.NotEmpty(t, parsed.Message)
}

func TestSpecsDeclareSearchMemory(t *testing.T) {
	router := NewToolRouter(&fakeSearcher{})

	specs := router.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "function", specs[0].Type)
	assert.Equal(t, "search_memory", specs[0].Function.Name)
}
