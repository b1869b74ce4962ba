package tools

import (
	"encoding/json"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/logger"
)

// FormatSearchResults serializes search results as a JSON string for the
// model. An empty result set carries an explicit message so the model states
// that nothing was found instead of inventing memories.
func FormatSearchResults(results []core.SearchResult) string {
	if len(results) == 0 {
		return `{"total_results": 0, "results": [], "message": "No matching memories found. Tell the user you found nothing; do not invent memories."}`
	}

	type memoryResult struct {
		Content  string  `json:"content"`
		Date     string  `json:"date,omitempty"`
		Source   string  `json:"source,omitempty"`
		Distance float32 `json:"distance"`
	}

	output := make([]memoryResult, 0, len(results))
	for _, res := range results {
		output = append(output, memoryResult{
			Content:  res.Content,
			Date:     res.Date,
			Source:   res.Source,
			Distance: res.Distance,
		})
	}

	data, err := json.Marshal(map[string]interface{}{
		"total_results": len(output),
		"results":       output,
	})
	if err != nil {
		logger.ToolError("Failed to marshal search results: %v", err)
		return `{"total_results": 0, "results": [], "message": "Internal error while formatting results."}`
	}
	return string(data)
}
