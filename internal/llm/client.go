// Package llm holds the chat-completion wire types and an OpenAI-compatible
// HTTP client used for the conversational model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/logger"
)

// Message represents one chat turn in the OpenAI-compatible wire format.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a function call requested by the model.
type ToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function FunctionDetails `json:"function"`
}

// FunctionDetails contains the name and raw JSON arguments of a function call.
type FunctionDetails struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool represents a function tool offered to the model.
type Tool struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// FunctionSchema describes a function tool's name and JSON-schema parameters.
type FunctionSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

// ChatRequest is the request body for the chat completion endpoint.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse carries the assistant message chosen from a completion.
type ChatResponse struct {
	Message Message `json:"message"`
}

// ChatService is the interface the conversation loop depends on. Passing an
// empty tools slice asks the model for a plain text answer.
type ChatService interface {
	ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error)
}

// apiError is the error envelope OpenAI-compatible providers return. Some
// providers return it with a 200 status, so it is checked unconditionally.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// OpenAIService implements ChatService against any OpenAI-compatible chat
// completion endpoint.
type OpenAIService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ ChatService = (*OpenAIService)(nil)

// NewOpenAIService creates a chat client for the given provider base URL.
func NewOpenAIService(baseURL, apiKey, model string) *OpenAIService {
	return &OpenAIService{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // generous, model responses can be slow
		},
	}
}

// ChatCompletion sends the conversation to the model and returns its reply.
// Transport and provider failures are wrapped in core.UpstreamError.
func (s *OpenAIService) ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error) {
	reqBody := ChatRequest{
		Model:    s.model,
		Messages: messages,
		Tools:    tools,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		logger.LLMError("Failed to marshal chat request: %v", err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	logger.LLMInfo("Sending request to model '%s' with %d messages and %d tools.", s.model, len(messages), len(tools))

	url := s.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.LLMError("Failed to create chat HTTP request: %v", err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.LLMError("Failed to send chat request: %v", err)
		return nil, &core.UpstreamError{Service: "chat", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.LLMError("Failed to read chat response body: %v", err)
		return nil, &core.UpstreamError{Service: "chat", Err: err}
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		logger.LLMError("Chat API error: %s (code: %d)", envelope.Error.Message, envelope.Error.Code)
		return nil, &core.UpstreamError{
			Service: "chat",
			Err:     fmt.Errorf("API error: %s (code: %d)", envelope.Error.Message, envelope.Error.Code),
		}
	}

	if resp.StatusCode != http.StatusOK {
		logger.LLMError("Chat API HTTP error (status %d): %s", resp.StatusCode, string(body))
		return nil, &core.UpstreamError{
			Service: "chat",
			Err:     fmt.Errorf("HTTP status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var completion struct {
		Choices []struct {
			FinishReason string  `json:"finish_reason"`
			Message      Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage,omitempty"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		logger.LLMError("Failed to decode chat response: %v", err)
		return nil, &core.UpstreamError{Service: "chat", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(completion.Choices) == 0 {
		logger.LLMError("Chat API returned no choices.")
		return nil, &core.UpstreamError{Service: "chat", Err: fmt.Errorf("API returned no choices")}
	}

	if completion.Usage.TotalTokens > 0 {
		logger.LLMInfo("Model usage - Prompt: %d, Completion: %d, Total: %d tokens. Finish reason: %s",
			completion.Usage.PromptTokens,
			completion.Usage.CompletionTokens,
			completion.Usage.TotalTokens,
			completion.Choices[0].FinishReason,
		)
	} else {
		logger.LLMInfo("Model call completed. Finish reason: %s (usage data unavailable)", completion.Choices[0].FinishReason)
	}

	message := completion.Choices[0].Message
	preview := message.Content
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	logger.LLMDebug("Model reply: %q (tool calls: %d)", preview, len(message.ToolCalls))

	return &ChatResponse{Message: message}, nil
}
