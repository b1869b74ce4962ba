// Package agent runs the two-phase tool-calling conversation loop: one model
// call that may request the memory search tool, the tool round, and one
// follow-up call that produces the final answer.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/llm"
	"github.com/quietlake/mnemo/internal/logger"
)

// State tracks where a conversation turn is in its lifecycle. It is exposed
// for logging and tests; callers see only the final answer or an error.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateToolRequested
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolRequested:
		return "tool_requested"
	case StateResponded:
		return "responded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// maxHistoryTurns bounds how many past messages are kept per session and sent
// to the model. The system prompt is regenerated each call and not counted.
const maxHistoryTurns = 10

// ToolDispatcher executes the tool calls the model requests and declares the
// schemas offered on the first call of each turn.
type ToolDispatcher interface {
	Specs() []llm.Tool
	ExecuteToolCall(ctx context.Context, call *llm.ToolCall) (string, error)
}

// Orchestrator owns the per-session conversation histories and drives the
// tool-calling loop. Safe for concurrent use across sessions.
type Orchestrator struct {
	chat    llm.ChatService
	tools   ToolDispatcher
	prompts *llm.PromptGenerator
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string][]llm.Message
}

// New creates an Orchestrator.
func New(chat llm.ChatService, tools ToolDispatcher, prompts *llm.PromptGenerator) *Orchestrator {
	return &Orchestrator{
		chat:     chat,
		tools:    tools,
		prompts:  prompts,
		now:      time.Now,
		sessions: make(map[string][]llm.Message),
	}
}

// Converse runs one full user turn for the session and returns the final
// assistant answer. On failure the session history is left exactly as it was
// before the turn; no partial turn is ever committed.
func (o *Orchestrator) Converse(ctx context.Context, sessionID, userText string) (string, error) {
	if userText == "" {
		return "", &core.ConversationError{SessionID: sessionID, Err: fmt.Errorf("empty user message")}
	}

	history := o.snapshot(sessionID)
	state := StateIdle

	// The system prompt carries the current date, so it is rebuilt for every
	// turn rather than stored in the session.
	systemPrompt := o.prompts.GenerateSystemPrompt(o.now())

	pending := append(history, llm.Message{Role: "user", Content: userText})
	messages := make([]llm.Message, 0, len(pending)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, pending...)

	state = StateAwaitingModel
	logger.Debug("Session %s: %s, first model call with %d messages", sessionID, state, len(messages))

	resp, err := o.chat.ChatCompletion(ctx, messages, o.tools.Specs())
	if err != nil {
		return "", &core.ConversationError{SessionID: sessionID, Err: err}
	}

	if len(resp.Message.ToolCalls) > 0 {
		state = StateToolRequested
		logger.Info("Session %s: %s, model requested %d tool call(s)", sessionID, state, len(resp.Message.ToolCalls))

		assistantTurn := llm.Message{
			Role:      "assistant",
			Content:   resp.Message.Content,
			ToolCalls: resp.Message.ToolCalls,
		}
		pending = append(pending, assistantTurn)
		messages = append(messages, assistantTurn)

		for i := range resp.Message.ToolCalls {
			call := &resp.Message.ToolCalls[i]
			result, err := o.tools.ExecuteToolCall(ctx, call)
			if err != nil {
				// The model sees the failure and answers from what it has;
				// the conversation itself survives.
				logger.ToolError("Session %s: tool '%s' failed: %v", sessionID, call.Function.Name, err)
				result = fmt.Sprintf(`{"error": %q}`, err.Error())
			}
			toolTurn := llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			}
			pending = append(pending, toolTurn)
			messages = append(messages, toolTurn)
		}

		state = StateAwaitingModel
		logger.Debug("Session %s: %s, follow-up model call without tools", sessionID, state)

		// The second call offers no tools: one tool round per turn.
		resp, err = o.chat.ChatCompletion(ctx, messages, nil)
		if err != nil {
			return "", &core.ConversationError{SessionID: sessionID, Err: err}
		}
	}

	answer := resp.Message.Content
	if answer == "" {
		return "", &core.ConversationError{SessionID: sessionID, Err: fmt.Errorf("model returned an empty answer")}
	}

	pending = append(pending, llm.Message{Role: "assistant", Content: answer})
	o.commit(sessionID, pending)

	state = StateResponded
	logger.Debug("Session %s: %s", sessionID, state)
	return answer, nil
}

// Reset discards the session's history.
func (o *Orchestrator) Reset(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessions, sessionID)
	logger.Info("Session %s: history cleared", sessionID)
}

// History returns a copy of the session's stored history.
func (o *Orchestrator) History(sessionID string) []llm.Message {
	return o.snapshot(sessionID)
}

func (o *Orchestrator) snapshot(sessionID string) []llm.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	history := o.sessions[sessionID]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out
}

func (o *Orchestrator) commit(sessionID string, turns []llm.Message) {
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[sessionID] = turns
}
