package core

import "fmt"

// UpstreamError wraps a failure from an external service (embedding or chat
// completion). Retrying is the caller's choice, never automatic here.
type UpstreamError struct {
	Service string // "embedding" or "chat"
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IndexLoadError reports an inconsistent or unreadable persisted index. It is
// fatal at startup: the process must not serve queries over a broken index.
type IndexLoadError struct {
	Reason string
	Err    error
}

func (e *IndexLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index load: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("index load: %s", e.Reason)
}

func (e *IndexLoadError) Unwrap() error { return e.Err }

// InvalidDateFilterError reports a date filter expression that carries a
// recognizable prefix but malformed content (e.g. "x_months_ago").
// Expressions that are merely unrecognized degrade to "no filter" instead.
type InvalidDateFilterError struct {
	Expression string
	Reason     string
}

func (e *InvalidDateFilterError) Error() string {
	return fmt.Sprintf("invalid date filter %q: %s", e.Expression, e.Reason)
}

// ToolArgumentError reports malformed tool-call arguments from the model.
// The orchestrator surfaces it as a tool-result error turn so the model can
// self-correct; it never hard-fails the conversation.
type ToolArgumentError struct {
	Tool   string
	Reason string
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Reason)
}

// ConversationError wraps an upstream failure during the two-phase exchange.
// The session it belongs to is left in its prior, consistent state.
type ConversationError struct {
	SessionID string
	Err       error
}

func (e *ConversationError) Error() string {
	return fmt.Sprintf("conversation %s: %v", e.SessionID, e.Err)
}

func (e *ConversationError) Unwrap() error { return e.Err }
