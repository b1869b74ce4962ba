package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/quietlake/mnemo/internal/core"
	"github.com/quietlake/mnemo/internal/logger"
)

// ChatRequest is the request body for a conversation turn.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the response body for a conversation turn. SessionID echoes
// the request's session or carries the newly minted one.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// RetrieveRequest is the request body for a direct memory search.
type RetrieveRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
	DateFilter string `json:"date_filter,omitempty"`
}

// ResetRequest is the request body for clearing a session.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// handleChat runs one conversation turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	answer, err := s.agent.Converse(r.Context(), req.SessionID, req.Message)
	if err != nil {
		logger.APIError("Chat turn failed for session %s: %v", req.SessionID, err)

		var convErr *core.ConversationError
		if errors.As(err, &convErr) {
			errorResponse(w, http.StatusBadGateway, "conversation failed: "+convErr.Err.Error())
			return
		}
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(w, ChatResponse{SessionID: req.SessionID, Answer: answer})
}

// handleReset clears a session's conversation history.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		errorResponse(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.agent.Reset(req.SessionID)
	successResponse(w, map[string]string{"status": "cleared", "session_id": req.SessionID})
}

// handleRetrieve searches the memory index directly, bypassing the model.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	results, err := s.retriever.Search(r.Context(), req.Query, req.MaxResults, req.DateFilter)
	if err != nil {
		var filterErr *core.InvalidDateFilterError
		if errors.As(err, &filterErr) {
			errorResponse(w, http.StatusBadRequest, filterErr.Error())
			return
		}
		logger.APIError("Retrieve failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []core.SearchResult{}
	}

	successResponse(w, map[string]interface{}{
		"total_results": len(results),
		"results":       results,
	})
}

// handleCacheStats reports embedding cache statistics.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	successResponse(w, s.stats.Stats())
}
