package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"askdb.dev/askdb/internal/core"
	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/store"
)

const genericFailure = "We could not process your request right now."

// ChatService is the part of core.ChatService the handlers use.
type ChatService interface {
	Ask(ctx context.Context, question string, sessionID *int64) (*core.AskResult, error)
	SessionHistory(ctx context.Context, sessionID int64) ([]store.History, error)
}

// SchemaCache is invalidated by POST /schema/refresh.
type SchemaCache interface {
	Invalidate()
}

type APIHandler struct {
	chatService ChatService
	schemaCache SchemaCache
	logger      *logger.Logger
}

func NewAPIHandler(cs ChatService, cache SchemaCache, log *logger.Logger) *APIHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &APIHandler{chatService: cs, schemaCache: cache, logger: log}
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID *int64 `json:"session_id"`
}

type AskResponse struct {
	*core.AskResult
	RequestID string `json:"request_id"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	result, err := h.chatService.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		h.logger.Error("ask failed", "request_id", requestID, "subject", Subject(r.Context()), "error", err)
		http.Error(w, genericFailure, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{AskResult: result, RequestID: requestID})
}

func (h *APIHandler) SessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	histories, err := h.chatService.SessionHistory(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("loading session history failed", "session_id", sessionID, "error", err)
		http.Error(w, genericFailure, http.StatusInternalServerError)
		return
	}
	if histories == nil {
		histories = []store.History{}
	}
	writeJSON(w, http.StatusOK, histories)
}

func (h *APIHandler) SchemaRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if h.schemaCache != nil {
		h.schemaCache.Invalidate()
	}
	h.logger.Info("schema cache invalidated", "subject", Subject(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
