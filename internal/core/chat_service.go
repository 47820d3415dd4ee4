package core

import (
	"context"
	"errors"
	"fmt"

	"askdb.dev/askdb/internal/config"
	"askdb.dev/askdb/internal/llm"
	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/store"
)

// HistoryStore persists sessions and their question/answer pairs.
type HistoryStore interface {
	CreateSession(ctx context.Context) (*store.Session, error)
	GetSession(ctx context.Context, id int64) (*store.Session, error)
	CreateHistory(ctx context.Context, sessionID int64, question, answer string) (*store.History, error)
	GetHistoryBySession(ctx context.Context, sessionID int64) ([]store.History, error)
	GetLastHistoriesBySession(ctx context.Context, sessionID int64, n int) ([]store.History, error)
	PruneHistory(ctx context.Context, maxRows int) (int64, error)
	PruneSessions(ctx context.Context, maxSessions int) (int64, error)
}

// Asker runs one question through the pipeline.
type Asker interface {
	Ask(ctx context.Context, question string, history []llm.Message) (*Outcome, error)
}

// AskResult is an Outcome bound to the session it was recorded in.
type AskResult struct {
	*Outcome
	SessionID int64 `json:"session_id"`
	HistoryID int64 `json:"history_id"`
}

type ChatService struct {
	dbStore  HistoryStore
	pipeline Asker
	limits   config.HistoryConfig
	logger   *logger.Logger
}

func NewChatService(db HistoryStore, pipeline Asker, limits config.HistoryConfig, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		dbStore:  db,
		pipeline: pipeline,
		limits:   limits,
		logger:   log,
	}
}

// Ask prunes old data, resolves the session, threads its last pairs into the
// pipeline and records the answer. Nothing is recorded when the pipeline fails.
func (s *ChatService) Ask(ctx context.Context, question string, sessionID *int64) (*AskResult, error) {
	s.prune(ctx)

	session, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	histories, err := s.dbStore.GetLastHistoriesBySession(ctx, session.ID, s.limits.KeepLastPairs)
	if err != nil {
		s.logger.Warn("loading session history failed, continuing without it", "session_id", session.ID, "error", err)
		histories = nil
	}

	outcome, err := s.pipeline.Ask(ctx, question, historyTurns(histories))
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}

	record, err := s.dbStore.CreateHistory(ctx, session.ID, question, outcome.Answer)
	if err != nil {
		return nil, fmt.Errorf("failed to store history: %w", err)
	}
	return &AskResult{Outcome: outcome, SessionID: session.ID, HistoryID: record.ID}, nil
}

// SessionHistory returns every stored pair of a session.
func (s *ChatService) SessionHistory(ctx context.Context, sessionID int64) ([]store.History, error) {
	if _, err := s.dbStore.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.dbStore.GetHistoryBySession(ctx, sessionID)
}

// resolveSession reuses a known session and creates one otherwise.
func (s *ChatService) resolveSession(ctx context.Context, sessionID *int64) (*store.Session, error) {
	if sessionID != nil && *sessionID > 0 {
		session, err := s.dbStore.GetSession(ctx, *sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, store.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		s.logger.Info("unknown session, starting a new one", "session_id", *sessionID)
	}

	session, err := s.dbStore.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// prune runs before session resolution so the session about to be used is
// never the one removed. Failures only get logged.
func (s *ChatService) prune(ctx context.Context) {
	if n, err := s.dbStore.PruneSessions(ctx, s.limits.MaxSessions); err != nil {
		s.logger.Warn("pruning sessions failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("pruned sessions", "count", n)
	}
	if n, err := s.dbStore.PruneHistory(ctx, s.limits.MaxHistoryRows); err != nil {
		s.logger.Warn("pruning history failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("pruned history rows", "count", n)
	}
}
