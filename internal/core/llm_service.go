package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"askdb.dev/askdb/internal/extdb"
	"askdb.dev/askdb/internal/llm"
	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/metrics"
	"askdb.dev/askdb/internal/prompt"
)

// LLMService issues the two kinds of completion the pipeline needs. Provider
// failures are returned as they are; retry policy belongs to the caller.
type LLMService struct {
	provider llm.Provider
	prompts  *prompt.Builder
	timeout  time.Duration
	logger   *logger.Logger
}

func NewLLMService(provider llm.Provider, prompts *prompt.Builder, timeout time.Duration, log *logger.Logger) *LLMService {
	if log == nil {
		log = logger.NewNop()
	}
	return &LLMService{provider: provider, prompts: prompts, timeout: timeout, logger: log}
}

// GenerateSQL sends [system: schemaPrompt] + history + [user: question] and
// returns the completion text unmodified.
func (s *LLMService) GenerateSQL(ctx context.Context, question, schemaPrompt string, history []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: schemaPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return s.chat(ctx, "sql", messages)
}

// SynthesizeAnswer asks for the user facing answer from a query result.
func (s *LLMService) SynthesizeAnswer(ctx context.Context, question string, result extdb.QueryResult) (string, error) {
	resultText, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode query result: %w", err)
	}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.prompts.AnswerSystemPrompt()},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Question: %s\nResult: %s", question, resultText)},
	}
	return s.chat(ctx, "answer", messages)
}

func (s *LLMService) chat(ctx context.Context, purpose string, messages []llm.Message) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := s.provider.Chat(ctx, messages)
	metrics.ObserveLLMCall(purpose, time.Since(start), err)
	if err != nil {
		return "", err
	}
	s.logger.Debug("llm call finished", "purpose", purpose, "model", s.provider.Model(), "duration", time.Since(start).String())
	return out, nil
}
