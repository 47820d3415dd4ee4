package llm

import (
	"context"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to a provider.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Provider is a blocking chat completion endpoint. It returns the text of the
// top completion verbatim and never retries.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
	Model() string
}

// CallError is returned for any transport or API failure of a provider.
type CallError struct {
	Provider string
	Model    string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s chat completion (model %s) failed: %v", e.Provider, e.Model, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Config is what a provider needs from the application configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Temperature is sent only when set.
	Temperature *float32
}
