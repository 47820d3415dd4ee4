package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider talks to Google Gemini through the generative-ai-go SDK.
type GeminiProvider struct {
	client *genai.Client
	config Config
}

func NewGeminiProvider(ctx context.Context, config Config) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, config: config}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.config.Model }

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	system, history, last, err := toGeminiContents(messages)
	if err != nil {
		return "", &CallError{Provider: p.Name(), Model: p.config.Model, Err: err}
	}

	model := p.client.GenerativeModel(p.config.Model)
	model.SystemInstruction = system
	if p.config.Temperature != nil {
		model.SetTemperature(*p.config.Temperature)
	}

	chatSession := model.StartChat()
	chatSession.History = history

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", &CallError{Provider: p.Name(), Model: p.config.Model, Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &CallError{Provider: p.Name(), Model: p.config.Model, Err: errors.New("no candidates in response")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return text.String(), nil
}

// toGeminiContents splits messages into the system instruction, the chat
// history and the final user message. Gemini names the assistant role "model".
func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content, *genai.Content, error) {
	var (
		systemParts []string
		contents    []*genai.Content
	)
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if len(contents) == 0 {
		return nil, nil, nil, errors.New("no user message to send")
	}
	last := contents[len(contents)-1]
	if last.Role != "user" {
		return nil, nil, nil, errors.New("last message is not from the user")
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(systemParts, "\n\n"))}}
	}
	return system, contents[:len(contents)-1], last, nil
}
