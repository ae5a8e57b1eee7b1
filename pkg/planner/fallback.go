package planner

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jpoz/groq"
	"github.com/ollama/ollama/api"
)

// GroqPlanner talks to Groq's OpenAI-compatible chat completion API. Used
// when ANTHROPIC_API_KEY is absent but GROQ_API_KEY is present.
type GroqPlanner struct {
	client *groq.Client
	model  string
}

// NewGroqPlanner builds a planner against apiKey.
func NewGroqPlanner(apiKey, model string) *GroqPlanner {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqPlanner{client: groq.NewClient(groq.WithAPIKey(apiKey)), model: model}
}

// Complete sends the turn as a two-message chat completion (system +
// user) and returns the first choice's content.
func (p *GroqPlanner) Complete(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	userContent := req.UserPrompt
	if req.MemoryHeader != "" {
		userContent = req.MemoryHeader + "\n\n" + req.UserPrompt
	}

	resp, err := p.client.CreateChatCompletion(groq.CompletionCreateParams{
		Model: p.model,
		Messages: []groq.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: userContent},
		},
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("groq planner turn: %w", err)
	}
	if len(resp.Choices) == 0 {
		return TurnResponse{}, fmt.Errorf("groq planner turn: empty response")
	}
	return TurnResponse{Text: resp.Choices[0].Message.Content}, nil
}

// OllamaPlanner talks to a locally or remotely reachable Ollama server.
// Used when neither ANTHROPIC_API_KEY nor GROQ_API_KEY is present, falling
// back to whatever OLLAMA_HOST (or the default local daemon) offers.
type OllamaPlanner struct {
	client *api.Client
	model  string
}

// NewOllamaPlanner builds a planner against baseURL (host:port, no
// scheme-less bare values) using model.
func NewOllamaPlanner(baseURL, model string) (*OllamaPlanner, error) {
	if model == "" {
		model = "llama3.1"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url %q: %w", baseURL, err)
	}
	return &OllamaPlanner{client: api.NewClient(u, nil), model: model}, nil
}

// Complete sends the turn as a non-streaming chat request and returns the
// final message's content.
func (p *OllamaPlanner) Complete(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	userContent := req.UserPrompt
	if req.MemoryHeader != "" {
		userContent = req.MemoryHeader + "\n\n" + req.UserPrompt
	}

	var text string
	stream := false
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: userContent},
		},
		Stream: &stream,
	}, func(resp api.ChatResponse) error {
		text += resp.Message.Content
		return nil
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("ollama planner turn: %w", err)
	}
	return TurnResponse{Text: text}, nil
}
