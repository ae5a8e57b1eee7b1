package planner

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicPlanner talks to the Anthropic Messages API. It is the primary
// backend when ANTHROPIC_API_KEY is configured.
type AnthropicPlanner struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicPlanner builds a planner against apiKey, using model (or the
// package default if empty).
func NewAnthropicPlanner(apiKey, model string) *AnthropicPlanner {
	if model == "" {
		model = string(anthropic.ModelClaude3_7Sonnet20250219)
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicPlanner{client: &client, model: anthropic.Model(model)}
}

// Complete sends the turn's system prompt, memory header, and user prompt
// as a single user message and returns the model's full text reply.
func (p *AnthropicPlanner) Complete(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	userContent := req.UserPrompt
	if req.MemoryHeader != "" {
		userContent = req.MemoryHeader + "\n\n" + req.UserPrompt
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userContent)),
		},
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("anthropic planner turn: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return TurnResponse{Text: text}, nil
}
