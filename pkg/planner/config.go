package planner

import "fmt"

// Config is the environment-driven backend selection, mirroring the
// priority-ordered auto-detection used elsewhere in this stack: prefer
// Anthropic, then Groq, then a local Ollama daemon.
type Config struct {
	AnthropicAPIKey string
	AnthropicModel  string
	GroqAPIKey      string
	GroqModel       string
	OllamaBaseURL   string
	OllamaModel     string
}

// Build selects and constructs the first available backend in priority
// order. It returns an error only if no backend is configured at all.
func Build(cfg Config) (Planner, error) {
	switch {
	case cfg.AnthropicAPIKey != "":
		return NewAnthropicPlanner(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case cfg.GroqAPIKey != "":
		return NewGroqPlanner(cfg.GroqAPIKey, cfg.GroqModel), nil
	case cfg.OllamaBaseURL != "":
		return NewOllamaPlanner(cfg.OllamaBaseURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("planner: no backend configured (need one of ANTHROPIC_API_KEY, GROQ_API_KEY, OLLAMA_HOST)")
	}
}
