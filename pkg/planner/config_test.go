package planner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPrefersAnthropicOverGroqAndOllama(t *testing.T) {
	p, err := Build(Config{AnthropicAPIKey: "a", GroqAPIKey: "g", OllamaBaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	require.IsType(t, &AnthropicPlanner{}, p)
}

func TestBuildFallsBackToGroqWhenNoAnthropic(t *testing.T) {
	p, err := Build(Config{GroqAPIKey: "g", OllamaBaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	require.IsType(t, &GroqPlanner{}, p)
}

func TestBuildFallsBackToOllamaWhenNoKeys(t *testing.T) {
	p, err := Build(Config{OllamaBaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	require.IsType(t, &OllamaPlanner{}, p)
}

func TestBuildErrorsWhenNothingConfigured(t *testing.T) {
	_, err := Build(Config{})
	require.Error(t, err)
}
