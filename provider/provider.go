package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/plexy/config"
	"github.com/mohammad-safakhou/plexy/models"
	anthropic_provider "github.com/mohammad-safakhou/plexy/provider/anthropic"
	openai_provider "github.com/mohammad-safakhou/plexy/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface that all LLM implementations must satisfy.
//
// Decide requests a structured Decision with deterministic sampling; a
// model refusal is reported as models.ErrRefusal. StreamChat streams
// text deltas and out-of-band tool calls over one channel.
type Provider interface {
	Decide(ctx context.Context, msgs []models.Message) (*models.Decision, error)
	StreamChat(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (<-chan models.StreamEvent, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return openai_provider.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case Anthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not set")
		}
		return anthropic_provider.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.Temperature, cfg.MaxTokens), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
