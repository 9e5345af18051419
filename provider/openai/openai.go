package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mohammad-safakhou/plexy/models"
)

// decisionSchema is the strict structured-output schema for a Decision.
// All properties are required; optionality is expressed through null.
var decisionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"action": {"type": "string", "enum": ["search", "answer"]},
		"search_queries": {"type": "array", "items": {"type": "string"}},
		"message": {"type": ["string", "null"]},
		"scratchpad": {"type": ["string", "null"]}
	},
	"required": ["action", "search_queries", "message", "scratchpad"],
	"additionalProperties": false
}`)

// client implements the provider interface using OpenAI's API
type client struct {
	api         *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewClient creates a new OpenAI client
func NewClient(apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) *client {
	cfg := openai.DefaultConfig(apiKey)
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Decide sends the full conversation and parses a structured Decision.
// A refusal surfaces as models.ErrRefusal; no retries are performed.
func (c *client) Decide(ctx context.Context, msgs []models.Message) (*models.Decision, error) {
	// The request marshaller drops a zero temperature, which the API
	// then defaults to 1. Send the smallest non-zero value instead.
	temperature := float32(c.temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "decision",
				Schema: decisionSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", models.ErrNoDecision)
	}

	choice := resp.Choices[0].Message
	if choice.Refusal != "" {
		return nil, models.ErrRefusal
	}

	var decision models.Decision
	if err := json.Unmarshal([]byte(choice.Content), &decision); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNoDecision, err)
	}
	if decision.Action != models.ActionSearch && decision.Action != models.ActionAnswer {
		return nil, fmt.Errorf("%w: unknown action %q", models.ErrNoDecision, decision.Action)
	}
	return &decision, nil
}

// StreamChat streams text deltas and yields an accumulated tool call, if
// any, as the final event before the channel closes.
func (c *client) StreamChat(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (<-chan models.StreamEvent, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(msgs),
		Stream:   true,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()

		var active *models.ToolCall
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta

			if delta.Content != "" {
				select {
				case events <- models.StreamEvent{Type: models.StreamText, Text: delta.Content}:
				case <-ctx.Done():
					return
				}
			}

			// Tool call fragments arrive across chunks; accumulate them.
			for _, tc := range delta.ToolCalls {
				if active == nil {
					active = &models.ToolCall{ID: tc.ID}
				}
				active.Name += tc.Function.Name
				active.Arguments += tc.Function.Arguments
			}
		}

		if active != nil {
			select {
			case events <- models.StreamEvent{Type: models.StreamToolCall, ToolCall: *active}:
			case <-ctx.Done():
			}
		}
	}()
	return events, nil
}

func toOpenAIMessages(msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		m := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, m)
	}
	return out
}
