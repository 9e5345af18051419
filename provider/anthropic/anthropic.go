package anthropic_provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/mohammad-safakhou/plexy/models"
)

const decisionToolName = "decision"

var decisionInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action":         map[string]any{"type": "string", "enum": []string{"search", "answer"}},
		"search_queries": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"message":        map[string]any{"type": "string"},
		"scratchpad":     map[string]any{"type": "string"},
	},
	"required": []string{"action", "search_queries"},
}

// client implements the provider interface using Anthropic's Messages API.
// Structured decisions are obtained by forcing a tool call whose input
// schema matches the Decision type.
type client struct {
	api         *anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewClient creates a new Anthropic client
func NewClient(apiKey, model string, temperature float64, maxTokens int) *client {
	return &client{
		api:         anthropic.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (c *client) Decide(ctx context.Context, msgs []models.Message) (*models.Decision, error) {
	system, converted := toAnthropicMessages(msgs)
	temp := float32(c.temperature)
	resp, err := c.api.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      system,
		Messages:    converted,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Tools: []anthropic.ToolDefinition{{
			Name:        decisionToolName,
			Description: "Choose the next step: issue web searches or provide the final answer.",
			InputSchema: decisionInputSchema,
		}},
		ToolChoice: &anthropic.ToolChoice{Type: "tool", Name: decisionToolName},
	})
	if err != nil {
		return nil, fmt.Errorf("decision request failed: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type != anthropic.MessagesContentTypeToolUse || block.MessageContentToolUse == nil {
			continue
		}
		var decision models.Decision
		if err := json.Unmarshal(block.MessageContentToolUse.Input, &decision); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNoDecision, err)
		}
		if decision.Action != models.ActionSearch && decision.Action != models.ActionAnswer {
			return nil, fmt.Errorf("%w: unknown action %q", models.ErrNoDecision, decision.Action)
		}
		return &decision, nil
	}
	return nil, fmt.Errorf("%w: no tool use block in response", models.ErrNoDecision)
}

// StreamChat delivers the assistant reply as events. The Messages API
// response is emitted block by block: text blocks as one text event
// each, tool_use blocks as tool call events.
func (c *client) StreamChat(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (<-chan models.StreamEvent, error) {
	system, converted := toAnthropicMessages(msgs)
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		Messages:  converted,
		MaxTokens: c.maxTokens,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	resp, err := c.api.CreateMessages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		for _, block := range resp.Content {
			var ev models.StreamEvent
			switch {
			case block.Type == anthropic.MessagesContentTypeToolUse && block.MessageContentToolUse != nil:
				ev = models.StreamEvent{Type: models.StreamToolCall, ToolCall: models.ToolCall{
					ID:        block.MessageContentToolUse.ID,
					Name:      block.MessageContentToolUse.Name,
					Arguments: string(block.MessageContentToolUse.Input),
				}}
			default:
				text := block.GetText()
				if text == "" {
					continue
				}
				ev = models.StreamEvent{Type: models.StreamText, Text: text}
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// toAnthropicMessages splits out the system content (Anthropic carries it
// on the request, not in the message list) and converts the history.
func toAnthropicMessages(msgs []models.Message) (string, []anthropic.Message) {
	var system string
	out := make([]anthropic.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleSystem:
			system = msg.Content
		case models.RoleUser:
			out = append(out, anthropic.NewUserTextMessage(msg.Content))
		case models.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				content := make([]anthropic.MessageContent, 0, len(msg.ToolCalls))
				for _, tc := range msg.ToolCalls {
					content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(tc.Arguments)))
				}
				out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
				continue
			}
			out = append(out, anthropic.NewAssistantTextMessage(msg.Content))
		case models.RoleTool:
			out = append(out, anthropic.NewToolResultsMessage(msg.ToolCallID, msg.Content, false))
		}
	}
	return system, out
}
