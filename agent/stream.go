package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/plexy/models"
)

// StreamChat runs one user turn in streaming tool-calling mode: the
// model streams text or requests a tool call; tool calls are dispatched
// through the registry and their results fed back until the model
// produces a plain text reply. The round budget bounds the tool loop.
func (a *Agent) StreamChat(ctx context.Context, userQuery string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		a.streamChat(ctx, userQuery, events)
	}()
	return events
}

func (a *Agent) streamChat(ctx context.Context, userQuery string, events chan<- Event) {
	a.conv.Append(models.Message{Role: models.RoleUser, Content: userQuery})

	for round := 0; round <= a.maxIters; round++ {
		stream, err := a.provider.StreamChat(ctx, a.conv.Messages(), a.registry.Specs())
		if err != nil {
			a.log.Warn("stream chat failed", zap.Error(err))
			emit(ctx, events, Event{Type: EventNotice, Text: "(Chat request failed - halting.)"})
			return
		}

		var text string
		var toolCall *models.ToolCall
		for ev := range stream {
			switch ev.Type {
			case models.StreamText:
				text += ev.Text
				emit(ctx, events, Event{Type: EventAnswer, Text: ev.Text})
			case models.StreamToolCall:
				tc := ev.ToolCall
				toolCall = &tc
			}
		}

		if toolCall == nil {
			a.conv.Append(models.Message{Role: models.RoleAssistant, Content: text})
			return
		}

		a.conv.Append(models.Message{
			Role:      models.RoleAssistant,
			Content:   text,
			ToolCalls: []models.ToolCall{*toolCall},
		})

		result, err := a.registry.Run(ctx, toolCall.Name, toolCall.Arguments)
		if err != nil {
			a.log.Warn("tool execution failed", zap.String("tool", toolCall.Name), zap.Error(err))
			result = `{"error": "tool execution failed"}`
		}
		a.conv.Append(models.Message{
			Role:       models.RoleTool,
			ToolCallID: toolCall.ID,
			Content:    result,
		})
	}

	emit(ctx, events, Event{Type: EventNotice, Text: "(Tool-call budget exhausted.)"})
}
