package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
)

func TestNewConversationSeedsSystemPrompt(t *testing.T) {
	c := NewConversation(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Role != models.RoleSystem {
		t.Fatalf("expected single system message, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "You are Plexy") {
		t.Fatalf("system prompt missing persona: %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "2025-03-01") {
		t.Fatalf("system prompt missing date: %q", msgs[0].Content)
	}
}

func TestAppendRejectsSystemRole(t *testing.T) {
	c := NewConversation(time.Now())
	c.Append(models.Message{Role: models.RoleSystem, Content: "injected"})

	if len(c.Messages()) != 1 {
		t.Fatal("system turn should not be appended")
	}
	if strings.Contains(c.SystemContent(), "injected") {
		t.Fatal("system content must not be writable through Append")
	}
}

func TestAppendReferencesNumbersPerBlock(t *testing.T) {
	c := NewConversation(time.Now())

	c.AppendReferences(1, []models.Document{
		{Title: "First", URL: "https://a.example", Content: "alpha"},
		{Title: "Second", URL: "https://b.example", Content: "beta"},
	})
	c.AppendReferences(2, []models.Document{
		{Title: "Third", URL: "https://c.example", Content: "gamma"},
	})

	sys := c.SystemContent()
	if !strings.Contains(sys, "Here are new references (iteration=1):") ||
		!strings.Contains(sys, "Here are new references (iteration=2):") {
		t.Fatalf("missing reference block headers:\n%s", sys)
	}
	// Numbering restarts at 1 for each block.
	if strings.Count(sys, "1. Title:") != 2 {
		t.Fatalf("expected each block to start numbering at 1:\n%s", sys)
	}
	if !strings.Contains(sys, "2. Title: Second") {
		t.Fatalf("missing second entry in first block:\n%s", sys)
	}
	if strings.Count(sys, "#---------------------------------------#") != 2 {
		t.Fatalf("expected 2 block separators:\n%s", sys)
	}

	// The system message at position 0 tracks the accumulated content.
	if c.Messages()[0].Content != sys {
		t.Fatal("messages[0] out of sync with system content")
	}
}

func TestAppendReferencesEmptyIsNoop(t *testing.T) {
	c := NewConversation(time.Now())
	before := c.SystemContent()

	c.AppendReferences(1, nil)
	c.AppendReferences(2, []models.Document{})

	if c.SystemContent() != before {
		t.Fatal("empty reference sets must not modify the system message")
	}
}

func TestAppendReferencesDefaultsForMissingFields(t *testing.T) {
	c := NewConversation(time.Now())
	c.AppendReferences(1, []models.Document{{Content: "body only"}})

	sys := c.SystemContent()
	if !strings.Contains(sys, "Title: Untitled") {
		t.Fatalf("missing title default:\n%s", sys)
	}
	if !strings.Contains(sys, "URL: #") {
		t.Fatalf("missing url default:\n%s", sys)
	}
}

func TestAppendReferencesGrowsMonotonically(t *testing.T) {
	c := NewConversation(time.Now())
	doc := models.Document{Title: "T", URL: "https://a.example", Content: "body"}

	var prev string
	for i := 1; i <= 3; i++ {
		prev = c.SystemContent()
		c.AppendReferences(i, []models.Document{doc})
		if !strings.HasPrefix(c.SystemContent(), prev) {
			t.Fatalf("block %d rewrote earlier content", i)
		}
	}
}
