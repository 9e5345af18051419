package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
)

const systemPromptTemplate = `You are Plexy, a helpful AI assistant with web_search capability. Current date and time is %s.

You can either:
1) Provide a final answer => action='answer'
2) Provide web search queries => action='search'

If action='search', provide 1-5 queries in 'search_queries'.
Use 'scratchpad' for short reasoning if you want.

Return strict JSON for the Decision schema. (No extra keys!)
When you eventually provide a final answer (action='answer'), you MUST:
1) Base your answer ONLY on the references we have added below.
2) Use inline citations like [1], [2], etc.
3) Your response must end with a 'References' section listing the sources cited. For example:
References:
[1] https://example.com/source1
[2] https://example.com/source2
Obviously, dont include any references that are not cited in the body of your response.
`

// Conversation holds one session's message history. There is exactly one
// system message, always at position 0; its content grows monotonically
// as reference blocks are appended after each search round. All other
// entries are append-only.
type Conversation struct {
	systemContent string
	messages      []models.Message
}

// NewConversation builds a conversation seeded with the system prompt.
func NewConversation(now time.Time) *Conversation {
	if loc, err := time.LoadLocation("America/Los_Angeles"); err == nil {
		now = now.In(loc)
	}
	content := fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04:05 MST"))
	return &Conversation{
		systemContent: content,
		messages:      []models.Message{{Role: models.RoleSystem, Content: content}},
	}
}

// Append adds a history turn. System turns are rejected; the single
// system entry is managed through AppendReferences.
func (c *Conversation) Append(msg models.Message) {
	if msg.Role == models.RoleSystem {
		return
	}
	c.messages = append(c.messages, msg)
}

// Messages returns a snapshot of the conversation.
func (c *Conversation) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// SystemContent returns the current accumulated system message content.
func (c *Conversation) SystemContent() string {
	return c.systemContent
}

// AppendReferences folds a numbered citation block for docs into the
// system message, tagged with the search round it came from. Earlier
// blocks are never removed or renumbered. Empty docs appends nothing.
func (c *Conversation) AppendReferences(iteration int, docs []models.Document) {
	if len(docs) == 0 {
		return
	}

	entries := make([]string, 0, len(docs))
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		url := doc.URL
		if url == "" {
			url = "#"
		}
		entries = append(entries, fmt.Sprintf(
			"%d. Title: %s\n   URL: %s\n   Snippet:\n   %q\n---\n",
			i+1, title, url, doc.Content,
		))
	}

	c.systemContent += fmt.Sprintf(
		"\n\nHere are new references (iteration=%d):\n%s#---------------------------------------#\n",
		iteration, strings.Join(entries, "\n\n"),
	)
	c.messages[0] = models.Message{Role: models.RoleSystem, Content: c.systemContent}
}
