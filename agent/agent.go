package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/plexy/internal/telemetry"
	"github.com/mohammad-safakhou/plexy/models"
	"github.com/mohammad-safakhou/plexy/provider"
	"github.com/mohammad-safakhou/plexy/tools/web_fetch"
	"github.com/mohammad-safakhou/plexy/tools/web_rerank"
	"github.com/mohammad-safakhou/plexy/tools/web_search"
)

const webSearchToolName = "web_search_tool"

const apologyMessage = "I'm sorry, but I cannot fulfill that request."

const forcedFinalInstruction = "Please now provide your final answer with inline citations [1], [2], etc., referencing only the references above, and end with a 'References' section."

// EventType tags the events emitted while a turn runs.
type EventType string

const (
	// EventAnswer carries final answer text (whole message or stream chunk).
	EventAnswer EventType = "answer"
	// EventScratchpad surfaces the model's intermediate reasoning.
	EventScratchpad EventType = "scratchpad"
	// EventNotice carries user-visible status and failure notices.
	EventNotice EventType = "notice"
)

// Event is one user-visible item produced during a turn.
type Event struct {
	Type EventType
	Text string
}

// PageStore is the cache consulted before fetching a page.
type PageStore interface {
	Get(ctx context.Context, url string) (string, bool, error)
	Set(ctx context.Context, url, text string, ttl time.Duration) error
}

// Options wires an Agent. Provider and Searcher are required; the rest
// degrade gracefully when absent.
type Options struct {
	Provider provider.Provider
	Searcher web_search.WebSearcher
	Fetcher  web_fetch.WebFetcher
	Reranker web_rerank.Reranker
	Pages    PageStore
	Registry *Registry
	Logger   *zap.Logger
	Metrics  *telemetry.Metrics

	MaxIters      int
	ScoreDropoff  float64
	MinContentLen int
	RerankTopN    int
	CacheTTL      time.Duration
	Debug         bool
}

// Agent drives the iterative decision/retrieval pipeline for one session.
// The conversation is owned by the agent; it is not safe for concurrent
// turns.
type Agent struct {
	provider provider.Provider
	searcher web_search.WebSearcher
	fetcher  web_fetch.WebFetcher
	reranker web_rerank.Reranker
	pages    PageStore
	registry *Registry
	log      *zap.Logger
	metrics  *telemetry.Metrics

	conv          *Conversation
	maxIters      int
	scoreDropoff  float64
	minContentLen int
	rerankTopN    int
	cacheTTL      time.Duration
	debug         bool
}

// New constructs an Agent with a fresh conversation.
func New(opts Options) *Agent {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxIters <= 0 {
		opts.MaxIters = 2
	}
	if opts.ScoreDropoff <= 0 {
		opts.ScoreDropoff = 0.15
	}
	if opts.MinContentLen <= 0 {
		opts.MinContentLen = 100
	}
	if opts.RerankTopN <= 0 {
		opts.RerankTopN = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 14 * 24 * time.Hour
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry(opts.Logger)
	}

	a := &Agent{
		provider:      opts.Provider,
		searcher:      opts.Searcher,
		fetcher:       opts.Fetcher,
		reranker:      opts.Reranker,
		pages:         opts.Pages,
		registry:      opts.Registry,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		conv:          NewConversation(time.Now()),
		maxIters:      opts.MaxIters,
		scoreDropoff:  opts.ScoreDropoff,
		minContentLen: opts.MinContentLen,
		rerankTopN:    opts.RerankTopN,
		cacheTTL:      opts.CacheTTL,
		debug:         opts.Debug,
	}
	a.registerBuiltins()
	return a
}

// Conversation exposes the session state, mainly for inspection.
func (a *Agent) Conversation() *Conversation { return a.conv }

// RunPipeline runs one user turn through the decision/retrieval loop and
// emits events until the turn reaches a terminal state. The channel is
// closed when the turn is done. Conversation state persists across turns.
func (a *Agent) RunPipeline(ctx context.Context, userQuery string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		a.runPipeline(ctx, userQuery, events)
	}()
	return events
}

func (a *Agent) runPipeline(ctx context.Context, userQuery string, events chan<- Event) {
	a.conv.Append(models.Message{Role: models.RoleUser, Content: userQuery})

	for iteration := 0; iteration < a.maxIters; iteration++ {
		// User interruption aborts between rounds; in-flight calls are
		// abandoned, not cancelled.
		if ctx.Err() != nil {
			return
		}

		decision, err := a.decide(ctx)
		if err != nil {
			emit(ctx, events, Event{Type: EventNotice, Text: "(No valid decision from LLM - halting.)"})
			return
		}

		if decision.Scratchpad != "" {
			emit(ctx, events, Event{
				Type: EventScratchpad,
				Text: fmt.Sprintf("Scratchpad iteration=%d: %s", iteration+1, decision.Scratchpad),
			})
		}

		if decision.Action == models.ActionAnswer {
			if decision.Message == "" {
				emit(ctx, events, Event{Type: EventNotice, Text: "No message from the LLM. Stopping."})
				return
			}
			a.conv.Append(models.Message{Role: models.RoleAssistant, Content: decision.Message})
			emit(ctx, events, Event{Type: EventAnswer, Text: decision.Message})
			return
		}

		if a.debug {
			a.log.Debug("searching", zap.Strings("queries", decision.SearchQueries))
		}
		emit(ctx, events, Event{Type: EventNotice, Text: "(Performing web searches...)"})

		topDocs := a.searchRound(ctx, userQuery, decision.SearchQueries)
		a.recordSearchTurn(iteration, decision.SearchQueries, topDocs)
		a.conv.AppendReferences(iteration+1, topDocs)
	}

	// Round budget exhausted: one forced final, never another search.
	a.metrics.IncForcedFinals()
	emit(ctx, events, Event{Type: EventNotice, Text: "Reached max iterations. Force-producing final answer..."})
	a.conv.Append(models.Message{Role: models.RoleUser, Content: forcedFinalInstruction})

	decision, err := a.decide(ctx)
	if err != nil || decision.Message == "" {
		emit(ctx, events, Event{Type: EventNotice, Text: "No final forced answer produced."})
		return
	}
	a.conv.Append(models.Message{Role: models.RoleAssistant, Content: decision.Message})
	emit(ctx, events, Event{Type: EventAnswer, Text: decision.Message})
}

// searchRound runs the retrieval chain for one round: fan-out search,
// enrichment, dedup, rerank.
func (a *Agent) searchRound(ctx context.Context, userQuery string, queries []string) []models.Document {
	docs := a.searchAll(ctx, queries)
	docs = a.enrichDocs(ctx, docs)
	docs = deduplicateDocs(docs)
	return a.rerankDocs(ctx, userQuery, docs, a.rerankTopN)
}

// recordSearchTurn appends the tool call and its result to the history,
// correlated by a per-round identifier.
func (a *Agent) recordSearchTurn(iteration int, queries []string, docs []models.Document) {
	callID := fmt.Sprintf("search_%d", iteration)
	args, _ := json.Marshal(map[string]any{"queries": queries})
	a.conv.Append(models.Message{
		Role:      models.RoleAssistant,
		ToolCalls: []models.ToolCall{{ID: callID, Name: webSearchToolName, Arguments: string(args)}},
	})

	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		payload = []byte("[]")
	}
	a.conv.Append(models.Message{
		Role:       models.RoleTool,
		ToolCallID: callID,
		Content:    string(payload),
	})
}

// decide issues one structured decision call. A refusal appends the
// fixed apology to the conversation; failures are never retried here.
func (a *Agent) decide(ctx context.Context) (*models.Decision, error) {
	a.metrics.IncDecisionCalls()
	if a.debug {
		a.log.Debug("decision prompt", zap.Int("messages", len(a.conv.Messages())))
	}

	decision, err := a.provider.Decide(ctx, a.conv.Messages())
	if err != nil {
		if errors.Is(err, models.ErrRefusal) {
			a.conv.Append(models.Message{Role: models.RoleAssistant, Content: apologyMessage})
		}
		a.log.Warn("decision call failed", zap.Error(err))
		return nil, err
	}
	return decision, nil
}

func emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
