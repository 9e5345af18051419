package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
)

// fakeProvider replays a scripted sequence of decisions.
type fakeProvider struct {
	mu        sync.Mutex
	decisions []*models.Decision
	errs      []error
	calls     int
}

func (p *fakeProvider) Decide(_ context.Context, _ []models.Message) (*models.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.decisions) {
		return p.decisions[i], nil
	}
	return nil, errors.New("no scripted decision")
}

func (p *fakeProvider) StreamChat(_ context.Context, _ []models.Message, _ []models.ToolSpec) (<-chan models.StreamEvent, error) {
	ch := make(chan models.StreamEvent)
	close(ch)
	return ch, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeSearcher returns canned documents (or an error) per query.
type fakeSearcher struct {
	byQuery map[string][]models.Document
	errs    map[string]error
}

func (s *fakeSearcher) Search(_ context.Context, q string) ([]models.Document, error) {
	if err := s.errs[q]; err != nil {
		return nil, err
	}
	return s.byQuery[q], nil
}

// fakeFetcher maps URLs to page text.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return "", err
	}
	return f.pages[url], nil
}

// identityReranker keeps the input order; erroringReranker always fails.
type identityReranker struct{}

func (identityReranker) Rerank(_ context.Context, _ string, texts []string, topN int) ([]int, error) {
	if topN > len(texts) {
		topN = len(texts)
	}
	out := make([]int, topN)
	for i := range out {
		out[i] = i
	}
	return out, nil
}

type erroringReranker struct{}

func (erroringReranker) Rerank(_ context.Context, _ string, _ []string, _ int) ([]int, error) {
	return nil, errors.New("rerank provider down")
}

// memStore is an in-memory PageStore.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, url string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[url]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, url, text string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[url] = text
	return nil
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func eventsOfType(events []Event, t EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
