package web_search

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/plexy/config"
	"github.com/mohammad-safakhou/plexy/models"
	"github.com/mohammad-safakhou/plexy/tools/web_search/brave"
	"github.com/mohammad-safakhou/plexy/tools/web_search/tavily"
)

// WebSearcher issues one query against a search provider and returns
// normalized documents.
type WebSearcher interface {
	Search(ctx context.Context, q string) ([]models.Document, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

func NewWebSearcher(provider Provider, cfg config.SearchConfig) (WebSearcher, error) {
	switch provider {
	case TavilyProvider:
		return tavily.Search{
			APIKey:     cfg.TavilyAPIKey,
			Depth:      cfg.Depth,
			MaxResults: cfg.MaxResults,
			Timeout:    cfg.Timeout,
		}, nil
	case BraveProvider:
		return brave.Search{
			APIKey:     cfg.BraveAPIKey,
			MaxResults: cfg.MaxResults,
			Timeout:    cfg.Timeout,
		}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
