package web_rerank

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/plexy/config"
	"github.com/mohammad-safakhou/plexy/tools/web_rerank/cohere"
)

// Reranker orders texts by relevance to a query and returns the indices
// of the top-N inputs, best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string, topN int) ([]int, error)
}

type Provider string

const CohereProvider Provider = "cohere"

var ErrUnsupportedProvider = errors.New("unsupported provider")

func NewReranker(provider Provider, cfg config.RerankConfig) (Reranker, error) {
	switch provider {
	case CohereProvider:
		return cohere.Rerank{
			APIKey:  cfg.CohereAPIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
