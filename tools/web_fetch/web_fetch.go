package web_fetch

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/plexy/config"
	"github.com/mohammad-safakhou/plexy/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/plexy/tools/web_fetch/crawl4ai"
)

// WebFetcher resolves a URL to extracted page text. An empty string with
// a nil error means the page produced no usable text.
type WebFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type FetcherType string

const (
	Crawl4AIFetcherType FetcherType = "crawl4ai"
	ChromedpFetcherType FetcherType = "chromedp"
)

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

func NewWebFetcher(fetcherType FetcherType, cfg config.CrawlConfig) (WebFetcher, error) {
	switch fetcherType {
	case Crawl4AIFetcherType:
		return crawl4ai.Fetch{
			BaseURL:      cfg.BaseURL,
			APIToken:     cfg.APIToken,
			PollInterval: cfg.PollInterval,
			Timeout:      cfg.Timeout,
		}, nil
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: cfg.Timeout, MaxChars: cfg.MaxChars}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
