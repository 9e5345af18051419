package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/plexy/internal/helpers"
	"github.com/mohammad-safakhou/plexy/models"
)

// searchAll fans out one search per query, joins all of them, merges the
// results and applies the score-dropoff filter. A failed query
// contributes a single error document instead of aborting the batch.
func (a *Agent) searchAll(ctx context.Context, queries []string) []models.Document {
	a.metrics.AddSearchQueries(len(queries))

	results := make([][]models.Document, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			docs, err := a.searcher.Search(ctx, q)
			if err != nil {
				a.log.Warn("search query failed", zap.String("query", q), zap.Error(err))
				results[i] = []models.Document{{
					Title:   "Error doc",
					Content: "",
					Score:   0.0,
					Error:   err.Error(),
					Query:   q,
				}}
				return
			}
			results[i] = docs
		}(i, q)
	}
	wg.Wait()

	var merged []models.Document
	for _, docs := range results {
		merged = append(merged, docs...)
	}
	return filterByScoreDropoff(merged, a.scoreDropoff)
}

// filterByScoreDropoff keeps documents whose score is within drop of the
// best score in the set, sorted best first.
func filterByScoreDropoff(docs []models.Document, drop float64) []models.Document {
	if len(docs) == 0 {
		return nil
	}
	sorted := make([]models.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	cutoff := sorted[0].Score - drop
	out := sorted[:0]
	for _, d := range sorted {
		if d.Score >= cutoff {
			out = append(out, d)
		}
	}
	return out
}

// enrichDocs backfills thin document content from the page cache/fetch
// service. Content is only ever replaced by strictly longer text; any
// fetch failure skips that document and never fails the batch.
func (a *Agent) enrichDocs(ctx context.Context, docs []models.Document) []models.Document {
	for i := range docs {
		if docs[i].Error != "" {
			continue
		}
		if len(docs[i].Content) >= a.minContentLen {
			continue
		}
		if !helpers.IsHTTPURL(docs[i].URL) {
			continue
		}
		text, ok := a.pageText(ctx, docs[i].URL)
		if ok && len(text) > len(docs[i].Content) {
			docs[i].Content = text
		}
	}
	return docs
}

// pageText resolves a URL to full text: cache hit, or fetch-and-cache on
// miss. All failures degrade to absent.
func (a *Agent) pageText(ctx context.Context, url string) (string, bool) {
	if a.pages != nil {
		cached, ok, err := a.pages.Get(ctx, url)
		if err != nil {
			a.log.Warn("page cache get failed", zap.String("url", url), zap.Error(err))
		} else if ok {
			a.metrics.IncCacheHits()
			return cached, true
		}
		a.metrics.IncCacheMisses()
	}

	if a.fetcher == nil {
		return "", false
	}
	text, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		a.log.Warn("page fetch failed", zap.String("url", url), zap.Error(err))
		return "", false
	}
	if text == "" {
		return "", false
	}

	if a.pages != nil {
		if err := a.pages.Set(ctx, url, text, a.cacheTTL); err != nil {
			a.log.Warn("page cache set failed", zap.String("url", url), zap.Error(err))
		}
	}
	return text, true
}

type docKey struct {
	url   string
	title string
}

// deduplicateDocs drops exact (url, title) duplicates, keeping the
// first-seen document and preserving order.
func deduplicateDocs(docs []models.Document) []models.Document {
	seen := make(map[docKey]struct{}, len(docs))
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		key := docKey{url: d.URL, title: d.Title}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}

// rerankDocs orders the surviving documents by relevance to the user's
// query. Error documents are dropped first; a provider failure degrades
// to no usable context for the round.
func (a *Agent) rerankDocs(ctx context.Context, userQuery string, docs []models.Document, topN int) []models.Document {
	valid := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.Error != "" {
			a.log.Debug("skipping doc with error", zap.String("error", d.Error), zap.String("query", d.Query))
			continue
		}
		valid = append(valid, d)
	}
	if len(valid) == 0 {
		return nil
	}
	if a.reranker == nil {
		if len(valid) > topN {
			valid = valid[:topN]
		}
		return valid
	}

	texts := make([]string, len(valid))
	for i, d := range valid {
		texts[i] = d.Content
	}
	if topN > len(texts) {
		topN = len(texts)
	}

	queryWithDate := fmt.Sprintf("%s [Date: %s]", userQuery, time.Now().Format("2006-01-02"))
	indices, err := a.reranker.Rerank(ctx, queryWithDate, texts, topN)
	if err != nil {
		a.log.Warn("rerank failed", zap.Error(err))
		a.metrics.IncRerankFailures()
		return nil
	}

	out := make([]models.Document, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(valid) {
			continue
		}
		out = append(out, valid[idx])
	}
	return out
}
