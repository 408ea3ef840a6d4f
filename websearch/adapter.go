package websearch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharmassist-backend/llm"
	"pharmassist-backend/logging"
	"pharmassist-backend/metrics"
	"pharmassist-backend/models"
	"pharmassist-backend/scraper"
)

const (
	defaultTopK        = 3
	defaultMaxChars    = 2000
	defaultConcurrency = 3
	maxConcurrency     = 3

	// ToolName is the function name the model uses to call the adapter
	ToolName = "search_government_sites"

	// NoPagesMessage is the tool output when nothing usable was found
	NoPagesMessage = "No relevant government web pages found."
)

// Kind tags the outcome of SearchAndScrape
type Kind int

const (
	// KindFound means at least one page produced a block
	KindFound Kind = iota
	// KindNoPages means the search returned zero results
	KindNoPages
	// KindEmpty means results were returned but no page yielded text
	KindEmpty
	// KindFailed means the search itself failed
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNoPages:
		return "no_pages"
	case KindEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result is the outcome of one SearchAndScrape run
type Result struct {
	Kind   Kind
	Blocks []models.ContextBlock
}

// Text renders the blocks with their source URLs
func (r Result) Text() string {
	var sb strings.Builder
	for i, b := range r.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Source: %s ---\n%s", b.SourceLabel, b.Text)
	}
	return sb.String()
}

// Adapter searches a trusted domain and scrapes the top results
type Adapter struct {
	searcher    Searcher
	scraper     *scraper.Scraper
	topK        int
	maxChars    int
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// AdapterOption is a functional option for Adapter
type AdapterOption func(*Adapter)

// WithTopK sets the number of search results to scrape
func WithTopK(k int) AdapterOption {
	return func(a *Adapter) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithMaxChars caps the text kept from each page
func WithMaxChars(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.maxChars = n
		}
	}
}

// WithConcurrency sets how many pages are scraped at once, at most 3
func WithConcurrency(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 && n <= maxConcurrency {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) AdapterOption {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// NewAdapter creates a web search adapter
func NewAdapter(searcher Searcher, s *scraper.Scraper, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		searcher:    searcher,
		scraper:     s,
		topK:        defaultTopK,
		maxChars:    defaultMaxChars,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrNop(a.logger)
	return a
}

// SearchAndScrape searches for query and scrapes each result page with it.
// Pages are scraped concurrently; a page that fails is logged and skipped.
// Blocks keep the search rank order.
func (a *Adapter) SearchAndScrape(ctx context.Context, query string) Result {
	result := a.searchAndScrape(ctx, query)
	a.metrics.Search(result.Kind.String())
	return result
}

func (a *Adapter) searchAndScrape(ctx context.Context, query string) Result {
	hits, err := a.searcher.Search(ctx, query, a.topK)
	if err != nil {
		a.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return Result{Kind: KindFailed}
	}
	if len(hits) == 0 {
		return Result{Kind: KindNoPages}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Rank < hits[j].Rank })
	if len(hits) > a.topK {
		hits = hits[:a.topK]
	}

	pages := make([]*models.ContextBlock, len(hits))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, hit := range hits {
		g.Go(func() error {
			scraped := a.scraper.Scrape(ctx, hit.URL, query)
			if scraped.Outcome != scraper.Matched {
				a.logger.Debug("skipping result page",
					zap.String("url", hit.URL),
					zap.Stringer("outcome", scraped.Outcome),
				)
				return nil
			}
			pages[i] = &models.ContextBlock{
				SourceLabel: hit.URL,
				Text:        scraper.Truncate(scraped.Text(), a.maxChars),
			}
			return nil
		})
	}
	_ = g.Wait()

	var blocks []models.ContextBlock
	for _, p := range pages {
		if p != nil {
			blocks = append(blocks, *p)
		}
	}
	if len(blocks) == 0 {
		return Result{Kind: KindEmpty}
	}
	return Result{Kind: KindFound, Blocks: blocks}
}

// Tool exposes the adapter as a callable capability for tool-calling completions
func (a *Adapter) Tool() llm.Tool {
	return llm.Tool{
		Name:        ToolName,
		Description: "Search official Indian government (.gov.in) websites for drug regulations, schedules and pharmacy rules, returning text excerpts labelled by source URL.",
		Params: []llm.Param{{
			Name:        "query",
			Description: "Search terms, for example a drug name or regulation.",
			Required:    true,
		}},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			if strings.TrimSpace(query) == "" {
				return "", errors.New("query is required")
			}
			result := a.SearchAndScrape(ctx, query)
			if result.Kind != KindFound {
				return NoPagesMessage, nil
			}
			return result.Text(), nil
		},
	}
}
