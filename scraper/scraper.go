// Package scraper fetches pages and extracts the text snippets that answer a
// query. Failures never surface as errors: every scrape ends in a tagged
// Outcome so callers can move on to the next source.
package scraper

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"pharmassist-backend/logging"
	"pharmassist-backend/metrics"
)

const (
	defaultWindow      = 100
	defaultMaxSnippets = 10
)

// Outcome tags the result of a scrape
type Outcome int

const (
	Matched Outcome = iota
	NoMatch
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NoMatch:
		return "no_match"
	default:
		return "unavailable"
	}
}

// Result is the outcome of scraping one page
type Result struct {
	URL      string
	Outcome  Outcome
	Snippets []string
}

// Text returns the snippets joined by newlines, empty unless Matched
func (r Result) Text() string {
	if r.Outcome != Matched {
		return ""
	}
	return strings.Join(r.Snippets, "\n")
}

// Scraper extracts query-relevant snippets from web pages
type Scraper struct {
	fetcher     Fetcher
	window      int
	maxSnippets int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Option is a functional option for Scraper
type Option func(*Scraper)

// WithWindow sets the number of characters kept on each side of a match
func WithWindow(chars int) Option {
	return func(s *Scraper) {
		s.window = chars
	}
}

// WithMaxSnippets caps the number of snippets per page
func WithMaxSnippets(n int) Option {
	return func(s *Scraper) {
		s.maxSnippets = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) {
		s.metrics = m
	}
}

// New creates a new scraper on top of fetcher
func New(fetcher Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:     fetcher,
		window:      defaultWindow,
		maxSnippets: defaultMaxSnippets,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Scrape fetches url and returns the snippets around the query phrase, or
// around its keywords when the phrase itself does not occur.
func (s *Scraper) Scrape(ctx context.Context, url, query string) Result {
	return s.scrape(ctx, url, query, false)
}

// ScrapeExact is Scrape without the keyword fallback
func (s *Scraper) ScrapeExact(ctx context.Context, url, phrase string) Result {
	return s.scrape(ctx, url, phrase, true)
}

func (s *Scraper) scrape(ctx context.Context, url, query string, exact bool) Result {
	result := s.extract(ctx, url, query, exact)
	s.metrics.Scrape(result.Outcome.String())
	return result
}

func (s *Scraper) extract(ctx context.Context, url, query string, exact bool) Result {
	text, ok := s.pageText(ctx, url)
	if !ok {
		return Result{URL: url, Outcome: Unavailable}
	}

	terms := []string{strings.Trim(query, " ?!.,;:\"'")}
	snippets := MatchWindows(text, terms, s.window, s.maxSnippets)
	if len(snippets) == 0 && !exact {
		snippets = MatchWindows(text, Keywords(query), s.window, s.maxSnippets)
	}
	if len(snippets) == 0 {
		return Result{URL: url, Outcome: NoMatch}
	}
	return Result{URL: url, Outcome: Matched, Snippets: snippets}
}

// ScrapeFirst fetches url once and returns the snippets of the first term in
// terms that occurs on the page, together with that term.
func (s *Scraper) ScrapeFirst(ctx context.Context, url string, terms []string) (Result, string) {
	result, term := s.scrapeFirst(ctx, url, terms)
	s.metrics.Scrape(result.Outcome.String())
	return result, term
}

func (s *Scraper) scrapeFirst(ctx context.Context, url string, terms []string) (Result, string) {
	text, ok := s.pageText(ctx, url)
	if !ok {
		return Result{URL: url, Outcome: Unavailable}, ""
	}
	for _, term := range terms {
		if term == "" {
			continue
		}
		if snippets := MatchWindows(text, []string{term}, s.window, s.maxSnippets); len(snippets) > 0 {
			return Result{URL: url, Outcome: Matched, Snippets: snippets}, term
		}
	}
	return Result{URL: url, Outcome: NoMatch}, ""
}

func (s *Scraper) pageText(ctx context.Context, url string) (string, bool) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("scrape fetch failed", zap.String("url", url), zap.Error(err))
		return "", false
	}

	text, err := BodyText(page)
	if err != nil {
		s.logger.Warn("scrape parse failed", zap.String("url", url), zap.Error(err))
		return "", false
	}
	return text, true
}

type span struct{ start, end int }

// MatchWindows finds every case-insensitive occurrence of terms in text and
// returns the surrounding windows of up to window runes on each side.
// Overlapping windows are merged; snippets keep their order in text.
func MatchWindows(text string, terms []string, window, limit int) []string {
	hay := []rune(text)
	lower := lowerRunes(hay)

	var spans []span
	for _, term := range terms {
		needle := lowerRunes([]rune(strings.TrimSpace(term)))
		if len(needle) == 0 {
			continue
		}
		for from := 0; ; {
			i := indexRunes(lower, needle, from)
			if i < 0 {
				break
			}
			spans = append(spans, span{
				start: max(0, i-window),
				end:   min(len(hay), i+len(needle)+window),
			})
			from = i + len(needle)
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			last.end = max(last.end, sp.end)
			continue
		}
		merged = append(merged, sp)
	}

	var out []string
	for _, sp := range merged {
		if limit > 0 && len(out) >= limit {
			break
		}
		if snippet := strings.TrimSpace(string(hay[sp.start:sp.end])); snippet != "" {
			out = append(out, snippet)
		}
	}
	return out
}

func lowerRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToLower(c)
	}
	return out
}

func indexRunes(hay, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
