package scraper

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"pharmassist-backend/logging"
	"pharmassist-backend/metrics"
	"pharmassist-backend/models"
)

// IPAGuidelinesURL lists the Indian Pharmaceutical Association regulations and guidelines
const IPAGuidelinesURL = "https://ipapharma.org/portfolio/regulations-and-guidelines/"

const maxIPAItems = 15

// IPAScraper searches the guideline list on ipapharma.org
type IPAScraper struct {
	fetcher  Fetcher
	url      string
	maxChars int
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewIPAScraper creates an IPA scraper. An empty url selects the guidelines page.
func NewIPAScraper(fetcher Fetcher, url string, maxChars int, logger *zap.Logger, m *metrics.Metrics) *IPAScraper {
	if url == "" {
		url = IPAGuidelinesURL
	}
	return &IPAScraper{
		fetcher:  fetcher,
		url:      url,
		maxChars: maxChars,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

// Name returns the source label of the blocks this scraper produces
func (p *IPAScraper) Name() string {
	return models.SourceIPA
}

// Lookup returns the guideline list items under .entry-content that mention
// the query or one of its keywords.
func (p *IPAScraper) Lookup(ctx context.Context, query string) (models.ContextBlock, bool) {
	page, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		p.logger.Warn("IPA scrape failed", zap.String("url", p.url), zap.Error(err))
		p.metrics.Scrape(Unavailable.String())
		return models.ContextBlock{}, false
	}

	doc, err := ParseHTML(page)
	if err != nil {
		p.logger.Warn("IPA parse failed", zap.String("url", p.url), zap.Error(err))
		p.metrics.Scrape(Unavailable.String())
		return models.ContextBlock{}, false
	}

	content := findByClass(doc, "entry-content")
	if content == nil {
		p.metrics.Scrape(NoMatch.String())
		return models.ContextBlock{}, false
	}

	phrase := strings.ToLower(strings.Trim(query, " ?!.,;:\"'"))
	keywords := Keywords(query)

	var items []string
	for _, li := range findAll(content, "li") {
		text := TextContent(li)
		if text == "" || !mentions(strings.ToLower(text), phrase, keywords) {
			continue
		}
		items = append(items, "- "+text)
		if len(items) == maxIPAItems {
			break
		}
	}

	if len(items) == 0 {
		p.metrics.Scrape(NoMatch.String())
		return models.ContextBlock{}, false
	}

	p.metrics.Scrape(Matched.String())
	text := "Found the following related guidelines on ipapharma.org:\n" + strings.Join(items, "\n")
	return models.ContextBlock{
		SourceLabel: models.SourceIPA,
		Text:        Truncate(text, p.maxChars),
	}, true
}

func mentions(text, phrase string, keywords []string) bool {
	if phrase != "" && strings.Contains(text, phrase) {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
