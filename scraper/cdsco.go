package scraper

import (
	"context"
	"fmt"
	"strings"

	"pharmassist-backend/models"
)

// CDSCOHomeURL is the Central Drugs Standard Control Organisation home page
const CDSCOHomeURL = "https://cdsco.gov.in/opencms/opencms/en/Home/"

// CDSCOScraper looks up mentions of a drug on the CDSCO website
type CDSCOScraper struct {
	scraper  *Scraper
	url      string
	maxChars int
}

// NewCDSCOScraper creates a CDSCO scraper. An empty url selects the CDSCO home page.
func NewCDSCOScraper(s *Scraper, url string, maxChars int) *CDSCOScraper {
	if url == "" {
		url = CDSCOHomeURL
	}
	return &CDSCOScraper{scraper: s, url: url, maxChars: maxChars}
}

// Name returns the source label of the blocks this scraper produces
func (c *CDSCOScraper) Name() string {
	return models.SourceCDSCO
}

// Lookup returns the CDSCO mentions of the drug named in question. The whole
// subject phrase is tried first, then each significant keyword on its own.
// ok is false when the page is unavailable or mentions none of them.
func (c *CDSCOScraper) Lookup(ctx context.Context, question string) (models.ContextBlock, bool) {
	subject := SubjectTerms(question)
	if subject == "" {
		return models.ContextBlock{}, false
	}

	terms := []string{subject}
	for _, kw := range Keywords(question) {
		if !strings.EqualFold(kw, subject) {
			terms = append(terms, kw)
		}
	}

	result, drug := c.scraper.ScrapeFirst(ctx, c.url, terms)
	if result.Outcome != Matched {
		return models.ContextBlock{}, false
	}

	text := fmt.Sprintf("Found mentions of %q on the CDSCO website:\n- %s", drug, strings.Join(result.Snippets, "\n- "))
	return models.ContextBlock{
		SourceLabel: models.SourceCDSCO,
		Text:        Truncate(text, c.maxChars),
	}, true
}
