package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"pharmassist-backend/models"
	"pharmassist-backend/scraper"
)

// DuckDuckGoEndpoint is the HTML search interface, which needs no API key
const DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearcher searches through the DuckDuckGo HTML interface with a
// site: restriction and drops any result outside the domain.
type DuckDuckGoSearcher struct {
	fetcher  scraper.Fetcher
	endpoint string
	domain   string
}

// NewDuckDuckGoSearcher creates a searcher. Empty endpoint and domain select
// the defaults.
func NewDuckDuckGoSearcher(fetcher scraper.Fetcher, endpoint, domain string) *DuckDuckGoSearcher {
	if endpoint == "" {
		endpoint = DuckDuckGoEndpoint
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return &DuckDuckGoSearcher{fetcher: fetcher, endpoint: endpoint, domain: domain}
}

// Search returns up to limit results hosted under the configured domain
func (d *DuckDuckGoSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	q := fmt.Sprintf("%s site:%s", query, d.domain)
	page, err := d.fetcher.Fetch(ctx, d.endpoint+"?q="+url.QueryEscape(q))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search failed: %w", err)
	}

	parsed, err := parseDuckDuckGoResults(page)
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	for _, r := range parsed {
		if len(results) == limit {
			break
		}
		if !inDomain(r.URL, d.domain) {
			continue
		}
		r.Rank = len(results) + 1
		results = append(results, r)
	}
	return results, nil
}

func parseDuckDuckGoResults(page string) ([]models.SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []models.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && classContains(n, "result") {
			if r := extractResult(n); r.URL != "" && r.Title != "" {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) models.SearchResult {
	var result models.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case classContains(n, "result__a"):
				result.URL = resolveRedirect(attr(n, "href"))
				result.Title = scraper.TextContent(n)
			case classContains(n, "result__snippet"):
				result.Snippet = scraper.TextContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return result
}

// resolveRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg= links
func resolveRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func classContains(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
