// Package websearch runs domain-restricted web searches and scrapes the
// result pages into labelled context blocks.
package websearch

import (
	"context"
	"net/url"
	"strings"

	"pharmassist-backend/models"
)

// DefaultDomain restricts searches to Indian government sites
const DefaultDomain = "gov.in"

// Searcher returns ranked result pages for a query
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// inDomain reports whether rawURL is hosted on domain or one of its subdomains
func inDomain(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	return host == domain || strings.HasSuffix(host, "."+domain)
}
