package websearch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"pharmassist-backend/models"
)

// GoogleSearcher queries the Google Custom Search JSON API
type GoogleSearcher struct {
	service *customsearch.Service
	cx      string
	domain  string
	limiter *rate.Limiter
}

// NewGoogleSearcher creates a searcher for engine cx restricted to domain
func NewGoogleSearcher(ctx context.Context, apiKey, cx, domain string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, errors.New("google search requires an API key and engine id")
	}
	if domain == "" {
		domain = DefaultDomain
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}

	return &GoogleSearcher{
		service: service,
		cx:      cx,
		domain:  domain,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}, nil
}

// Search returns up to limit results hosted under the configured domain
func (g *GoogleSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := g.service.Cse.List().
		Q(query).
		Cx(g.cx).
		Num(int64(limit)).
		SiteSearch(g.domain).
		SiteSearchFilter("i").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search failed: %w", err)
	}

	var results []models.SearchResult
	for _, item := range resp.Items {
		if len(results) == limit {
			break
		}
		if !inDomain(item.Link, g.domain) {
			continue
		}
		results = append(results, models.SearchResult{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Rank:    len(results) + 1,
		})
	}
	return results, nil
}
