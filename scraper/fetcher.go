package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pharmassist-backend/logging"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxPageBytes        = 2 << 20 // 2MB
	defaultUserAgent    = "Mozilla/5.0 (compatible; PharmAssistBot/1.0)"
)

// Fetcher retrieves the raw HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageCache stores fetched pages between requests
type PageCache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, body string)
}

// StatusError is returned when a page answers with a non-200 status
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Code)
}

// HTTPFetcher fetches pages over HTTP with a per-call timeout and a shared rate limit
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	cache     PageCache
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// FetcherOption is a functional option for HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithFetchTimeout sets the timeout applied to each fetch
func WithFetchTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithRateLimit limits outgoing requests to perSecond with the given burst
func WithRateLimit(perSecond float64, burst int) FetcherOption {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithPageCache sets the page cache
func WithPageCache(cache PageCache) FetcherOption {
	return func(f *HTTPFetcher) {
		f.cache = cache
	}
}

// WithFetcherLogger sets the logger
func WithFetcherLogger(logger *zap.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a new HTTP fetcher
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{},
		timeout:   defaultFetchTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrNop(f.logger)
	return f
}

// Fetch returns the body of url. The call is bounded by the fetcher timeout
// regardless of the caller's deadline.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}

	if f.cache != nil {
		if body, ok := f.cache.Get(ctx, url); ok {
			f.logger.Debug("page cache hit", zap.String("url", url))
			return body, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}

	page := string(body)
	if f.cache != nil {
		f.cache.Set(ctx, url, page)
	}
	return page, nil
}
