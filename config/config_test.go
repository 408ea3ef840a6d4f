package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "APP_ENV", "GEMINI_MODEL", "REGULATION_INDEX", "SEARCH_DOMAIN", "SEARCH_TOP_K",
		"SCRAPE_TIMEOUT", "SCRAPE_MAX_CHARS", "SCRAPE_CONCURRENCY", "FETCH_RATE_PER_SEC",
		"AI_MAX_TOOL_ITERATIONS", "PAGE_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, IndexPostgres, cfg.RegulationIndex)
	assert.Equal(t, "gov.in", cfg.SearchDomain)
	assert.Equal(t, 3, cfg.SearchTopK)
	assert.Equal(t, 10*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 2000, cfg.ScrapeMaxChars)
	assert.Equal(t, 3, cfg.ScrapeConcurrency)
	assert.Equal(t, 5, cfg.AIMaxToolIterations)
	assert.Equal(t, 15*time.Minute, cfg.PageCacheTTL)
	assert.False(t, cfg.Development())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SEARCH_TOP_K", "5")
	t.Setenv("SCRAPE_TIMEOUT", "3s")
	t.Setenv("SCRAPE_CONCURRENCY", "10")
	t.Setenv("REGULATION_INDEX", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Development())
	assert.Equal(t, 5, cfg.SearchTopK)
	assert.Equal(t, 3*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 3, cfg.ScrapeConcurrency, "concurrency is capped at 3")
	assert.Equal(t, IndexMemory, cfg.RegulationIndex)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SEARCH_TOP_K", "three"},
		{"SCRAPE_TIMEOUT", "ten seconds"},
		{"FETCH_RATE_PER_SEC", "fast"},
		{"REGULATION_INDEX", "mongo"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
