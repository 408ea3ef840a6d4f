package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.StageEntered("local_lookup")
	m.StageEntered("local_lookup")
	m.ContextSource("web_search")
	m.Scrape("matched")
	m.Search("found")
	m.AIRequest("plain", nil, time.Second)
	m.AIRequest("plain", errors.New("boom"), time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stages.WithLabelValues("local_lookup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contextFrom.WithLabelValues("web_search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scrapes.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequests.WithLabelValues("plain", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequests.WithLabelValues("plain", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StageEntered("x")
		m.ContextSource("x")
		m.Scrape("x")
		m.Search("x")
		m.AIRequest("x", nil, 0)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.StageEntered("web_search")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `pharmassist_pipeline_stage_total{stage="web_search"} 1`))
}
