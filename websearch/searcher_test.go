package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"pharmassist-backend/scraper"
)

func TestInDomain(t *testing.T) {
	assert.True(t, inDomain("https://cdsco.gov.in/opencms/", "gov.in"))
	assert.True(t, inDomain("https://gov.in/", ".gov.in"))
	assert.True(t, inDomain("https://WWW.MOHFW.GOV.IN/page", "gov.in"))
	assert.False(t, inDomain("https://notgov.in/", "gov.in"))
	assert.False(t, inDomain("https://gov.in.example.com/", "gov.in"))
	assert.False(t, inDomain("not a url", "gov.in"))
}

func TestGoogleSearcher(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"link":"https://cdsco.gov.in/schedule-h","title":"Schedule H","snippet":"Prescription drugs"},
			{"link":"https://example.com/mirror","title":"Mirror","snippet":"copy"},
			{"link":"https://mohfw.gov.in/rules","title":"Rules","snippet":"Drug rules"}
		]}`)
	}))
	defer srv.Close()

	g, err := NewGoogleSearcher(context.Background(), "key", "engine", "gov.in",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	results, err := g.Search(context.Background(), "Schedule H", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://cdsco.gov.in/schedule-h", results[0].URL)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "https://mohfw.gov.in/rules", results[1].URL)
	assert.Equal(t, 2, results[1].Rank)

	assert.Equal(t, "Schedule H", got.Get("q"))
	assert.Equal(t, "engine", got.Get("cx"))
	assert.Equal(t, "gov.in", got.Get("siteSearch"))
	assert.Equal(t, "i", got.Get("siteSearchFilter"))
	assert.Equal(t, "3", got.Get("num"))
}

func TestNewGoogleSearcher_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleSearcher(context.Background(), "", "engine", "")
	assert.Error(t, err)
}

const ddgPage = `<html><body><div id="links" class="results">
<div class="result results_links results_links_deep web-result">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fcdsco.gov.in%2Fschedule-h&amp;rut=abc">Schedule <b>H</b> drugs</a></h2>
  <a class="result__snippet" href="#">Drugs sold on prescription only.</a>
</div>
<div class="result results_links web-result">
  <h2><a class="result__a" href="https://blog.example.com/schedule-h">Blog post</a></h2>
</div>
<div class="result results_links web-result">
  <h2><a class="result__a" href="https://mohfw.gov.in/drugs">Drug rules</a></h2>
  <a class="result__snippet" href="#">Rules.</a>
</div>
<div class="result results_links web-result">
  <h2><a class="result__a" href="https://pib.gov.in/release">Press release</a></h2>
</div>
</div></body></html>`

func TestParseDuckDuckGoResults(t *testing.T) {
	results, err := parseDuckDuckGoResults(ddgPage)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "https://cdsco.gov.in/schedule-h", results[0].URL)
	assert.Equal(t, "Schedule H drugs", results[0].Title)
	assert.Equal(t, "Drugs sold on prescription only.", results[0].Snippet)
}

func TestDuckDuckGoSearcher(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		io.WriteString(w, ddgPage)
	}))
	defer srv.Close()

	d := NewDuckDuckGoSearcher(scraper.NewHTTPFetcher(), srv.URL+"/html/", "gov.in")
	results, err := d.Search(context.Background(), "Schedule H", 2)
	require.NoError(t, err)

	assert.Equal(t, "Schedule H site:gov.in", gotQuery)
	require.Len(t, results, 2)
	assert.Equal(t, "https://cdsco.gov.in/schedule-h", results[0].URL)
	assert.Equal(t, "https://mohfw.gov.in/drugs", results[1].URL)
	assert.Equal(t, 2, results[1].Rank)
}

func TestDuckDuckGoSearcher_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDuckDuckGoSearcher(scraper.NewHTTPFetcher(), srv.URL, "")
	_, err := d.Search(context.Background(), "Schedule H", 3)
	assert.Error(t, err)
}
