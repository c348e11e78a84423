package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
)

func TestParseRecency(t *testing.T) {
	assert.Equal(t, Week, ParseRecency("week"))
	assert.Equal(t, Day, ParseRecency(" DAY "))
	assert.Equal(t, Year, ParseRecency("year"))
	assert.Equal(t, Month, ParseRecency("fortnight"))
	assert.Equal(t, Month, ParseRecency(""))
	assert.Equal(t, 7, Week.Days())
}

func TestClampResults(t *testing.T) {
	assert.Equal(t, 1, ClampResults(0))
	assert.Equal(t, 15, ClampResults(15))
	assert.Equal(t, 20, ClampResults(25))
}

func TestDedupKey(t *testing.T) {
	a := Result{Title: "A", URL: "https://www.Example.com/post/#comments"}
	b := Result{Title: "B", URL: "https://example.com/post"}
	assert.Equal(t, DedupKey(a), DedupKey(b))

	upper := Result{Title: "C", URL: "https://example.com/Post"}
	assert.NotEqual(t, DedupKey(b), DedupKey(upper))
	query := Result{Title: "D", URL: "HTTPS://EXAMPLE.com/p?id=AbC"}
	assert.Equal(t, "https://example.com/p?id=AbC", DedupKey(query))

	noURL := Result{Title: "  Some Title "}
	assert.Equal(t, "some title", DedupKey(noURL))
}

func TestTavilySearch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		fmt.Fprint(w, `{"results":[
			{"title":" Skills shift ","url":"https://a.com/1","content":"Half of workers need reskilling by 2027.","published_date":"2026-10-01T08:00:00Z"},
			{"title":"Agents at work","url":"https://b.com/2","content":"Agentic AI moves into operations."}
		]}`)
	}))
	defer srv.Close()

	p := NewTavilyProvider("tvly-test", "", nil).WithBaseURL(srv.URL)
	results, err := p.Search(context.Background(), Query{Text: "ai", Recency: Week, MaxResults: 50, Topic: "news"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Skills shift", results[0].Title)
	assert.Equal(t, "2026-10-01", results[0].PublishedDate)
	assert.Equal(t, "tavily", results[1].Source)

	assert.Equal(t, "week", got["time_range"])
	assert.Equal(t, "news", got["topic"])
	assert.Equal(t, "basic", got["search_depth"])
	assert.Equal(t, float64(MaxResultsCap), got["max_results"])
}

func TestTavilyWithoutKey(t *testing.T) {
	_, err := NewTavilyProvider("", "basic", nil).Search(context.Background(), Query{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, apierr.ErrCredentialMissing)
}

func TestTavilyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTavilyProvider("bad", "", nil).WithBaseURL(srv.URL).Search(context.Background(), Query{Text: "x"})
	var ue *apierr.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.Contains(t, ue.Body, "invalid key")
}

func TestNewsAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "news-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2026-10-12", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-10-19", r.URL.Query().Get("to"))
		fmt.Fprint(w, `{"status":"ok","articles":[
			{"url":"https://a.com","title":"Chip design goes agentic","description":"EDA vendors ship agents.","source":{"name":"Wire"},"publishedAt":"2026-10-18T10:00:00Z"},
			{"url":"https://removed.com","title":"[Removed]"},
			{"url":"","title":"No URL"}
		]}`)
	}))
	defer srv.Close()

	p := NewNewsAPIProvider("news-key", "", nil).WithEndpoint(srv.URL)
	p.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

	results, err := p.Search(context.Background(), Query{Text: "vlsi", Recency: Week, MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Chip design goes agentic", results[0].Title)
	assert.Equal(t, "EDA vendors ship agents.", results[0].Content)
	assert.Equal(t, "Wire", results[0].Source)
	assert.Equal(t, "2026-10-18", results[0].PublishedDate)
}

func TestNewsAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","message":"rate limited"}`)
	}))
	defer srv.Close()

	_, err := NewNewsAPIProvider("k", "en", nil).WithEndpoint(srv.URL).Search(context.Background(), Query{Text: "x"})
	assert.True(t, apierr.IsUpstream(err))
}

const testRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test</title>
<item><title>Agentic AI reshapes IT services</title><link>https://feed.example/1</link>
<description>&lt;p&gt;Services firms retool around &lt;b&gt;agentic AI&lt;/b&gt;.&lt;/p&gt;</description>
<pubDate>Sun, 18 Oct 2026 09:00:00 GMT</pubDate></item>
<item><title>Gardening tips</title><link>https://feed.example/2</link>
<description>Tomatoes in autumn.</description><pubDate>Sun, 18 Oct 2026 09:00:00 GMT</pubDate></item>
<item><title>Old AI news</title><link>https://feed.example/3</link>
<description>AI from long ago.</description><pubDate>Mon, 01 Jan 2024 09:00:00 GMT</pubDate></item>
</channel></rss>`

func TestFeedProviderFiltersByKeywordAndWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	p := NewFeedProvider([]FeedConfig{{URL: srv.URL + "/feed"}, {URL: srv.URL + "/feed2"}}, nil)
	p.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	results, err := p.Search(context.Background(), Query{Text: "Agentic AI published last week", Recency: Week, MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Agentic AI reshapes IT services", results[0].Title)
	assert.Equal(t, "Services firms retool around agentic AI .", results[0].Content)
	assert.Equal(t, "2026-10-18", results[0].PublishedDate)
}

func TestKeywordsOf(t *testing.T) {
	assert.Equal(t, []string{"ai", "gen", "vlsi"}, keywordsOf("AI, Gen AI, VLSI published last week"))
}

func TestExtractSourceName(t *testing.T) {
	assert.Equal(t, "Technologyreview", extractSourceName("https://www.technologyreview.com/feed/"))
	assert.Equal(t, "Example", extractSourceName("https://feeds.example.org/rss"))
}

func TestEnricherFillsThinSnippets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meta":
			fmt.Fprint(w, `<html><head><meta property="og:description" content="Workforce data shows a skills gap widening across sectors."></head><body></body></html>`)
		case "/gone":
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	results := []Result{
		{Title: "Has snippet", URL: srv.URL + "/gone", Content: "This snippet is already long enough to keep."},
		{Title: "Thin", URL: srv.URL + "/meta", Content: "short"},
		{Title: "Missing", URL: srv.URL + "/gone"},
	}

	filled := NewEnricher(time.Second, nil).Enrich(context.Background(), results)
	assert.Equal(t, 1, filled)
	assert.Equal(t, "Workforce data shows a skills gap widening across sectors.", results[1].Content)
	assert.Equal(t, "This snippet is already long enough to keep.", results[0].Content)
	assert.Empty(t, results[2].Content)
}
