package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
)

const tavilyBaseURL = "https://api.tavily.com"

// TavilyProvider searches the web through the Tavily search API.
type TavilyProvider struct {
	apiKey  string
	depth   string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewTavilyProvider creates a Tavily provider. An empty apiKey leaves the
// provider unconfigured; Search then fails with ErrProviderUnavailable.
func NewTavilyProvider(apiKey, depth string, log *zap.Logger) *TavilyProvider {
	if depth == "" {
		depth = "basic"
	}
	return &TavilyProvider{
		apiKey:  apiKey,
		depth:   depth,
		baseURL: tavilyBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logging.OrNop(log),
	}
}

// WithBaseURL points the provider at another endpoint (tests, proxies).
func (p *TavilyProvider) WithBaseURL(u string) *TavilyProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

func (p *TavilyProvider) Name() string { return "tavily" }

// Search runs one Tavily query.
func (p *TavilyProvider) Search(ctx context.Context, q Query) (results []Result, err error) {
	if p.apiKey == "" {
		return nil, ErrProviderUnavailable
	}
	defer metrics.ObserveCall("tavily", time.Now(), &err)

	topic := q.Topic
	if topic == "" {
		topic = "general"
	}
	body := map[string]any{
		"query":        q.Text,
		"search_depth": p.depth,
		"topic":        topic,
		"time_range":   string(q.Recency),
		"max_results":  ClampResults(q.MaxResults),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if err := apierr.CheckResponse("tavily", resp); err != nil {
		return nil, err
	}

	var result struct {
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Content       string  `json:"content"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"published_date"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding tavily response: %w", err)
	}

	for _, r := range result.Results {
		results = append(results, Result{
			Title:         strings.TrimSpace(r.Title),
			Content:       strings.TrimSpace(r.Content),
			URL:           strings.TrimSpace(r.URL),
			Source:        "tavily",
			PublishedDate: shortDate(r.PublishedDate),
		})
	}

	p.log.Debug("tavily search", zap.String("query", q.Text), zap.String("topic", topic), zap.Int("results", len(results)))
	return results, nil
}

// shortDate reduces an RFC 3339 / RFC 1123 timestamp to YYYY-MM-DD.
func shortDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
