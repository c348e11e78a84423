package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIProvider searches news articles through NewsAPI.
type NewsAPIProvider struct {
	apiKey   string
	language string
	endpoint string
	client   *http.Client
	now      func() time.Time
	log      *zap.Logger
}

// NewNewsAPIProvider creates a NewsAPI provider.
func NewNewsAPIProvider(apiKey, language string, log *zap.Logger) *NewsAPIProvider {
	if language == "" {
		language = "en"
	}
	return &NewsAPIProvider{
		apiKey:   apiKey,
		language: language,
		endpoint: newsAPIBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
		log:      logging.OrNop(log),
	}
}

// WithEndpoint overrides the /v2/everything URL.
func (p *NewsAPIProvider) WithEndpoint(u string) *NewsAPIProvider {
	p.endpoint = u
	return p
}

func (p *NewsAPIProvider) Name() string { return "newsapi" }

// Search runs one NewsAPI query. The recency window becomes the "from" date.
func (p *NewsAPIProvider) Search(ctx context.Context, q Query) (articles []Result, err error) {
	if p.apiKey == "" {
		return nil, ErrProviderUnavailable
	}
	defer metrics.ObserveCall("newsapi", time.Now(), &err)

	now := p.now()
	params := url.Values{
		"q":        {q.Text},
		"from":     {now.AddDate(0, 0, -q.Recency.Days()).Format("2006-01-02")},
		"to":       {now.Format("2006-01-02")},
		"language": {p.language},
		"pageSize": {strconv.Itoa(ClampResults(q.MaxResults))},
		"sortBy":   {"relevancy"},
	}
	if q.Topic == "news" {
		params.Set("sortBy", "publishedAt")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if err := apierr.CheckResponse("newsapi", resp); err != nil {
		return nil, err
	}

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Content     string `json:"content"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding newsapi response: %w", err)
	}
	if result.Status != "ok" {
		return nil, &apierr.UpstreamError{Service: "newsapi", StatusCode: resp.StatusCode, Body: result.Message}
	}

	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}

		// NewsAPI truncates content; the description is usually the cleaner snippet.
		content := a.Description
		if content == "" {
			content = a.Content
		}

		source := "NewsAPI"
		if a.Source.Name != "" {
			source = a.Source.Name
		}

		articles = append(articles, Result{
			Title:         strings.TrimSpace(a.Title),
			Content:       strings.TrimSpace(content),
			URL:           a.URL,
			Source:        source,
			PublishedDate: shortDate(a.PublishedAt),
		})
	}

	p.log.Debug("newsapi search", zap.String("query", q.Text), zap.Int("results", len(articles)))
	return articles, nil
}
