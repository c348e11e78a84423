package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/logging"
)

// thinSnippet is the snippet length at or below which a result is considered
// too thin to shape a topic from.
const thinSnippet = 20

const maxPageBytes = 2 << 20

// Enricher fetches pages for results whose snippet is too thin and fills
// the snippet from the page's description or readable text.
type Enricher struct {
	client *http.Client
	log    *zap.Logger
}

// NewEnricher creates an enricher with the given per-page timeout.
func NewEnricher(timeout time.Duration, log *zap.Logger) *Enricher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Enricher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		log: logging.OrNop(log),
	}
}

// Enrich updates results in place. Failed fetches leave a result unchanged;
// after the first HTTP error from a domain, that domain is skipped.
func (e *Enricher) Enrich(ctx context.Context, results []Result) int {
	failedDomains := make(map[string]struct{})
	filled := 0

	for i := range results {
		r := &results[i]
		if len([]rune(strings.TrimSpace(r.Content))) > thinSnippet || r.URL == "" {
			continue
		}

		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		domain := strings.ToLower(u.Host)
		if _, failed := failedDomains[domain]; failed {
			continue
		}

		text, err := e.fetch(ctx, u)
		if err != nil {
			failedDomains[domain] = struct{}{}
			e.log.Debug("enrich fetch failed", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		if len([]rune(text)) > thinSnippet {
			r.Content = text
			filled++
		}
	}

	if filled > 0 {
		e.log.Info("enriched thin snippets", zap.Int("filled", filled))
	}
	return filled
}

func (e *Enricher) fetch(ctx context.Context, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ContentMachine/1.0 (topic research)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	if desc := metaDescription(body); desc != "" {
		return desc, nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", nil
	}
	return strings.Join(strings.Fields(article.TextContent), " "), nil
}

// metaDescription returns the page's og:description or meta description.
func metaDescription(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		`meta[property="og:description"]`,
		`meta[name="description"]`,
		`meta[name="twitter:description"]`,
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
