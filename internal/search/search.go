// Package search queries web-search capabilities and merges their results.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
)

// MaxResultsCap is the largest result count any provider is asked for.
const MaxResultsCap = 20

// ErrProviderUnavailable is returned when the search credential is not configured.
var ErrProviderUnavailable = fmt.Errorf("search provider unavailable: %w", apierr.ErrCredentialMissing)

// Recency is a coarse publish-date window.
type Recency string

const (
	Day   Recency = "day"
	Week  Recency = "week"
	Month Recency = "month"
	Year  Recency = "year"
)

// ParseRecency maps a user-supplied window onto a Recency, defaulting to Month.
func ParseRecency(s string) Recency {
	switch r := Recency(strings.ToLower(strings.TrimSpace(s))); r {
	case Day, Week, Month, Year:
		return r
	default:
		return Month
	}
}

// Days returns the length of the window in days.
func (r Recency) Days() int {
	switch r {
	case Day:
		return 1
	case Week:
		return 7
	case Year:
		return 365
	default:
		return 30
	}
}

// Result is one ranked search hit, normalized from any provider's response.
type Result struct {
	Title         string
	Content       string
	URL           string
	Source        string
	PublishedDate string // YYYY-MM-DD or empty
}

// Query is a single keyword search.
type Query struct {
	Text       string
	Recency    Recency
	MaxResults int
	// Topic is a provider hint: "general" or "news".
	Topic string
}

// Provider is a web-search capability.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// ClampResults bounds n to 1..MaxResultsCap.
func ClampResults(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxResultsCap {
		return MaxResultsCap
	}
	return n
}

// DedupKey returns the normalized URL of r, or its lower-cased title when
// the URL is empty.
func DedupKey(r Result) string {
	if key := normalizeURL(r.URL); key != "" {
		return key
	}
	return strings.ToLower(strings.TrimSpace(r.Title))
}

// normalizeURL folds case in the scheme and host only; paths and queries
// are case-sensitive.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Scheme = strings.ToLower(u.Scheme)
	return strings.TrimRight(u.String(), "/")
}
