package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/logging"
)

// Merger runs a primary query and, when it comes back short, a wider
// secondary query, then merges the two without duplicates.
type Merger struct {
	provider Provider
	focus    string
	widen    string
	enricher *Enricher
	log      *zap.Logger
}

// MergeStats describes how a merged list was assembled.
type MergeStats struct {
	Primary        int
	Secondary      int
	Added          int
	SecondaryRan   bool
	SecondaryError error
}

// NewMerger creates a Merger. focus is prepended to the primary query and
// widen is added to the secondary one.
func NewMerger(provider Provider, focus, widen string, log *zap.Logger) *Merger {
	return &Merger{
		provider: provider,
		focus:    strings.TrimSpace(focus),
		widen:    strings.TrimSpace(widen),
		log:      logging.OrNop(log),
	}
}

// WithEnricher fills thin snippets after merging.
func (m *Merger) WithEnricher(e *Enricher) *Merger {
	m.enricher = e
	return m
}

// PrimaryQuery builds the query text that embeds niche and recency.
func (m *Merger) PrimaryQuery(niche string, recency Recency) string {
	return joinNonEmpty(m.focus, niche, "published last "+string(recency))
}

// SecondaryQuery builds the widening query text.
func (m *Merger) SecondaryQuery(niche string, recency Recency) string {
	return joinNonEmpty("trends and data", niche, m.widen, "published or updated last "+string(recency))
}

// Merge returns primary results followed by unseen secondary results.
// A primary failure is returned; a secondary failure is logged and dropped.
func (m *Merger) Merge(ctx context.Context, niche string, count int, recency Recency) ([]Result, MergeStats, error) {
	var stats MergeStats
	maxResults := ClampResults(count + 5)

	primary, err := m.provider.Search(ctx, Query{
		Text:       m.PrimaryQuery(niche, recency),
		Recency:    recency,
		MaxResults: maxResults,
		Topic:      "general",
	})
	if err != nil {
		return nil, stats, fmt.Errorf("primary search: %w", err)
	}
	stats.Primary = len(primary)

	results := append([]Result(nil), primary...)

	if len(primary) < count {
		stats.SecondaryRan = true
		secondary, err := m.provider.Search(ctx, Query{
			Text:       m.SecondaryQuery(niche, recency),
			Recency:    recency,
			MaxResults: maxResults,
			Topic:      "news",
		})
		if err != nil {
			stats.SecondaryError = err
			m.log.Warn("secondary search failed, using primary results only",
				zap.String("provider", m.provider.Name()), zap.Error(err))
		} else {
			stats.Secondary = len(secondary)
			results, stats.Added = appendUnseen(results, secondary)
		}
	}

	if m.enricher != nil {
		m.enricher.Enrich(ctx, results)
	}

	m.log.Info("search merged",
		zap.String("provider", m.provider.Name()),
		zap.Int("primary", stats.Primary),
		zap.Int("secondary", stats.Secondary),
		zap.Int("merged", len(results)))
	return results, stats, nil
}

// appendUnseen appends each of extra whose DedupKey is not already in base.
func appendUnseen(base, extra []Result) ([]Result, int) {
	seen := make(map[string]struct{}, len(base))
	for _, r := range base {
		seen[DedupKey(r)] = struct{}{}
	}
	added := 0
	for _, r := range extra {
		key := DedupKey(r)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		base = append(base, r)
		added++
	}
	return base, added
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
