package search

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
)

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedProvider "searches" a fixed set of RSS/Atom feeds: entries inside the
// recency window are ranked by how many query keywords they mention.
// It needs no credential.
type FeedProvider struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	now    func() time.Time
	log    *zap.Logger
}

// NewFeedProvider creates a new FeedProvider.
func NewFeedProvider(feeds []FeedConfig, log *zap.Logger) *FeedProvider {
	return &FeedProvider{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		now:    time.Now,
		log:    logging.OrNop(log),
	}
}

func (fp *FeedProvider) Name() string { return "feeds" }

// Search parses every feed and returns the best keyword matches.
// A feed that fails to parse is logged and skipped.
func (fp *FeedProvider) Search(ctx context.Context, q Query) (_ []Result, err error) {
	defer metrics.ObserveCall("feeds", time.Now(), &err)

	cutoff := fp.now().AddDate(0, 0, -q.Recency.Days())
	keywords := keywordsOf(q.Text)

	type scored struct {
		Result
		score int
		order int
	}
	var all []scored

	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fp.log.Warn("failed to parse feed", zap.String("url", fc.URL), zap.Error(err))
			continue
		}

		for _, item := range feed.Items {
			entry := parseItem(item, name)
			if entry == nil || !isWithinWindow(entry.PublishedDate, cutoff) {
				continue
			}
			s := matchScore(entry.Title+" "+entry.Content, keywords)
			if len(keywords) > 0 && s == 0 {
				continue
			}
			all = append(all, scored{Result: *entry, score: s, order: len(all)})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	limit := ClampResults(q.MaxResults)
	var results []Result
	for _, s := range all {
		if len(results) >= limit {
			break
		}
		results = append(results, s.Result)
	}

	fp.log.Debug("feed search", zap.Int("feeds", len(fp.feeds)), zap.Int("results", len(results)))
	return results, nil
}

func parseItem(item *gofeed.Item, source string) *Result {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var content string
	if item.Description != "" {
		content = stripHTML(item.Description)
	} else if item.Content != "" {
		content = stripHTML(item.Content)
	}

	return &Result{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Content:       content,
		Source:        source,
	}
}

func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true // benefit of the doubt
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff.Truncate(24 * time.Hour))
}

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "last": {}, "published": {},
	"updated": {}, "data": {}, "or": {}, "of": {}, "in": {}, "on": {},
	"day": {}, "week": {}, "month": {}, "year": {},
}

// keywordsOf splits a query into lower-cased terms, dropping stopwords and
// single characters. "Gen AI" yields "gen" and "ai".
func keywordsOf(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func matchScore(text string, keywords []string) int {
	words := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[f] = struct{}{}
	}
	n := 0
	for _, k := range keywords {
		if _, ok := words[k]; ok {
			n++
		}
	}
	return n
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'",
	).Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
