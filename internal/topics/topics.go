// Package topics turns merged search results into a numbered topic list,
// either through one structuring call to a text model or through a
// deterministic mapping of the raw results.
package topics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/llm"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
	"github.com/TobiSchelling/ContentMachine/internal/search"
)

// Field caps, in characters.
const (
	MaxTitle   = 200
	MaxReason  = 300
	MaxSummary = 300

	maxContextBlocks = 20
	maxSnippet       = 400
	minSnippet       = 20
	minTitle         = 3
	blockSeparator   = "\n\n---\n\n"
)

// Shaping paths.
const (
	PathLLM      = "llm"
	PathFallback = "fallback"
)

// ErrParseFailure means the model output could not be turned into topics.
var ErrParseFailure = errors.New("unstructurable topic response")

// Topic is one candidate post subject.
type Topic struct {
	Index   int    `json:"index" bson:"index"`
	Title   string `json:"title" bson:"title"`
	Reason  string `json:"reason" bson:"reason"`
	Summary string `json:"summary" bson:"summary"`
}

// Outcome records which path produced a list and, for the fallback, why.
type Outcome struct {
	Path   string
	Reason string
	Err    error
}

// UsedFallback reports whether the deterministic mapping produced the list.
func (o Outcome) UsedFallback() bool { return o.Path == PathFallback }

// Request describes the list to produce.
type Request struct {
	Niche   string
	Count   int
	Recency search.Recency
}

// Options tunes the structuring call.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// Shaper structures search results into topics.
type Shaper struct {
	provider llm.Provider
	opts     Options
	log      *zap.Logger
}

// NewShaper creates a shaper. A nil provider means every call uses the fallback.
// Temperature is passed through as given; zero is a valid setting.
func NewShaper(provider llm.Provider, opts Options, log *zap.Logger) *Shaper {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2048
	}
	return &Shaper{provider: provider, opts: opts, log: logging.OrNop(log)}
}

// Shape returns at most req.Count topics. Model and parse failures are never
// returned; they are recorded in the Outcome and the fallback list is used.
func (s *Shaper) Shape(ctx context.Context, results []search.Result, req Request) ([]Topic, Outcome) {
	topics, out := s.shape(ctx, results, req)
	metrics.RecordShaping(out.Path)

	fields := []zap.Field{zap.String("path", out.Path), zap.Int("topics", len(topics))}
	if out.Reason != "" {
		fields = append(fields, zap.String("reason", out.Reason))
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}
	s.log.Info("shaped topics", fields...)
	return topics, out
}

func (s *Shaper) shape(ctx context.Context, results []search.Result, req Request) ([]Topic, Outcome) {
	if s.provider == nil {
		return Fallback(results, req), Outcome{Path: PathFallback, Reason: "no text provider"}
	}

	raw := BuildContext(results)
	if raw == "" {
		return Fallback(results, req), Outcome{Path: PathFallback, Reason: "empty context"}
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      strategistSystem,
		Prompt:      fmt.Sprintf(userTemplate, req.Count, req.Recency, raw),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return Fallback(results, req), Outcome{Path: PathFallback, Reason: "model call failed", Err: err}
	}

	topics, err := ParseTopics(resp, req.Count)
	if err != nil {
		s.log.Debug("unparseable model output", zap.String("response", truncate(resp, 500)))
		return Fallback(results, req), Outcome{Path: PathFallback, Reason: "unparseable response", Err: err}
	}
	return topics, Outcome{Path: PathLLM}
}

// BuildContext renders up to 20 usable results as Title/Snippet blocks.
// Results with no title or a snippet of 20 characters or fewer are skipped.
func BuildContext(results []search.Result) string {
	var blocks []string
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		snippet := strings.TrimSpace(r.Content)
		if title == "" || runeLen(snippet) <= minSnippet {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Title: %s\nSnippet: %s", title, truncate(snippet, maxSnippet)))
		if len(blocks) == maxContextBlocks {
			break
		}
	}
	return strings.Join(blocks, blockSeparator)
}

// ParseTopics structures a raw model response. The response must be a
// non-empty JSON array, optionally wrapped in a markdown code fence. Object
// elements map field by field; any other element becomes a title. Titles
// that are empty or repeat (case-insensitively) are dropped, the first
// count are kept and indexed from 1. Every failure wraps ErrParseFailure.
func ParseTopics(raw string, count int) ([]Topic, error) {
	arr, err := llm.ParseJSONArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	seen := make(map[string]struct{})
	var topics []Topic
	for _, el := range arr {
		var t Topic
		if obj, ok := el.(map[string]any); ok {
			title, ok := obj["title"]
			if !ok {
				title = obj
			}
			t.Title = truncate(stringify(title), MaxTitle)
			t.Reason = truncate(stringify(obj["reason"]), MaxReason)
			t.Summary = truncate(stringify(obj["summary"]), MaxSummary)
		} else {
			t.Title = truncate(stringify(el), MaxTitle)
		}

		key := strings.ToLower(t.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		topics = append(topics, t)
		if count > 0 && len(topics) == count {
			break
		}
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no usable titles", ErrParseFailure)
	}
	return reindex(topics), nil
}

// Fallback maps raw results to topics without any model call.
func Fallback(results []search.Result, req Request) []Topic {
	reason := fmt.Sprintf("Recent (%s) from web search; %s focus.", req.Recency, req.Niche)

	seen := make(map[string]struct{})
	var topics []Topic
	for _, r := range results {
		if req.Count > 0 && len(topics) >= req.Count {
			break
		}
		title := truncate(strings.TrimSpace(r.Title), MaxTitle)
		key := strings.ToLower(title)
		if runeLen(title) < minTitle {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		summary := strings.TrimSpace(r.Content)
		if runeLen(summary) > MaxSummary {
			summary = truncate(summary, MaxSummary) + "…"
		}
		topics = append(topics, Topic{
			Title:   title,
			Reason:  reason,
			Summary: summary,
		})
	}
	return reindex(topics)
}

func reindex(topics []Topic) []Topic {
	for i := range topics {
		topics[i].Index = i + 1
	}
	return topics
}

// stringify renders a decoded JSON value as text; null becomes "".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func runeLen(s string) int { return len([]rune(s)) }
