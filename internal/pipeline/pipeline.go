package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/config"
	"github.com/TobiSchelling/ContentMachine/internal/content"
	"github.com/TobiSchelling/ContentMachine/internal/database"
	"github.com/TobiSchelling/ContentMachine/internal/imagegen"
	"github.com/TobiSchelling/ContentMachine/internal/llm"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/search"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// MaxTopics bounds the requested topic count.
const MaxTopics = 20

// ErrTopicNotFound is returned when a selected index is not in the stored list.
var ErrTopicNotFound = errors.New("topic not found")

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a topic search run.
type Result struct {
	RunID    string
	Niche    string
	Recency  search.Recency
	Count    int
	Steps    []StepResult
	Topics   []topics.Topic
	Outcome  topics.Outcome
	Location string
}

// PostResult is a generated and recorded post.
type PostResult struct {
	ID      int64
	Topic   string
	Persona string
	Body    string
}

// ImageResult is a generated image pending approval.
type ImageResult struct {
	ID   int64
	Path string
}

// Deps are the collaborators a pipeline runs on. Nil Text or Image
// providers mean the capability is not configured.
type Deps struct {
	Search search.Provider
	Text   llm.Provider
	Image  imagegen.Provider
	Store  store.Store
	DB     *database.DB
}

// Pipeline runs topic searches and per-topic generation.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	store  store.Store
	merger *search.Merger
	shaper *topics.Shaper
	writer *content.Generator
	images *imagegen.Generator
	log    *zap.Logger
}

// New creates a pipeline with providers and store built from cfg.
func New(ctx context.Context, cfg *config.Config, db *database.DB, log *zap.Logger) (*Pipeline, error) {
	log = logging.OrNop(log)

	st, err := OpenStore(ctx, cfg, db, log)
	if err != nil {
		return nil, err
	}

	imageProvider, err := imagegen.NewProvider(ctx, imagegen.Settings{
		Provider:    cfg.Image.Provider,
		Model:       cfg.Image.Model,
		APIKey:      cfg.Credentials.Image,
		AspectRatio: cfg.Image.AspectRatio,
		Size:        cfg.Image.Size,
		Quality:     cfg.Image.Quality,
	}, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	return NewWithDeps(cfg, Deps{
		Search: NewSearchProvider(cfg, log),
		Text:   NewTextProvider(cfg, log),
		Image:  imageProvider,
		Store:  st,
		DB:     db,
	}, log)
}

// NewWithDeps creates a pipeline on explicit collaborators.
func NewWithDeps(cfg *config.Config, deps Deps, log *zap.Logger) (*Pipeline, error) {
	log = logging.OrNop(log)

	merger := search.NewMerger(deps.Search, cfg.Topics.Focus, cfg.Topics.Widen, log)
	if cfg.Search.EnrichSnippets {
		merger = merger.WithEnricher(search.NewEnricher(15*time.Second, log))
	}

	writer, err := content.NewGenerator(deps.Text, content.Options{
		Persona:     cfg.Content.Persona,
		MaxTokens:   cfg.Content.MaxTokens,
		Temperature: cfg.Content.Temperature,
	}, log)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:    cfg,
		db:     deps.DB,
		store:  deps.Store,
		merger: merger,
		shaper: topics.NewShaper(deps.Text, topics.Options{
			MaxTokens:   cfg.Topics.MaxTokens,
			Temperature: cfg.Topics.Temperature,
		}, log),
		writer: writer,
		images: imagegen.NewGenerator(deps.Image, imagegen.Options{
			OutputDir: cfg.GetOutputDir(),
			Style:     cfg.Image.Style,
			Templates: cfg.Image.Templates,
		}, log),
		log: log,
	}, nil
}

// Close releases the topic store.
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// ClampCount bounds n to 1..MaxTopics; zero selects def.
func ClampCount(n, def int) int {
	if n == 0 {
		n = def
	}
	if n < 1 {
		return 1
	}
	if n > MaxTopics {
		return MaxTopics
	}
	return n
}

// SearchTopics searches, shapes and saves a new topic list, replacing the
// stored one, and records the run. Search and save failures are returned;
// shaping never fails.
func (p *Pipeline) SearchTopics(ctx context.Context, niche string, count int, recency string) (*Result, error) {
	if strings.TrimSpace(niche) == "" {
		niche = p.cfg.Topics.Niche
	}
	if recency == "" {
		recency = p.cfg.Topics.Recency
	}
	r := &Result{
		RunID:   uuid.NewString(),
		Niche:   strings.TrimSpace(niche),
		Recency: search.ParseRecency(recency),
		Count:   ClampCount(count, p.cfg.Topics.Count),
	}
	log := p.log.With(zap.String("run", r.RunID))

	// Step 1: Search
	log.Info("step 1/4: searching", zap.String("niche", r.Niche), zap.Int("count", r.Count), zap.String("recency", string(r.Recency)))
	results, stats, err := p.merger.Merge(ctx, r.Niche, r.Count, r.Recency)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Search", Err: err})
		return r, fmt.Errorf("searching topics: %w", err)
	}
	summary := fmt.Sprintf("Found %d results (%d primary", len(results), stats.Primary)
	if stats.SecondaryRan {
		summary += fmt.Sprintf(", %d new from widened query", stats.Added)
	}
	summary += ")"
	r.Steps = append(r.Steps, StepResult{Name: "Search", Summary: summary, Err: stats.SecondaryError})

	// Step 2: Shape
	log.Info("step 2/4: shaping topics")
	list, outcome := p.shaper.Shape(ctx, results, topics.Request{Niche: r.Niche, Count: r.Count, Recency: r.Recency})
	r.Topics, r.Outcome = list, outcome
	summary = fmt.Sprintf("Shaped %d topics via %s", len(list), outcome.Path)
	if outcome.Reason != "" {
		summary += " (" + outcome.Reason + ")"
	}
	r.Steps = append(r.Steps, StepResult{Name: "Shape", Summary: summary, Err: outcome.Err})

	// Step 3: Save
	log.Info("step 3/4: saving topics")
	loc, err := p.store.Save(ctx, list)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Save", Err: err})
		return r, fmt.Errorf("saving topics: %w", err)
	}
	r.Location = loc
	r.Steps = append(r.Steps, StepResult{Name: "Save", Summary: "Saved to " + loc})

	// Step 4: Record
	log.Info("step 4/4: recording run")
	r.Steps = append(r.Steps, p.recordRun(r, len(results)))

	return r, nil
}

func (p *Pipeline) recordRun(r *Result, resultCount int) StepResult {
	run := database.SearchRun{
		ID:             r.RunID,
		Niche:          r.Niche,
		Recency:        string(r.Recency),
		RequestedCount: r.Count,
		ResultCount:    resultCount,
		TopicCount:     len(r.Topics),
		Path:           r.Outcome.Path,
		Location:       &r.Location,
	}
	if r.Outcome.Reason != "" {
		run.FallbackReason = &r.Outcome.Reason
	}
	if err := p.db.InsertSearchRun(run); err != nil {
		p.log.Warn("recording search run failed", zap.Error(err))
		return StepResult{Name: "Record", Err: err}
	}
	return StepResult{Name: "Record", Summary: "Recorded run " + r.RunID}
}

// LoadTopics returns the stored topic list.
func (p *Pipeline) LoadTopics(ctx context.Context) ([]topics.Topic, error) {
	list, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading topics: %w", err)
	}
	return list, nil
}

// SelectTopic returns the stored topic with the given index.
func (p *Pipeline) SelectTopic(ctx context.Context, index int) (*topics.Topic, error) {
	list, err := p.LoadTopics(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Index == index {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrTopicNotFound, index)
}

// GeneratePost writes a post for topic and records it.
func (p *Pipeline) GeneratePost(ctx context.Context, topic, extra string) (*PostResult, error) {
	body, err := p.writer.Generate(ctx, topic, extra)
	if err != nil {
		return nil, err
	}

	res := &PostResult{Topic: topic, Persona: p.writer.Persona(), Body: body}
	var extraPtr *string
	if extra = strings.TrimSpace(extra); extra != "" {
		extraPtr = &extra
	}
	id, err := p.db.InsertPost(topic, res.Persona, extraPtr, body)
	if err != nil {
		p.log.Warn("recording post failed", zap.Error(err))
	} else {
		res.ID = id
	}
	return res, nil
}

// GenerateImage generates an image and records it as pending approval.
// Each call produces a new image; regenerating never overwrites.
func (p *Pipeline) GenerateImage(ctx context.Context, req imagegen.Request) (*ImageResult, error) {
	path, err := p.images.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &ImageResult{Path: path}
	id, err := p.db.InsertImage(req.Topic, path, optional(req.Template), optional(req.Headline))
	if err != nil {
		p.log.Warn("recording image failed", zap.Error(err))
	} else {
		res.ID = id
	}
	return res, nil
}

// ApproveImage marks a generated image approved.
func (p *Pipeline) ApproveImage(id int64) error {
	if err := p.db.ApproveImage(id); err != nil {
		return fmt.Errorf("approving image: %w", err)
	}
	p.log.Info("image approved", zap.Int64("id", id))
	return nil
}

// Image returns a recorded image, or nil.
func (p *Pipeline) Image(id int64) (*database.Image, error) {
	return p.db.GetImage(id)
}

// History returns the recorded posts and images for a topic.
func (p *Pipeline) History(topic string) ([]database.Post, []database.Image, error) {
	posts, err := p.db.GetPostsForTopic(topic)
	if err != nil {
		return nil, nil, err
	}
	images, err := p.db.GetImagesForTopic(topic)
	if err != nil {
		return nil, nil, err
	}
	return posts, images, nil
}

// RecentRuns returns the newest search runs.
func (p *Pipeline) RecentRuns(limit int) ([]database.SearchRun, error) {
	return p.db.GetRecentRuns(limit)
}

// ImageTemplates returns the configured layout template names.
func (p *Pipeline) ImageTemplates() map[string]string {
	return p.cfg.Image.Templates
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// SearchDefaults are the configured inputs for a topic search.
type SearchDefaults struct {
	Niche   string
	Count   int
	Recency search.Recency
}

// Defaults returns the configured search inputs.
func (p *Pipeline) Defaults() SearchDefaults {
	return SearchDefaults{
		Niche:   p.cfg.Topics.Niche,
		Count:   ClampCount(p.cfg.Topics.Count, 10),
		Recency: search.ParseRecency(p.cfg.Topics.Recency),
	}
}
