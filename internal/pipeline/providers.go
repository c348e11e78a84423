package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/config"
	"github.com/TobiSchelling/ContentMachine/internal/database"
	"github.com/TobiSchelling/ContentMachine/internal/llm"
	"github.com/TobiSchelling/ContentMachine/internal/search"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/store/csvstore"
	"github.com/TobiSchelling/ContentMachine/internal/store/mongostore"
	"github.com/TobiSchelling/ContentMachine/internal/store/pgstore"
	"github.com/TobiSchelling/ContentMachine/internal/store/sqlitestore"
	"github.com/TobiSchelling/ContentMachine/internal/store/xlsxstore"
)

// NewSearchProvider returns the configured search provider. Providers with
// a missing credential are still returned; they fail per call.
func NewSearchProvider(cfg *config.Config, log *zap.Logger) search.Provider {
	switch strings.ToLower(cfg.Search.Provider) {
	case "newsapi":
		return search.NewNewsAPIProvider(cfg.Credentials.NewsAPI, cfg.Search.NewsAPI.Language, log)
	case "feeds", "rss":
		feeds := make([]search.FeedConfig, len(cfg.Search.Feeds))
		for i, f := range cfg.Search.Feeds {
			feeds[i] = search.FeedConfig{URL: f.URL, Name: f.Name}
		}
		return search.NewFeedProvider(feeds, log)
	default:
		return search.NewTavilyProvider(cfg.Credentials.Search, cfg.Search.Depth, log)
	}
}

// NewTextProvider returns the configured text provider, or nil.
func NewTextProvider(cfg *config.Config, log *zap.Logger) llm.Provider {
	return llm.CreateProvider(llm.Settings{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.Credentials.LLM,
		OpenAIModel: cfg.LLM.OpenAIModel,
		OpenAIKey:   cfg.Credentials.OpenAI,
		OllamaURL:   cfg.LLM.OllamaURL,
		OllamaModel: cfg.LLM.OllamaModel,
	}, log)
}

// OpenStore returns the topic store selected by storage.backend.
func OpenStore(ctx context.Context, cfg *config.Config, db *database.DB, log *zap.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "", "xlsx", "excel":
		return xlsxstore.New(cfg.GetDataDir(), log), nil
	case "csv":
		return csvstore.New(cfg.GetDataDir(), log), nil
	case "sqlite":
		if db == nil {
			return sqlitestore.Open(filepath.Join(cfg.GetDataDir(), database.FileName), log)
		}
		return sqlitestore.New(db), nil
	case "postgres":
		return pgstore.New(ctx, cfg.Credentials.PostgresDSN)
	case "mongo":
		return mongostore.New(ctx, cfg.Credentials.MongoURI, cfg.Storage.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
