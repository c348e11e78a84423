// Package sqlitestore keeps the topic list in the history database.
package sqlitestore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/database"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

var _ store.Store = (*Store)(nil)

// Store writes topics to the trending_topics table of a database.DB.
type Store struct {
	mu    sync.Mutex
	db    *database.DB
	owned bool
}

// New returns a store on db. The database is owned by the caller.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Open opens the database at path for a store that closes it on Close.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := database.Open(path, log)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, owned: true}, nil
}

func (s *Store) Save(ctx context.Context, list []topics.Topic) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ReplaceTopics(ctx, list); err != nil {
		return "", fmt.Errorf("saving topics: %w", err)
	}
	return s.db.Path() + "#" + store.TableName, nil
}

func (s *Store) Load(ctx context.Context) ([]topics.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.db.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading topics: %w", err)
	}
	return list, nil
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
