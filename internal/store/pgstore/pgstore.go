// Package pgstore keeps the topic list in a Postgres table.
package pgstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS trending_topics (
	position INTEGER PRIMARY KEY,
	"index" INTEGER NOT NULL,
	title TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT ''
);
`

// Store is a Postgres-backed topic store.
type Store struct {
	mu   sync.Mutex
	pool *pgxpool.Pool
}

// New connects, pings and creates the topic table if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn: %w", apierr.ErrCredentialMissing)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating topic table: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Save replaces the table content in one transaction.
func (s *Store) Save(ctx context.Context, list []topics.Topic) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM trending_topics"); err != nil {
		return "", fmt.Errorf("clearing topics: %w", err)
	}

	rows := make([][]any, len(list))
	for i, t := range list {
		rows[i] = []any{i + 1, t.Index, t.Title, t.Reason, t.Summary}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{store.TableName},
		[]string{"position", "index", "title", "reason", "summary"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return "", fmt.Errorf("copying topics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return "postgres:" + store.TableName, nil
}

func (s *Store) Load(ctx context.Context) ([]topics.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.pool.Query(ctx,
		`SELECT "index", title, reason, summary FROM trending_topics ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	list := []topics.Topic{}
	for rows.Next() {
		var t topics.Topic
		if err := rows.Scan(&t.Index, &t.Title, &t.Reason, &t.Summary); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
