package database

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// ReplaceTopics overwrites the topic table with list.
func (db *DB) ReplaceTopics(ctx context.Context, list []topics.Topic) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM trending_topics"); err != nil {
		return fmt.Errorf("clearing topics: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trending_topics (position, "index", title, reason, summary) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range list {
		if _, err := stmt.ExecContext(ctx, i+1, t.Index, t.Title, t.Reason, t.Summary); err != nil {
			return fmt.Errorf("inserting topic %d: %w", t.Index, err)
		}
	}
	return tx.Commit()
}

// ListTopics returns the stored topics in row order.
func (db *DB) ListTopics(ctx context.Context) ([]topics.Topic, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "index", title, reason, summary FROM trending_topics ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []topics.Topic{}
	for rows.Next() {
		var t topics.Topic
		if err := rows.Scan(&t.Index, &t.Title, &t.Reason, &t.Summary); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
