package database

import (
	"database/sql"
	"errors"
)

// InsertSearchRun records a search run.
func (db *DB) InsertSearchRun(r SearchRun) error {
	_, err := db.conn.Exec(
		`INSERT INTO search_runs
		(id, niche, recency, requested_count, result_count, topic_count, path, fallback_reason, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Niche, r.Recency, r.RequestedCount, r.ResultCount, r.TopicCount,
		r.Path, r.FallbackReason, r.Location,
	)
	return err
}

// GetSearchRun returns a run by ID, or nil if it does not exist.
func (db *DB) GetSearchRun(id string) (*SearchRun, error) {
	row := db.conn.QueryRow(
		`SELECT id, niche, recency, requested_count, result_count, topic_count, path,
		fallback_reason, location, created_at FROM search_runs WHERE id = ?`, id,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetRecentRuns returns the newest runs first.
func (db *DB) GetRecentRuns(limit int) ([]SearchRun, error) {
	rows, err := db.conn.Query(
		`SELECT id, niche, recency, requested_count, result_count, topic_count, path,
		fallback_reason, location, created_at FROM search_runs
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SearchRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*SearchRun, error) {
	var r SearchRun
	if err := s.Scan(&r.ID, &r.Niche, &r.Recency, &r.RequestedCount, &r.ResultCount,
		&r.TopicCount, &r.Path, &r.FallbackReason, &r.Location, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
