package database

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM search_runs", &s.SearchRuns},
		{"SELECT COUNT(*) FROM search_runs WHERE path = 'fallback'", &s.FallbackRuns},
		{"SELECT COUNT(*) FROM trending_topics", &s.StoredTopics},
		{"SELECT COUNT(*) FROM posts", &s.Posts},
		{"SELECT COUNT(*) FROM images", &s.Images},
		{"SELECT COUNT(*) FROM images WHERE approved = 1", &s.ApprovedImages},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	if err := db.conn.QueryRow(
		"SELECT COALESCE(MAX(created_at), '') FROM search_runs",
	).Scan(&s.LastRunAt); err != nil {
		return nil, err
	}

	return s, nil
}
