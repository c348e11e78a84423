package database

// InsertPost stores a generated post and returns its ID.
func (db *DB) InsertPost(topic, persona string, extraContext *string, body string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO posts (topic, persona, extra_context, body) VALUES (?, ?, ?, ?)`,
		topic, persona, extraContext, body,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetPostsForTopic returns posts generated for a topic, newest first.
func (db *DB) GetPostsForTopic(topic string) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, topic, persona, extra_context, body, created_at
		FROM posts WHERE topic = ? ORDER BY id DESC`, topic,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Topic, &p.Persona, &p.ExtraContext, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
