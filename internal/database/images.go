package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrImageNotFound is returned when approving an unknown image.
var ErrImageNotFound = errors.New("image not found")

// InsertImage records a generated image as pending approval.
func (db *DB) InsertImage(topic, path string, template, headline *string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO images (topic, path, template, headline) VALUES (?, ?, ?, ?)`,
		topic, path, template, headline,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ApproveImage marks an image approved. Approving twice is a no-op.
func (db *DB) ApproveImage(id int64) error {
	result, err := db.conn.Exec(
		`UPDATE images SET approved = 1, approved_at = COALESCE(approved_at, datetime('now'))
		WHERE id = ?`, id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}
	return nil
}

// GetImage returns an image by ID, or nil if it does not exist.
func (db *DB) GetImage(id int64) (*Image, error) {
	row := db.conn.QueryRow(
		`SELECT id, topic, path, template, headline, approved, approved_at, created_at
		FROM images WHERE id = ?`, id,
	)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return img, err
}

// GetImagesForTopic returns images generated for a topic, newest first.
func (db *DB) GetImagesForTopic(topic string) ([]Image, error) {
	rows, err := db.conn.Query(
		`SELECT id, topic, path, template, headline, approved, approved_at, created_at
		FROM images WHERE topic = ? ORDER BY id DESC`, topic,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func scanImage(s scanner) (*Image, error) {
	var img Image
	var approved int
	if err := s.Scan(&img.ID, &img.Topic, &img.Path, &img.Template, &img.Headline,
		&approved, &img.ApprovedAt, &img.CreatedAt); err != nil {
		return nil, err
	}
	img.Approved = approved == 1
	return &img, nil
}
