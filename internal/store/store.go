// Package store persists the current topic list. Every backend holds one
// fixed table with the columns index, title, reason and summary, and each
// save replaces its previous content.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// SheetName is the display name of the topic table.
const SheetName = "Trending Topics"

// TableName is the identifier used by database backends.
const TableName = "trending_topics"

// Columns is the fixed column order.
var Columns = []string{"index", "title", "reason", "summary"}

// Store saves and loads the topic list.
type Store interface {
	// Save overwrites the stored list and returns where it was written.
	Save(ctx context.Context, list []topics.Topic) (string, error)
	// Load returns the stored list, or an empty list if nothing was saved.
	Load(ctx context.Context) ([]topics.Topic, error)
	Close() error
}

// ParseIndex reads an index cell, falling back to the 1-based row position
// when the cell is not an integer.
func ParseIndex(cell string, position int) int {
	cell = strings.TrimSpace(cell)
	if n, err := strconv.Atoi(cell); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return position
}
