// Package csvstore keeps the topic list in a spreadsheet-compatible CSV file.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// FileName is the topic file inside the data directory.
const FileName = "topics.csv"

var _ store.Store = (*Store)(nil)

// Store is a CSV-file topic store.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// New returns a store writing dir/topics.csv.
func New(dir string, log *zap.Logger) *Store {
	return &Store{path: filepath.Join(dir, FileName), log: logging.OrNop(log)}
}

// Path returns the CSV file location.
func (s *Store) Path() string { return s.path }

// Save writes a header row and one row per topic to a temporary file and
// renames it over the previous file.
func (s *Store) Save(_ context.Context, list []topics.Topic) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".topics-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(store.Columns); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing header: %w", err)
	}
	for _, t := range list {
		if err := w.Write([]string{strconv.Itoa(t.Index), t.Title, t.Reason, t.Summary}); err != nil {
			tmp.Close()
			return "", fmt.Errorf("writing topic %d: %w", t.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return "", fmt.Errorf("replacing %s: %w", s.path, err)
	}

	s.log.Debug("saved topics", zap.String("path", s.path), zap.Int("count", len(list)))
	return s.path, nil
}

// Load reads the CSV file. Columns are located by header name; a missing
// column or cell reads as "".
func (s *Store) Load(_ context.Context) ([]topics.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []topics.Topic{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []topics.Topic{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		pos[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cell := func(row []string, col string) string {
		i, ok := pos[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	list := []topics.Topic{}
	for n := 1; ; n++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", n, err)
		}
		list = append(list, topics.Topic{
			Index:   store.ParseIndex(cell(row, "index"), n),
			Title:   cell(row, "title"),
			Reason:  cell(row, "reason"),
			Summary: cell(row, "summary"),
		})
	}
	return list, nil
}

// Close is a no-op; the file is not held open.
func (s *Store) Close() error { return nil }
