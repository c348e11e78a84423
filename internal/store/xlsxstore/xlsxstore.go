// Package xlsxstore keeps the topic list on the "Trending Topics" sheet of
// an Excel workbook.
package xlsxstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// FileName is the workbook inside the data directory.
const FileName = "topics.xlsx"

var _ store.Store = (*Store)(nil)

// Store is an xlsx-workbook topic store.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// New returns a store writing dir/topics.xlsx.
func New(dir string, log *zap.Logger) *Store {
	return &Store{path: filepath.Join(dir, FileName), log: logging.OrNop(log)}
}

// Path returns the workbook location.
func (s *Store) Path() string { return s.path }

// Save writes a fresh workbook holding a header row and one row per topic,
// then renames it over the previous file.
func (s *Store) Save(_ context.Context, list []topics.Topic) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), store.SheetName); err != nil {
		return "", fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(store.Columns))
	for i, c := range store.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(store.SheetName, "A1", &header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	for i, t := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		row := []any{t.Index, t.Title, t.Reason, t.Summary}
		if err := f.SetSheetRow(store.SheetName, cell, &row); err != nil {
			return "", fmt.Errorf("writing topic %d: %w", t.Index, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".topics-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return "", fmt.Errorf("replacing %s: %w", s.path, err)
	}

	s.log.Debug("saved topics", zap.String("path", s.path), zap.String("sheet", store.SheetName), zap.Int("count", len(list)))
	return s.path, nil
}

// Load reads the topic sheet, or the first sheet when a hand-edited
// workbook renamed it. Columns are located by header name; a missing column
// or cell reads as "".
func (s *Store) Load(_ context.Context) ([]topics.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return []topics.Topic{}, nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := store.SheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []topics.Topic{}, nil
	}

	pos := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
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
	for n, row := range rows[1:] {
		list = append(list, topics.Topic{
			Index:   store.ParseIndex(cell(row, "index"), n+1),
			Title:   cell(row, "title"),
			Reason:  cell(row, "reason"),
			Summary: cell(row, "summary"),
		})
	}
	return list, nil
}

// Close is a no-op; the workbook is not held open.
func (s *Store) Close() error { return nil }
