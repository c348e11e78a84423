package xlsxstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/store/storetest"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, dir string) store.Store {
		return New(dir, nil)
	})
}

func TestSaveWritesNamedSheet(t *testing.T) {
	s := New(t.TempDir(), nil)
	ctx := context.Background()

	_, err := s.Save(ctx, storetest.Sample())
	require.NoError(t, err)
	loc, err := s.Save(ctx, []topics.Topic{{Index: 1, Title: "Only"}})
	require.NoError(t, err)
	assert.Equal(t, s.Path(), loc)
	assert.Equal(t, FileName, filepath.Base(loc))

	f, err := excelize.OpenFile(loc)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{store.SheetName}, f.GetSheetList())
	rows, err := f.GetRows(store.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, store.Columns, rows[0])
	require.GreaterOrEqual(t, len(rows[1]), 2)
	assert.Equal(t, []string{"1", "Only"}, rows[1][:2])

	entries, err := os.ReadDir(filepath.Dir(loc))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLoadToleratesHandEditedWorkbook(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Edited"))
	for _, row := range []struct {
		cell   string
		values []any
	}{
		{"A1", []any{"Title", "Index", "Summary"}},
		{"A2", []any{"First", "one", "s1"}},
		{"A3", []any{"Second", 7.0}},
	} {
		values := row.values
		require.NoError(t, f.SetSheetRow("Edited", row.cell, &values))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, FileName)))
	require.NoError(t, f.Close())

	got, err := New(dir, nil).Load(context.Background())
	require.NoError(t, err)
	want := []topics.Topic{
		{Index: 1, Title: "First", Summary: "s1"},
		{Index: 7, Title: "Second"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("load mismatch (-want +got):\n%s", diff)
	}
}
