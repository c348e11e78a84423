package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/store/storetest"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, dir string) store.Store {
		return New(dir, nil)
	})
}

func TestSaveWritesHeaderAndOverwrites(t *testing.T) {
	s := New(t.TempDir(), nil)
	ctx := context.Background()

	_, err := s.Save(ctx, storetest.Sample())
	require.NoError(t, err)
	_, err = s.Save(ctx, []topics.Topic{{Index: 1, Title: "Only"}})
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "index,title,reason,summary\n1,Only,,\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLoadToleratesHandEditedFile(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeffTitle,Index,Summary\n" +
		"First,one,s1\n" +
		"Second,7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

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
