// Package storetest runs the behavior every topic store backend shares.
package storetest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// Sample is a list exercising quoting, newlines, empty cells and non-ASCII text.
func Sample() []topics.Topic {
	return []topics.Topic{
		{Index: 1, Title: "Skills shift, by the numbers", Reason: "WEF \"Future of Jobs\" data", Summary: "Line one\nline two"},
		{Index: 2, Title: "Agentic AI in ops", Reason: "", Summary: "Ünïcödé summary…"},
	}
}

// Run checks a backend created by open in a directory it may not yet exist in.
func Run(t *testing.T, open func(t *testing.T, dir string) store.Store) {
	t.Run("RoundTrip", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "nested", "data"))
		ctx := context.Background()

		loc, err := s.Save(ctx, Sample())
		require.NoError(t, err)
		assert.NotEmpty(t, loc)

		got, err := s.Load(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(Sample(), got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := open(t, t.TempDir())
		ctx := context.Background()

		_, err := s.Save(ctx, Sample())
		require.NoError(t, err)
		_, err = s.Save(ctx, []topics.Topic{{Index: 1, Title: "Only"}})
		require.NoError(t, err)

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []topics.Topic{{Index: 1, Title: "Only"}}, got)
	})

	t.Run("MissingLocation", func(t *testing.T) {
		got, err := open(t, filepath.Join(t.TempDir(), "absent")).Load(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Concurrent", func(t *testing.T) {
		s := open(t, t.TempDir())
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, Sample())
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				got, err := s.Load(ctx)
				assert.NoError(t, err)
				if len(got) > 0 {
					assert.True(t, strings.HasPrefix(got[0].Title, "Skills"))
				}
			}()
		}
		wg.Wait()
	})
}
