package mongostore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

func TestNewWithoutURI(t *testing.T) {
	_, err := New(context.Background(), "", "contentmachine")
	assert.ErrorIs(t, err, apierr.ErrCredentialMissing)
}

func TestSaveLoad(t *testing.T) {
	uri := os.Getenv("CONTENTMACHINE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CONTENTMACHINE_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	s, err := New(ctx, uri, "contentmachine_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.coll.Drop(context.Background())
		s.Close()
	})

	list := []topics.Topic{{Index: 1, Title: "T", Reason: "R", Summary: "S"}, {Index: 2, Title: "U"}}
	loc, err := s.Save(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, "mongo:contentmachine_test.trending_topics", loc)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, got)
}
