package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestInsertAndGetSearchRun(t *testing.T) {
	db := openTestDB(t)
	run := SearchRun{
		ID: "run-1", Niche: "AI", Recency: "week", RequestedCount: 3,
		ResultCount: 5, TopicCount: 3, Path: "fallback",
		FallbackReason: ptr("no text provider"), Location: ptr("/tmp/topics.csv"),
	}
	if err := db.InsertSearchRun(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.GetSearchRun("run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected run")
	}
	if got.TopicCount != 3 || got.Path != "fallback" || *got.FallbackReason != "no text provider" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.CreatedAt == nil {
		t.Error("expected created_at default")
	}
}

func TestGetSearchRunMissing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetSearchRun("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestGetRecentRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := db.InsertSearchRun(SearchRun{ID: id, Niche: "AI", Recency: "day", Path: "llm"}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.GetRecentRuns(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("expected c, b; got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestPostsForTopic(t *testing.T) {
	db := openTestDB(t)
	db.InsertPost("Skills shift", "strategist", nil, "first")
	db.InsertPost("Skills shift", "educator", ptr("use 2030 data"), "second")
	db.InsertPost("Other", "strategist", nil, "other")

	posts, err := db.GetPostsForTopic("Skills shift")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Body != "second" || *posts[0].ExtraContext != "use 2030 data" {
		t.Errorf("unexpected newest post: %+v", posts[0])
	}
}

func TestImageApproval(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertImage("Skills shift", "/out/a.png", ptr("split"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, _ := db.GetImage(id)
	if img.Approved {
		t.Error("new image should be pending")
	}

	if err := db.ApproveImage(id); err != nil {
		t.Fatalf("ApproveImage: %v", err)
	}
	if err := db.ApproveImage(id); err != nil {
		t.Fatalf("second ApproveImage: %v", err)
	}

	img, _ = db.GetImage(id)
	if !img.Approved || img.ApprovedAt == nil {
		t.Errorf("expected approved image, got %+v", img)
	}

	images, err := db.GetImagesForTopic("Skills shift")
	if err != nil || len(images) != 1 {
		t.Fatalf("expected 1 image, got %d (%v)", len(images), err)
	}
}

func TestApproveUnknownImage(t *testing.T) {
	db := openTestDB(t)
	err := db.ApproveImage(99)
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}

func TestReplaceTopicsOverwrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := []topics.Topic{{Index: 1, Title: "A"}, {Index: 2, Title: "B"}, {Index: 3, Title: "C"}}
	if err := db.ReplaceTopics(ctx, first); err != nil {
		t.Fatalf("ReplaceTopics: %v", err)
	}
	second := []topics.Topic{{Index: 1, Title: "X", Reason: "r", Summary: "s"}}
	if err := db.ReplaceTopics(ctx, second); err != nil {
		t.Fatalf("ReplaceTopics: %v", err)
	}

	got, err := db.ListTopics(ctx)
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(got) != 1 || got[0] != second[0] {
		t.Errorf("expected %+v, got %+v", second, got)
	}
}

func TestListTopicsEmpty(t *testing.T) {
	db := openTestDB(t)
	got, err := db.ListTopics(context.Background())
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	db.InsertSearchRun(SearchRun{ID: "1", Niche: "AI", Recency: "week", Path: "llm"})
	db.InsertSearchRun(SearchRun{ID: "2", Niche: "AI", Recency: "week", Path: "fallback"})
	db.ReplaceTopics(context.Background(), []topics.Topic{{Index: 1, Title: "A"}})
	db.InsertPost("A", "strategist", nil, "body")
	id, _ := db.InsertImage("A", "/out/a.png", nil, nil)
	db.InsertImage("A", "/out/b.png", nil, nil)
	db.ApproveImage(id)

	s, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Stats{SearchRuns: 2, FallbackRuns: 1, StoredTopics: 1, Posts: 1, Images: 2, ApprovedImages: 1}
	s.LastRunAt = ""
	if *s != want {
		t.Errorf("expected %+v, got %+v", want, *s)
	}
}
