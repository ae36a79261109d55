package sqlitestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"biaslens/internal/catalog"
	"biaslens/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUsers(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if err := db.AddUser(ctx, "a@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddUser(ctx, "a@example.com", "pw"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	ok, err := db.EmailExists(ctx, "a@example.com")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
	ok, err = db.EmailExists(ctx, "b@example.com")
	if err != nil || ok {
		t.Fatalf("should not exist: %v %v", ok, err)
	}
}

func TestSourceBiasAsCatalogSource(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	rows := []catalog.Row{{Source: "CNN", Bias: "left", Confidence: "0.9"}, {Source: "Fox News", Bias: "right", Confidence: "0.8"}}
	if err := db.PutSourceBias(ctx, rows); err != nil {
		t.Fatal(err)
	}
	if err := db.PutSourceBias(ctx, []catalog.Row{{Source: "CNN", Bias: "left-center", Confidence: "0.7"}}); err != nil {
		t.Fatal(err)
	}
	c := catalog.NewStore(db).Load(ctx, false)
	if c.Len() != 2 {
		t.Fatalf("expected 2 sources, got %d", c.Len())
	}
	r, _ := c.Lookup("cnn")
	if r.Bias != model.LeftCenter || r.Confidence != 0.7 {
		t.Fatalf("upsert not applied: %+v", r)
	}
}

func TestArticlesAndFeedReactions(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	arts := []model.Article{
		{ID: "a1", Headline: "One", Source: "CNN", Category: "politics", PublishedAt: day.Add(-time.Hour)},
		{ID: "a2", Headline: "Two", Source: "Fox News", Category: "business", Lean: "Right"},
		{ID: "a3", Headline: "Three", Source: "CNN", Category: "politics"},
		{Headline: "no id"},
	}
	n, err := db.UpsertArticles(ctx, arts, day)
	if err != nil || n != 3 {
		t.Fatalf("upsert: %d %v", n, err)
	}
	if _, err := db.UpsertArticles(ctx, []model.Article{{ID: "old", Headline: "Old", Source: "CNN"}}, day.Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}

	today, err := db.ArticlesAddedOn(ctx, day, nil)
	if err != nil || len(today) != 3 {
		t.Fatalf("today: %d %v", len(today), err)
	}
	if today[1].Lean != "Right" || !today[0].PublishedAt.Equal(day.Add(-time.Hour)) {
		t.Fatalf("fields not round-tripped: %+v", today)
	}
	pol, err := db.ArticlesAddedOn(ctx, day, []string{"politics"})
	if err != nil || len(pol) != 2 {
		t.Fatalf("category filter: %d %v", len(pol), err)
	}
	recent, err := db.RecentArticles(ctx, 2)
	if err != nil || len(recent) != 2 {
		t.Fatalf("recent: %d %v", len(recent), err)
	}

	email := "u@example.com"
	f1, _ := db.InsertFeed(ctx, email, "comfort", "a1", day)
	f2, _ := db.InsertFeed(ctx, email, "comfort", "a3", day)
	f3, _ := db.InsertFeed(ctx, email, "challenge", "a2", day)
	if err := db.UpdateLikes(ctx, f1, 1); err != nil {
		t.Fatal(err)
	}
	_ = db.UpdateLikes(ctx, f2, 1)
	_ = db.UpdateLikes(ctx, f3, -1)
	if err := db.UpdateLikes(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	liked, err := db.LikedSources(ctx, email)
	if err != nil || liked["CNN"] != 2 || len(liked) != 1 {
		t.Fatalf("liked: %v %v", liked, err)
	}
	disliked, err := db.DislikedSources(ctx, email)
	if err != nil || disliked["Fox News"] != 1 || len(disliked) != 1 {
		t.Fatalf("disliked: %v %v", disliked, err)
	}

	again, err := db.InsertFeedOnce(ctx, email, "balanced", "a1", day)
	if err != nil || again != f1 {
		t.Fatalf("InsertFeedOnce should reuse row %d, got %d %v", f1, again, err)
	}
	counts, err := db.FeedCounts(ctx, email)
	if err != nil || counts["comfort"] != 2 || counts["challenge"] != 1 || counts["balanced"] != 0 {
		t.Fatalf("counts: %v %v", counts, err)
	}
}

func TestSurveyRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	email := "s@example.com"
	if _, err := db.LoadSurvey(ctx, email); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	in := []model.Answer{model.Yes, model.No, model.Unanswered, model.Yes, model.Yes}
	if err := db.SaveSurvey(ctx, email, in); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSurvey(ctx, email, in); !errors.Is(err, ErrSurveyExists) {
		t.Fatalf("expected ErrSurveyExists, got %v", err)
	}
	got, err := db.LoadSurvey(ctx, email)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("answer %d: got %s want %s", i, got[i], in[i])
		}
	}
	in[2] = model.No
	if err := db.UpdateSurvey(ctx, email, in); err != nil {
		t.Fatal(err)
	}
	got, _ = db.LoadSurvey(ctx, email)
	if got[2] != model.No {
		t.Fatalf("update not applied: %v", got)
	}
	if err := db.UpdateSurvey(ctx, "nobody@example.com", in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.SaveSurvey(ctx, email, in[:4]); err == nil {
		t.Fatalf("short survey should be rejected")
	}
}

func TestStats(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	_ = db.AddUser(ctx, "x@example.com", "")
	st, err := db.Stats(ctx)
	if err != nil || st["users"] != 1 || st["articles"] != 0 {
		t.Fatalf("stats: %v %v", st, err)
	}
}
