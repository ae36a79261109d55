package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"biaslens/internal/catalog"
	"biaslens/internal/model"
	"biaslens/internal/store/sqlitestore"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeFetcher) TopNews(ctx context.Context, category string, limit int) ([]model.Article, error) {
	f.mu.Lock()
	f.calls = append(f.calls, category)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []model.Article{
		{ID: category + "-1", Headline: "h1", Source: "cnn.com", Category: category},
		{ID: category + "-2", Headline: "h2", Source: "foxnews.com", Category: category},
		{Headline: "no id, skipped"},
	}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRefreshArticlesOnceStores(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	sum, err := RefreshArticlesOnce(ctx, db, &fakeFetcher{}, "politics", 10)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Fetched != 3 || sum.Stored != 2 || sum.Category != "politics" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	got, err := db.ArticlesAddedOn(ctx, time.Now().UTC(), []string{"politics"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 stored articles, got %d", len(got))
	}
}

func TestRefreshArticlesOnceFetchError(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	boom := errors.New("boom")
	if _, err := RefreshArticlesOnce(context.Background(), db, &fakeFetcher{err: boom}, "", 10); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

type countingSource struct {
	mu sync.Mutex
	n  int
}

func (c *countingSource) LoadBiasRows(ctx context.Context) ([]catalog.Row, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return []catalog.Row{{Source: "CNN", Bias: "left-center", Confidence: "0.9"}}, nil
}

func TestRunRefreshLoopStopsOnCancel(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	f := &fakeFetcher{}
	src := &countingSource{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunRefreshLoop(ctx, db, f, catalog.NewStore(src), []string{"politics", "business"}, 5, time.Hour)
	}()
	// the first tick runs immediately
	deadline := time.Now().Add(5 * time.Second)
	for f.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop")
	}
	if f.count() != 2 {
		t.Fatalf("expected one fetch per category, got %d", f.count())
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.n != 1 {
		t.Fatalf("expected one catalog reload, got %d", src.n)
	}
}

func TestRunRefreshCron(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := RunRefreshCron(context.Background(), db, &fakeFetcher{}, nil, nil, 5, "not a schedule"); err == nil {
		t.Fatalf("expected invalid schedule error")
	}

	f := &fakeFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunRefreshCron(ctx, db, f, nil, nil, 5, "@every 1h") }()
	deadline := time.Now().Add(5 * time.Second)
	for f.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cron runner did not stop")
	}
	if f.count() != 1 {
		t.Fatalf("expected the immediate refresh only, got %d", f.count())
	}
}
