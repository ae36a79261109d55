package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"biaslens/internal/catalog"
	"biaslens/internal/logging"
	"biaslens/internal/metrics"
	"biaslens/internal/model"
	"biaslens/internal/newsapi"
)

// ArticleWriter stores fetched articles.
type ArticleWriter interface {
	UpsertArticles(ctx context.Context, articles []model.Article, now time.Time) (int, error)
}

// Summary describes one refresh run.
type Summary struct {
	Category string
	Fetched  int
	Stored   int
	Took     time.Duration
}

// RefreshArticlesOnce pulls the current top stories and stores them.
func RefreshArticlesOnce(ctx context.Context, repo ArticleWriter, fetcher newsapi.Fetcher, category string, limit int) (Summary, error) {
	start := time.Now()
	sum := Summary{Category: category}
	metrics.RefreshRuns.Inc()
	defer metrics.ObserveRefreshDuration(start)

	arts, err := fetcher.TopNews(ctx, category, limit)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return sum, err
	}
	sum.Fetched = len(arts)
	n, err := repo.UpsertArticles(ctx, arts, start.UTC())
	sum.Stored = n
	if err != nil {
		metrics.RefreshErrors.Inc()
		return sum, err
	}
	sum.Took = time.Since(start)
	logging.Info("refresh_once", map[string]any{"category": category, "fetched": sum.Fetched, "stored": sum.Stored, "took_ms": sum.Took.Milliseconds()})
	return sum, nil
}

// refreshAll refreshes every category, then reloads the bias catalog so
// edits to the reference table are picked up without a restart. cats may be
// empty for the uncategorized top stories.
func refreshAll(ctx context.Context, repo ArticleWriter, fetcher newsapi.Fetcher, biases *catalog.Store, cats []string, limit int) {
	if len(cats) == 0 {
		cats = []string{""}
	}
	for _, c := range cats {
		if _, err := RefreshArticlesOnce(ctx, repo, fetcher, c, limit); err != nil {
			logging.Error("refresh_once_error", map[string]any{"category": c, "error": err.Error()})
		}
	}
	if biases != nil {
		biases.Load(ctx, true)
	}
}

// RunRefreshLoop runs refreshAll on a ticker until ctx is cancelled.
func RunRefreshLoop(ctx context.Context, repo ArticleWriter, fetcher newsapi.Fetcher, biases *catalog.Store, cats []string, limit int, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	refreshAll(ctx, repo, fetcher, biases, cats, limit)
	for {
		select {
		case <-ctx.Done():
			logging.Info("refresh_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			refreshAll(ctx, repo, fetcher, biases, cats, limit)
		}
	}
}

// RunRefreshCron is RunRefreshLoop driven by a standard cron spec
// ("*/30 * * * *", "@hourly") instead of a fixed interval.
func RunRefreshCron(ctx context.Context, repo ArticleWriter, fetcher newsapi.Fetcher, biases *catalog.Store, cats []string, limit int, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { refreshAll(ctx, repo, fetcher, biases, cats, limit) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	refreshAll(ctx, repo, fetcher, biases, cats, limit)
	c.Start()
	<-ctx.Done()
	// wait for a running refresh to finish
	<-c.Stop().Done()
	logging.Info("refresh_cron_stop", nil)
	return ctx.Err()
}
