package newsapi

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"biaslens/internal/logging"
	"biaslens/internal/model"
)

// RSSFeed pulls stories from one outlet's RSS or Atom feed. Articles carry
// the configured outlet name as their source so the bias matcher sees
// "Reuters" rather than a feed title.
type RSSFeed struct {
	Outlet   string
	URL      string
	Category string
	parser   *gofeed.Parser
}

func NewRSSFeed(outlet, url, category string) *RSSFeed {
	return &RSSFeed{Outlet: outlet, URL: url, Category: category, parser: gofeed.NewParser()}
}

// TopNews returns up to limit feed items. A feed bound to another category
// returns nothing.
func (f *RSSFeed) TopNews(ctx context.Context, category string, limit int) ([]model.Article, error) {
	if category != "" && f.Category != "" && category != f.Category {
		return nil, nil
	}
	feed, err := f.parser.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.URL, err)
	}
	cat := f.Category
	if cat == "" {
		cat = category
	}
	now := time.Now().UTC()
	out := make([]model.Article, 0, len(feed.Items))
	for _, it := range feed.Items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if it.Link == "" {
			continue
		}
		published := now
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = *it.UpdatedParsed
		}
		a := model.Article{
			// stable id from the link
			ID:          fmt.Sprintf("rss-%x", sha256.Sum256([]byte(it.Link)))[:20],
			Headline:    it.Title,
			URL:         it.Link,
			Source:      f.Outlet,
			Abstract:    it.Description,
			Category:    cat,
			PublishedAt: published.UTC(),
		}
		if it.Image != nil {
			a.ImageURL = it.Image.URL
		}
		out = append(out, a)
	}
	return out, nil
}

// Multi fans a request out to several fetchers in order. A failing fetcher
// is logged and skipped; Multi only fails when every fetcher does.
type Multi []Fetcher

func (m Multi) TopNews(ctx context.Context, category string, limit int) ([]model.Article, error) {
	var out []model.Article
	var errs []error
	for _, f := range m {
		arts, err := f.TopNews(ctx, category, limit)
		if err != nil {
			logging.Warn("fetcher_failed", map[string]any{"category": category, "error": err.Error()})
			errs = append(errs, err)
			continue
		}
		out = append(out, arts...)
	}
	if len(m) > 0 && len(errs) == len(m) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
