package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"biaslens/internal/metrics"
	"biaslens/internal/model"
)

const topPath = "/v1/news/top"

// Fetcher is the part of the news API the refresh job needs.
type Fetcher interface {
	TopNews(ctx context.Context, category string, limit int) ([]model.Article, error)
}

// Options configure an HTTPClient. Zero values fall back to env or defaults.
type Options struct {
	BaseURL     string
	Locale      string
	RPS         float64
	Burst       int
	MaxAttempts int
}

// HTTPClient talks to thenewsapi.com.
type HTTPClient struct {
	baseURL     string
	apiToken    string
	locale      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(apiToken string, opts Options) *HTTPClient {
	c := &HTTPClient{
		baseURL:     "https://api.thenewsapi.com",
		apiToken:    apiToken,
		locale:      "us",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(opts.RPS, opts.Burst),
		maxAttempts: getEnvInt("NEWS_API_MAX_ATTEMPTS", 4),
		baseBackoff: time.Duration(getEnvInt("NEWS_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Locale != "" {
		c.locale = opts.Locale
	}
	if opts.MaxAttempts > 0 {
		c.maxAttempts = opts.MaxAttempts
	}
	return c
}

var ErrNoToken = errors.New("newsapi: missing api token")

type topResponse struct {
	Data []struct {
		UUID        string    `json:"uuid"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Snippet     string    `json:"snippet"`
		URL         string    `json:"url"`
		ImageURL    string    `json:"image_url"`
		Source      string    `json:"source"`
		Categories  []string  `json:"categories"`
		PublishedAt time.Time `json:"published_at"`
	} `json:"data"`
}

// TopNews fetches the current top stories, optionally for one category.
func (c *HTTPClient) TopNews(ctx context.Context, category string, limit int) ([]model.Article, error) {
	if c.apiToken == "" {
		return nil, ErrNoToken
	}
	q := url.Values{}
	q.Set("api_token", c.apiToken)
	q.Set("locale", c.locale)
	q.Set("limit", strconv.Itoa(clamp(limit, 1, 100)))
	if category != "" {
		q.Set("categories", category)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+topPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("news api status %d", resp.StatusCode)
	}
	var raw topResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("news api decode: %w", err)
	}
	out := make([]model.Article, 0, len(raw.Data))
	for _, d := range raw.Data {
		abstract := d.Description
		if abstract == "" {
			abstract = d.Snippet
		}
		a := model.Article{
			ID:          d.UUID,
			Headline:    d.Title,
			URL:         d.URL,
			Source:      d.Source,
			Abstract:    abstract,
			ImageURL:    d.ImageURL,
			PublishedAt: d.PublishedAt,
		}
		if category != "" {
			a.Category = category
		} else if len(d.Categories) > 0 {
			a.Category = d.Categories[0]
		}
		out = append(out, a)
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(req.URL.Path)
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				lastErr = fmt.Errorf("news api status %d", resp.StatusCode)
				if attempt == c.maxAttempts {
					break
				}
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
