// Package recommend builds a user's political profile from stored signals
// and serves personalized or labeled article feeds.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biaslens/internal/feed"
	"biaslens/internal/logging"
	"biaslens/internal/match"
	"biaslens/internal/model"
	"biaslens/internal/profile"
	"biaslens/internal/store/sqlitestore"
)

var (
	ErrUnknownUser = errors.New("recommend: unknown user")
	ErrBadReaction = errors.New("recommend: reaction must be -1, 0 or 1")
)

// Repository is the storage the service reads and writes.
// *sqlitestore.DB implements it.
type Repository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	LoadSurvey(ctx context.Context, email string) ([]model.Answer, error)
	LikedSources(ctx context.Context, email string) (map[string]int, error)
	DislikedSources(ctx context.Context, email string) (map[string]int, error)
	ArticlesAddedOn(ctx context.Context, day time.Time, categories []string) ([]model.Article, error)
	RecentArticles(ctx context.Context, limit int) ([]model.Article, error)
	InsertFeed(ctx context.Context, email, flag, articleID string, now time.Time) (int64, error)
	InsertFeedOnce(ctx context.Context, email, flag, articleID string, now time.Time) (int64, error)
	UpdateLikes(ctx context.Context, feedID int64, likes int) error
}

// Matcher resolves outlets and lists near misses. *match.Matcher implements it.
type Matcher interface {
	match.Resolver
	FindClosest(name string, n int) []match.Candidate
}

type Service struct {
	repo    Repository
	matcher Matcher
	scorer  *feed.Scorer
	now     func() time.Time
}

func New(repo Repository, m Matcher) *Service {
	return &Service{repo: repo, matcher: m, scorer: feed.NewScorer(m), now: time.Now}
}

func (s *Service) checkUser(ctx context.Context, email string) error {
	ok, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, email)
	}
	return nil
}

// PoliticalProfile fuses the survey estimate with the approval history.
// It returns nil without error when the user has neither signal.
func (s *Service) PoliticalProfile(ctx context.Context, email string) (*profile.CombinedProfile, error) {
	if err := s.checkUser(ctx, email); err != nil {
		return nil, err
	}
	var survey *profile.SignalProfile
	answers, err := s.repo.LoadSurvey(ctx, email)
	switch {
	case errors.Is(err, sqlitestore.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load survey: %w", err)
	default:
		sp, err := profile.FromSurvey(answers)
		if err != nil {
			return nil, err
		}
		survey = &sp
	}
	liked, err := s.repo.LikedSources(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("liked sources: %w", err)
	}
	disliked, err := s.repo.DislikedSources(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("disliked sources: %w", err)
	}
	likes := profile.FromHistory(match.NewMemo(s.matcher), liked, disliked)
	combined := profile.Combine(likes, survey)
	if combined != nil {
		logging.Debug("profile_built", map[string]any{"email": email, "stance": combined.NumericStance, "confidence": combined.Confidence, "likes_weight": combined.Sources.Likes})
	}
	return combined, nil
}

// PersonalizedFeed returns today's articles ordered for mode. Articles come
// back in storage order when mode is unknown or the user has no profile.
func (s *Service) PersonalizedFeed(ctx context.Context, email, mode string, categories []string) ([]model.Article, error) {
	articles, err := s.repo.ArticlesAddedOn(ctx, s.now().UTC(), categories)
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	m, err := feed.ParseMode(mode)
	if err != nil {
		logging.Warn("feed_unknown_mode", map[string]any{"mode": mode})
		return stripAll(articles), nil
	}
	p, err := s.PoliticalProfile(ctx, email)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return stripAll(articles), nil
	}
	return feed.Articles(s.scorer.Rank(articles, p.NumericStance, m)), nil
}

// LabeledFeed labels up to limit recent articles against the user's stance
// and records each label as a feed row. Users without a profile are
// treated as centrist.
func (s *Service) LabeledFeed(ctx context.Context, email string, limit int) ([]feed.LabeledArticle, error) {
	p, err := s.PoliticalProfile(ctx, email)
	if err != nil {
		return nil, err
	}
	stance := 0.0
	if p != nil {
		stance = p.NumericStance
	}
	articles, err := s.repo.RecentArticles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent articles: %w", err)
	}
	labeled := s.scorer.Label(articles, stance)
	now := s.now()
	for _, la := range labeled {
		if _, err := s.repo.InsertFeedOnce(ctx, email, string(la.Label), la.ID, now); err != nil {
			return nil, fmt.Errorf("record feed: %w", err)
		}
	}
	return labeled, nil
}

// RecordFeed appends one feed row per served article and returns the row ids.
func (s *Service) RecordFeed(ctx context.Context, email, mode string, articles []model.Article) ([]int64, error) {
	if err := s.checkUser(ctx, email); err != nil {
		return nil, err
	}
	now := s.now()
	ids := make([]int64, 0, len(articles))
	for _, a := range articles {
		id, err := s.repo.InsertFeed(ctx, email, mode, a.ID, now)
		if err != nil {
			return ids, fmt.Errorf("record feed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SetReaction stores a like (1), dislike (-1) or clears it (0).
func (s *Service) SetReaction(ctx context.Context, feedID int64, likes int) error {
	if likes < -1 || likes > 1 {
		return ErrBadReaction
	}
	return s.repo.UpdateLikes(ctx, feedID, likes)
}

// Diagnosis explains how a name resolves.
type Diagnosis struct {
	Name    string
	Match   match.SourceMatch
	Closest []match.Candidate
}

func (s *Service) Diagnose(ctx context.Context, name string, n int) Diagnosis {
	return Diagnosis{Name: name, Match: s.matcher.Resolve(name), Closest: s.matcher.FindClosest(name, n)}
}

func stripAll(items []model.Article) []model.Article {
	out := make([]model.Article, len(items))
	for i, a := range items {
		a.Lean = ""
		out[i] = a
	}
	return out
}
