// Package feed scores and labels articles against a user's stance.
package feed

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"biaslens/internal/match"
	"biaslens/internal/metrics"
	"biaslens/internal/model"
)

// Mode selects how alignment turns into a ranking score.
type Mode string

const (
	Comfort   Mode = "comfort"
	Balanced  Mode = "balanced"
	Challenge Mode = "challenge"
)

const (
	// NeutralScore stands in for alignment when an outlet's bias is unknown
	// or too uncertain to use.
	NeutralScore = 0.5
	// MinScoringConfidence is the outlet confidence needed to compute alignment.
	MinScoringConfidence = 0.5

	comfortAbove   = 0.7
	challengeBelow = 0.3
	maxDistance    = 4.0
)

var ErrUnknownMode = errors.New("feed: unknown mode")

// ParseMode accepts comfort, balanced or challenge in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Comfort, Balanced, Challenge:
		return m, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Alignment is 1 when stance equals the outlet's bias and 0 at the far end
// of the axis. Unresolved or low-confidence outlets get NeutralScore.
func Alignment(stance float64, src match.SourceMatch) float64 {
	if !src.Found || src.Confidence < MinScoringConfidence {
		return NeutralScore
	}
	return 1 - math.Abs(stance-src.Bias.Value())/maxDistance
}

// Score maps an alignment to a ranking score for mode.
func Score(alignment float64, mode Mode) float64 {
	switch mode {
	case Comfort:
		return alignment
	case Challenge:
		return 1 - alignment
	default:
		return 1 - math.Abs(0.5-alignment)
	}
}

// LabelFor buckets an alignment into the mode a reader would file it under.
func LabelFor(alignment float64) Mode {
	switch {
	case alignment > comfortAbove:
		return Comfort
	case alignment < challengeBelow:
		return Challenge
	}
	return Balanced
}

// ScoredArticle is an article with its ranking score.
type ScoredArticle struct {
	model.Article
	Score float64 `json:"score"`
}

// LabeledArticle is an article with its feed label.
type LabeledArticle struct {
	model.Article
	Label Mode `json:"label"`
}

// Scorer resolves article sources and scores them.
type Scorer struct {
	resolver match.Resolver
}

func NewScorer(r match.Resolver) *Scorer {
	return &Scorer{resolver: r}
}

// score returns the ranking score of one source. An unusable source is worth
// NeutralScore in every mode.
func score(stance float64, src match.SourceMatch, mode Mode) float64 {
	if !src.Found || src.Confidence < MinScoringConfidence {
		return NeutralScore
	}
	return Score(Alignment(stance, src), mode)
}

// Rank orders items by descending score for mode. Equal scores keep their
// input order.
func (s *Scorer) Rank(items []model.Article, stance float64, mode Mode) []ScoredArticle {
	memo := match.NewMemo(s.resolver)
	out := make([]ScoredArticle, len(items))
	for i, it := range items {
		out[i] = ScoredArticle{Article: strip(it), Score: score(stance, memo.Resolve(it.Source), mode)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	metrics.AddScored(string(mode), len(items))
	return out
}

// Label tags every item with comfort, balanced or challenge, keeping input order.
func (s *Scorer) Label(items []model.Article, stance float64) []LabeledArticle {
	memo := match.NewMemo(s.resolver)
	out := make([]LabeledArticle, len(items))
	for i, it := range items {
		out[i] = LabeledArticle{Article: strip(it), Label: LabelFor(Alignment(stance, memo.Resolve(it.Source)))}
	}
	metrics.AddScored("label", len(items))
	return out
}

// Articles drops the scores, keeping the ranked order.
func Articles(scored []ScoredArticle) []model.Article {
	out := make([]model.Article, len(scored))
	for i, s := range scored {
		out[i] = s.Article
	}
	return out
}

func strip(a model.Article) model.Article {
	a.Lean = ""
	return a
}
