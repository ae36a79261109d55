// Package profile estimates a user's political stance from survey answers
// and from approval history, and fuses the two estimates.
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"biaslens/internal/match"
	"biaslens/internal/model"
)

const (
	// SurveyLength is the number of questions in the stance survey.
	SurveyLength     = 5
	surveyConfidence = 0.7
	// MinSourceConfidence drops weakly known outlets from the history estimate.
	MinSourceConfidence = 0.35

	defaultLikesWeight  = 0.3
	defaultSurveyWeight = 0.7
)

var ErrSurveyLength = errors.New("profile: survey needs exactly 5 answers")

// SignalProfile is a stance estimate from one signal.
type SignalProfile struct {
	NumericStance float64         `json:"numeric_stance"`
	Confidence    float64         `json:"confidence"`
	DominantBias  model.BiasLabel `json:"dominant_bias"`
	// Distribution is nil when the signal carries none (the survey never does).
	Distribution map[model.BiasLabel]float64 `json:"bias_distribution,omitempty"`
}

// Weights records how much each signal contributed to a combined profile.
type Weights struct {
	Likes  float64 `json:"likes"`
	Survey float64 `json:"survey"`
}

// CombinedProfile is the fused estimate.
type CombinedProfile struct {
	SignalProfile
	Sources Weights `json:"sources"`
}

// FromSurvey scores yes as +2, no as -2 and unanswered as 0, averaged over
// the five questions.
func FromSurvey(answers []model.Answer) (SignalProfile, error) {
	if len(answers) != SurveyLength {
		return SignalProfile{}, fmt.Errorf("%w, got %d", ErrSurveyLength, len(answers))
	}
	sum := 0.0
	for _, a := range answers {
		switch a {
		case model.Yes:
			sum += 2
		case model.No:
			sum -= 2
		}
	}
	stance := sum / SurveyLength
	return SignalProfile{
		NumericStance: stance,
		Confidence:    surveyConfidence,
		DominantBias:  model.NearestLabel(stance),
	}, nil
}

// FromHistory estimates stance from per-outlet approval and disapproval
// counts. Approvals pull the stance toward an outlet's bias, disapprovals
// push it away; only approvals feed the distribution. It returns nil when no
// outlet could be resolved with enough confidence.
func FromHistory(r match.Resolver, approved, disapproved map[string]int) *SignalProfile {
	var (
		stanceSum   float64
		totalWeight float64
		rawCount    int
		byBias      = map[model.BiasLabel]float64{}
	)
	accumulate := func(counts map[string]int, sign float64) {
		for _, name := range sortedNames(counts) {
			n := counts[name]
			if n <= 0 {
				continue
			}
			rawCount += n
			m := r.Resolve(name)
			if !m.Found || m.Confidence < MinSourceConfidence {
				continue
			}
			w := float64(n) * m.Confidence
			stanceSum += sign * m.Bias.Value() * w
			totalWeight += w
			if sign > 0 {
				byBias[m.Bias] += w
			}
		}
	}
	accumulate(approved, 1)
	accumulate(disapproved, -1)

	if totalWeight == 0 {
		return nil
	}
	stance := stanceSum / totalWeight
	dist := make(map[model.BiasLabel]float64, len(byBias))
	for b, w := range byBias {
		dist[b] = w / totalWeight
	}
	conf := 0.0
	if rawCount > 0 {
		conf = math.Min(1, totalWeight/(5*float64(rawCount)))
	}
	return &SignalProfile{
		NumericStance: stance,
		Confidence:    conf,
		DominantBias:  model.NearestLabel(stance),
		Distribution:  dist,
	}
}

func sortedNames(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
