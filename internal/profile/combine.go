package profile

import "biaslens/internal/model"

// Combine fuses the likes and survey estimates. Either may be nil; the
// result is nil only when both are. With both present each is weighted by
// its share of the total confidence.
func Combine(likes, survey *SignalProfile) *CombinedProfile {
	switch {
	case likes == nil && survey == nil:
		return nil
	case survey == nil:
		return &CombinedProfile{SignalProfile: *likes, Sources: Weights{Likes: 1}}
	case likes == nil:
		return &CombinedProfile{SignalProfile: *survey, Sources: Weights{Survey: 1}}
	}

	lw, sw := defaultLikesWeight, defaultSurveyWeight
	if total := likes.Confidence + survey.Confidence; total > 0 {
		lw = likes.Confidence / total
		sw = survey.Confidence / total
	}
	stance := clampBetween(likes.NumericStance*lw+survey.NumericStance*sw, likes.NumericStance, survey.NumericStance)
	return &CombinedProfile{
		SignalProfile: SignalProfile{
			NumericStance: stance,
			Confidence:    likes.Confidence*lw + survey.Confidence*sw,
			DominantBias:  model.NearestLabel(stance),
			Distribution:  likes.Distribution,
		},
		Sources: Weights{Likes: lw, Survey: sw},
	}
}

// clampBetween pins v into [min(a,b), max(a,b)] against float rounding.
func clampBetween(v, a, b float64) float64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
