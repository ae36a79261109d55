package model

import "time"

// Article is a news item as stored and served by the feed.
type Article struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Abstract    string    `json:"abstract,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"article_date"`
	AddedAt     time.Time `json:"date_added"`
	// Lean is a raw, provider-supplied lean tag. It is used internally only
	// and is cleared before articles leave the feed package.
	Lean string `json:"lean,omitempty"`
}

// Answer is one ternary survey response.
type Answer int8

const (
	Unanswered Answer = iota
	Yes
	No
)

// AnswerFromPtr maps a nullable stored boolean to an Answer.
func AnswerFromPtr(b *bool) Answer {
	if b == nil {
		return Unanswered
	}
	if *b {
		return Yes
	}
	return No
}

// Ptr is the inverse of AnswerFromPtr.
func (a Answer) Ptr() *bool {
	switch a {
	case Yes:
		v := true
		return &v
	case No:
		v := false
		return &v
	}
	return nil
}

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unanswered"
}

// ParseAnswer accepts yes/no/true/false/1/0 and anything else as unanswered.
func ParseAnswer(s string) Answer {
	switch s {
	case "y", "yes", "true", "t", "1":
		return Yes
	case "n", "no", "false", "f", "0":
		return No
	}
	return Unanswered
}
