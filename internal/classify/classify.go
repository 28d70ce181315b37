// Package classify tags deal titles with interest labels using fixed keyword
// families. Matching is case-insensitive substring matching backed by
// Aho-Corasick automatons, so the keyword lists can grow without the per-title
// cost growing with them.
package classify

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Tag is an interest label attached to a deal title
type Tag string

const (
	// TagJackpot marks urgency or price-anomaly titles
	TagJackpot Tag = "🔥대박"
	// TagWatchlist marks desirable product or category titles
	TagWatchlist Tag = "❤️관심"
)

// Classifier evaluates the keyword families against a title. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	jackpot   *ahocorasick.Matcher
	watchlist *ahocorasick.Matcher
	ban       *ahocorasick.Matcher
}

// New builds a classifier from the jackpot, watchlist and ban keyword lists.
// Empty lists disable the corresponding family.
func New(jackpot, watchlist, ban []string) *Classifier {
	return &Classifier{
		jackpot:   buildMatcher(jackpot),
		watchlist: buildMatcher(watchlist),
		ban:       buildMatcher(ban),
	}
}

func buildMatcher(keywords []string) *ahocorasick.Matcher {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	if len(lowered) == 0 {
		return nil
	}
	return ahocorasick.NewStringMatcher(lowered)
}

func matches(m *ahocorasick.Matcher, title string) bool {
	if m == nil {
		return false
	}
	return len(m.Match([]byte(strings.ToLower(title)))) > 0
}

// Classify returns the tags for a title. The families are independent and
// non-exclusive: a title may carry both tags, either one, or none.
func (c *Classifier) Classify(title string) []Tag {
	var tags []Tag
	if matches(c.jackpot, title) {
		tags = append(tags, TagJackpot)
	}
	if matches(c.watchlist, title) {
		tags = append(tags, TagWatchlist)
	}
	return tags
}

// Banned returns true if the title matches the ban family; banned listings
// are skipped before they reach the store.
func (c *Classifier) Banned(title string) bool {
	return matches(c.ban, title)
}
