package model

import (
	"strings"
	"time"
)

// Profile is a user's public identity. Its ID is the account ID.
//
// WHY Bio string (not *string)?
// An empty bio and a missing bio render the same way, so the zero value is
// good enough and simpler to work with.
//
// HostRating and TotalRatings are read-only aggregates over event_ratings;
// UpdateProfile ignores them.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio"`
	Interests []string  `json:"interests"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	HostRating   *float64 `json:"host_rating"`
	TotalRatings int      `json:"total_ratings"`
}

// ParseInterests turns the comma-separated text a user types ("Sports, Music")
// into a tag list. Tags are trimmed, empty tags dropped, and repeats removed
// while keeping the first occurrence's position.
func ParseInterests(text string) []string {
	return NormalizeInterests(strings.Split(text, ","))
}

// NormalizeInterests applies the same cleanup as ParseInterests to an
// already split list. The result is never nil.
func NormalizeInterests(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
