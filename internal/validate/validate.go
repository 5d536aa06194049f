// Package validate checks user input before any request reaches the analysis service.
package validate

import (
	"errors"
	"strings"
)

// Message is the text shown to the user for any rejected profile URL.
const Message = "Please enter a valid Reddit user profile URL (e.g., https://www.reddit.com/user/username/)"

// profileMarker must appear somewhere in an accepted URL. The check is a plain
// substring match: no scheme, host, casing or trailing-slash normalisation.
const profileMarker = "reddit.com/user/"

var (
	// ErrEmpty is returned when the input is empty after trimming.
	ErrEmpty = errors.New("profile url is empty")
	// ErrNotAUserProfileURL is returned when the input lacks the profile marker.
	ErrNotAUserProfileURL = errors.New("not a reddit user profile url")
)

// RedditURL validates a candidate profile URL and returns the trimmed value.
func RedditURL(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrEmpty
	}
	if !strings.Contains(s, profileMarker) {
		return "", ErrNotAUserProfileURL
	}
	return s, nil
}

// Username returns the path segment after "/user/", the same rule the analysis
// service uses to pick the account to scrape. It returns "" when there is none.
func Username(profileURL string) string {
	i := strings.Index(profileURL, profileMarker)
	if i < 0 {
		return ""
	}
	rest := profileURL[i+len(profileMarker):]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
