package validate

import (
	"errors"
	"testing"
)

func TestRedditURL_Empty(t *testing.T) {
	for _, in := range []string{"", " ", "\t\n", "   \r\n  "} {
		_, err := RedditURL(in)
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("RedditURL(%q) error = %v, want ErrEmpty", in, err)
		}
	}
}

func TestRedditURL_NotAProfile(t *testing.T) {
	inputs := []string{
		"https://example.com",
		"https://www.reddit.com/r/golang/",
		"reddit.com/u/kojied",
		"https://www.reddit.com/USER/kojied",
		"user/kojied",
	}
	for _, in := range inputs {
		_, err := RedditURL(in)
		if !errors.Is(err, ErrNotAUserProfileURL) {
			t.Errorf("RedditURL(%q) error = %v, want ErrNotAUserProfileURL", in, err)
		}
	}
}

func TestRedditURL_AcceptsLooseMatches(t *testing.T) {
	// Only the substring matters; these are all accepted as-is.
	inputs := map[string]string{
		"https://www.reddit.com/user/kojied/":  "https://www.reddit.com/user/kojied/",
		"  reddit.com/user/kojied  ":           "reddit.com/user/kojied",
		"ftp://old.reddit.com/user/":           "ftp://old.reddit.com/user/",
		"not a url but reddit.com/user/x here": "not a url but reddit.com/user/x here",
	}
	for in, want := range inputs {
		got, err := RedditURL(in)
		if err != nil {
			t.Errorf("RedditURL(%q) unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("RedditURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUsername(t *testing.T) {
	cases := map[string]string{
		"https://www.reddit.com/user/kojied/":         "kojied",
		"https://www.reddit.com/user/Hungry-Move-6603": "Hungry-Move-6603",
		"https://www.reddit.com/user/abc?sort=new":     "abc",
		"https://www.reddit.com/user/":                 "",
		"https://example.com":                          "",
	}
	for in, want := range cases {
		if got := Username(in); got != want {
			t.Errorf("Username(%q) = %q, want %q", in, got, want)
		}
	}
}
