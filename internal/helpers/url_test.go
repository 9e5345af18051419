package helpers

import "testing"

func TestIsHTTPURL(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"http://example.com/a", true},
		{"https://example.com", true},
		{"", false},
		{"  ", false},
		{"ftp://example.com", false},
		{"example.com/path", false},
		{"http://", false},
		{"#", false},
	}
	for _, c := range cases {
		if got := IsHTTPURL(c.raw); got != c.want {
			t.Errorf("IsHTTPURL(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd..." {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := Truncate("abc", 4); got != "abc" {
		t.Errorf("short string should be unchanged: %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("non-positive max should be unchanged: %q", got)
	}
}
