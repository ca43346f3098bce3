package app

import "testing"

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"app.flowdeck.io", "*.flowdeck.dev", "localhost:5173"}

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://app.flowdeck.io", true},
		{"https://app.flowdeck.io:443", false},
		{"https://flowdeck.dev", true},
		{"https://staging.flowdeck.dev", true},
		{"https://deep.staging.flowdeck.dev", true},
		{"https://evilflowdeck.dev", false},
		{"http://localhost:5173", true},
		{"http://localhost:3000", false},
		{"https://other.example.com", false},
		{"app.flowdeck.io", true}, // bare host, no scheme
	}
	for _, c := range cases {
		if got := originAllowed(patterns, c.origin); got != c.want {
			t.Fatalf("originAllowed(%q) = %v, want %v", c.origin, got, c.want)
		}
	}
}
