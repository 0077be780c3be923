package utils

import "testing"

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"Web Development":     "web-development",
		"  Data & Science!  ": "data-science",
		"Café Crème":          "cafe-creme",
		"---":                 "",
		"Go 1.25 in Practice": "go-1-25-in-practice",
	}
	for input, want := range cases {
		if got := GenerateSlug(input); got != want {
			t.Errorf("GenerateSlug(%q) = %q, want %q", input, got, want)
		}
	}
}
