package services

import "strings"

// TitlesMatch reports whether two (title, year) pairs plausibly refer to the
// same content. Titles match case-insensitively, exact or substring in
// either direction; when both sides carry a year the years must be within
// one of each other (library and catalog metadata disagree on release year
// for January releases and re-releases).
//
// Kept pure and kind-agnostic so edge cases are enumerable in tests; callers
// filter on media kind first.
func TitlesMatch(title string, year int, otherTitle string, otherYear int) bool {
	a := strings.ToLower(strings.TrimSpace(title))
	b := strings.ToLower(strings.TrimSpace(otherTitle))
	if a == "" || b == "" {
		return false
	}

	titleMatch := a == b || strings.Contains(a, b) || strings.Contains(b, a)
	if !titleMatch {
		return false
	}

	if year > 0 && otherYear > 0 {
		diff := year - otherYear
		if diff < 0 {
			diff = -diff
		}
		return diff <= 1
	}
	return true
}
