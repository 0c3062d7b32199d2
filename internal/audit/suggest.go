package audit

import "github.com/agext/levenshtein"

// suggestOption proposes a replacement for a misspelled enum value. A
// suggestion is only offered when exactly one allowed value sits within
// maxDist edits, so the repair pipeline never guesses between near ties.
func suggestOption(value string, options []string, maxDist int) (string, bool) {
	if maxDist < 1 {
		return "", false
	}
	var found string
	count := 0
	for _, opt := range options {
		if levenshtein.Distance(value, opt, nil) <= maxDist {
			found = opt
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	return found, true
}
