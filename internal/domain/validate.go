package domain

import "strings"

// ValidateDecision reports whether the decision text is non-empty after trimming.
func ValidateDecision(text string) bool {
	return strings.TrimSpace(text) != ""
}

// ValidateValues reports whether each category holds exactly two distinct values.
// Overlap between categories does not matter.
func ValidateValues(mustHave, dontCare, niceToHave []string) bool {
	return isPickSet(mustHave) && isPickSet(dontCare) && isPickSet(niceToHave)
}

// ValidateReflection reports whether all three answers are non-empty after trimming.
func ValidateReflection(tenMinutes, tenMonths, tenYears string) bool {
	return strings.TrimSpace(tenMinutes) != "" &&
		strings.TrimSpace(tenMonths) != "" &&
		strings.TrimSpace(tenYears) != ""
}

func isPickSet(picks []string) bool {
	if len(picks) != SelectionsPerCategory {
		return false
	}
	seen := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		if _, dup := seen[p]; dup {
			return false
		}
		seen[p] = struct{}{}
	}
	return true
}
