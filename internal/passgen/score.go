package passgen

import "unicode"

// Strength is the result of scoring a password.
type Strength struct {
	Score       int      `json:"score"`
	IsStrong    bool     `json:"is_strong"`
	Suggestions []string `json:"suggestions"`
}

// StrongThreshold is the minimum score a password needs to count as strong.
const StrongThreshold = 70

// Score rates a password on a 0..100 scale using an additive rubric:
// length, presence of each character class, and character diversity.
//
// This is a usability heuristic, not an entropy estimate. It exists to
// nudge users toward longer, more varied passwords, and its exact values
// are part of the user-visible contract of the vault.
func Score(password string) Strength {
	var score int
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	var suggestions []string

	length := len([]rune(password))
	distinct := make(map[rune]struct{}, length)
	for _, r := range password {
		distinct[r] = struct{}{}
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	switch {
	case length >= 12:
		score += 25
	case length >= 8:
		score += 15
	default:
		suggestions = append(suggestions, "use at least 8 characters, ideally 12 or more")
	}

	if hasUpper {
		score += 15
	} else {
		suggestions = append(suggestions, "add an uppercase letter")
	}
	if hasLower {
		score += 15
	} else {
		suggestions = append(suggestions, "add a lowercase letter")
	}
	if hasDigit {
		score += 15
	} else {
		suggestions = append(suggestions, "add a digit")
	}
	if hasSymbol {
		score += 20
	} else {
		suggestions = append(suggestions, "add a symbol")
	}

	if length > 0 && float64(len(distinct)) >= 0.7*float64(length) {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "good password, no changes needed")
	}

	return Strength{
		Score:       score,
		IsStrong:    score >= StrongThreshold,
		Suggestions: suggestions,
	}
}
