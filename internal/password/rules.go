// Package password evaluates the sign-up password policy for on-screen feedback.
package password

import (
	"strings"
	"unicode/utf8"
)

// Rule identifies one policy indicator.
type Rule string

const (
	RuleLength  Rule = "length"
	RuleUpper   Rule = "capital"
	RuleLower   Rule = "small"
	RuleDigit   Rule = "number"
	RuleSpecial Rule = "special"
	RuleMatch   Rule = "password-match"
)

// Policy limits.
const (
	MinLength    = 8
	MaxLength    = 16
	SpecialChars = "!@#$%^&*"
)

// StrengthRules lists the predicates evaluated on every password change.
var StrengthRules = []Rule{RuleLength, RuleUpper, RuleLower, RuleDigit, RuleSpecial}

var descriptions = map[Rule]string{
	RuleLength:  "8-16 characters",
	RuleUpper:   "an uppercase letter",
	RuleLower:   "a lowercase letter",
	RuleDigit:   "a number",
	RuleSpecial: "a special character (" + SpecialChars + ")",
	RuleMatch:   "passwords match",
}

// Description is the human-readable requirement behind a rule.
func (r Rule) Description() string {
	return descriptions[r]
}

// Report holds the outcome of each strength rule.
type Report map[Rule]bool

// Evaluate checks password against every strength rule independently.
func Evaluate(password string) Report {
	n := utf8.RuneCountInString(password)
	return Report{
		RuleLength:  n >= MinLength && n <= MaxLength,
		RuleUpper:   containsRange(password, 'A', 'Z'),
		RuleLower:   containsRange(password, 'a', 'z'),
		RuleDigit:   containsRange(password, '0', '9'),
		RuleSpecial: strings.ContainsAny(password, SpecialChars),
	}
}

// Matches reports whether the confirmation equals the password exactly.
func Matches(password, confirm string) bool {
	return password == confirm
}

// Valid reports whether every strength rule passed.
func (r Report) Valid() bool {
	return len(r.Failed()) == 0
}

// Failed returns the failing strength rules in display order.
func (r Report) Failed() []Rule {
	var failed []Rule
	for _, rule := range StrengthRules {
		if !r[rule] {
			failed = append(failed, rule)
		}
	}
	return failed
}

func containsRange(s string, lo, hi rune) bool {
	for _, c := range s {
		if c >= lo && c <= hi {
			return true
		}
	}
	return false
}
