// Package pii reversibly masks patient attribute values around the
// external rewrite call, so free-text identifiers never leave the service
// while the rewritten output still reads naturally.
package pii

import (
	"strings"

	"github.com/enable-health/rewordify/internal/intake"
)

// Placeholder tokens substituted for attribute values.
const (
	TokenOccupation  = "<occupation>"
	TokenEmployer    = "<employer>"
	TokenCohabitants = "<live_with_people>"
	TokenName        = "<name>"
)

// keywords are relational terms that carry clinical signal. An attribute
// value containing one is deliberately left unmasked: hiding "lives with
// her husband" behind a token would strip exactly the context the reviewer
// needs to see.
var keywords = []string{
	"common law",
	"self employ",
	"wife",
	"husband",
	"partner",
	"son",
	"daughter",
	"child",
	"baby",
	"girl",
	"boy",
}

// ContainsKeyword reports whether v contains any of the relational
// keywords, case-insensitively.
func ContainsKeyword(v string) bool {
	lower := strings.ToLower(v)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Substitution is one placeholder applied during masking.
type Substitution struct {
	Token string
	Value string
}

// RestoreMap records applied substitutions in order, for the unmask pass.
type RestoreMap []Substitution

// Mask replaces occupation, employer, cohabitant and name values in text
// with placeholder tokens. The first three are exempt when the value
// itself trips the keyword filter; the name is always masked when present.
//
// Attribute values are assumed not to overlap one another in the text;
// nothing enforces that, and overlapping values make the round-trip lossy.
func Mask(text string, attrs intake.Attributes) (string, RestoreMap) {
	var restore RestoreMap

	apply := func(value, token string, exemptable bool) {
		if value == "" {
			return
		}
		if exemptable && ContainsKeyword(value) {
			return
		}
		if !strings.Contains(text, value) {
			return
		}
		text = strings.ReplaceAll(text, value, token)
		restore = append(restore, Substitution{Token: token, Value: value})
	}

	apply(attrs.Occupation, TokenOccupation, true)
	apply(attrs.Employer, TokenEmployer, true)
	apply(attrs.Cohabitants, TokenCohabitants, true)
	apply(attrs.Name, TokenName, false)

	return text, restore
}

// Unmask replaces placeholder tokens in the rewritten text with the
// original values, symmetric with Mask.
func Unmask(text string, restore RestoreMap) string {
	for _, sub := range restore {
		text = strings.ReplaceAll(text, sub.Token, sub.Value)
	}
	return text
}
