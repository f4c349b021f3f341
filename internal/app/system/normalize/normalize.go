// Package normalize holds small canonicalization helpers applied to
// user-supplied identity fields before they are stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims whitespace and lowercases. Use the result for storage; use
// EmailCI for index keys.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailCI folds the email for case/diacritic-insensitive matching.
func EmailCI(s string) string {
	return text.Fold(Email(s))
}

// Name collapses interior runs of whitespace and trims the ends.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// InviteCode uppercases and trims a user-supplied invite code. Matching
// stays case-sensitive at the store layer; codes are only ever issued in
// uppercase, so this just removes the common paste artifacts.
func InviteCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
