package cod

import (
	"regexp"
	"strings"
)

// AddressHeuristic scores free-text delivery addresses. The checks are
// advisory only: warnings never block a payment and IsRemote only stretches
// the delivery estimate.
type AddressHeuristic interface {
	Warnings(address string) []string
	IsRemote(address string) bool
}

// KeywordHeuristic is the default heuristic, built on keyword and digit-run
// matching against the raw address text.
type KeywordHeuristic struct{}

var (
	streetTokens = []string{
		"street", "st", "road", "rd", "avenue", "ave",
		"plot", "close", "lane", "drive", "crescent",
	}
	remoteTokens = []string{
		"island", "village", "camp", "border", "forest", "mountain",
	}
	embeddedPhonePattern = regexp.MustCompile(`\d[\d\s-]{7,}\d`)
)

func (KeywordHeuristic) Warnings(address string) []string {
	var warnings []string
	if !containsAnyToken(address, streetTokens) {
		warnings = append(warnings, "address has no street-level detail; delivery may need a follow-up call")
	}
	if embeddedPhonePattern.MatchString(address) {
		warnings = append(warnings, "address appears to contain a phone number; use the delivery phone field instead")
	}
	return warnings
}

func (KeywordHeuristic) IsRemote(address string) bool {
	return containsAnyToken(address, remoteTokens)
}

func containsAnyToken(address string, tokens []string) bool {
	for _, word := range strings.FieldsFunc(strings.ToLower(address), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		for _, token := range tokens {
			if word == token {
				return true
			}
		}
	}
	return false
}
