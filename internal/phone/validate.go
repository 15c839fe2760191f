package phone

import (
	"strings"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// Ugandan country code; all canonical numbers are +256 plus nine digits.
const countryCode = "256"

// ErrInvalidFormat is the single rejection reason: the input does not match
// any accepted Ugandan number shape.
const ErrInvalidFormat = "invalid_format"

var (
	mtnPrefixes    = []string{"77", "78", "76", "39"}
	airtelPrefixes = []string{"75", "74", "70", "20"}
)

// Result reports a validation outcome. Validate is total: malformed input
// yields Valid=false with Err set, never a panic.
type Result struct {
	Valid     bool
	Canonical string
	Carrier   enums.Carrier
	Err       string
}

// Validate strips separators, checks the four accepted input shapes
// (0XXXXXXXXX, 256XXXXXXXXX, +256XXXXXXXXX, bare XXXXXXXXX), canonicalizes to
// +256XXXXXXXXX and classifies the owning carrier by subscriber prefix.
// Carrier detection is advisory: an unmatched prefix still validates, with
// Carrier set to unknown.
func Validate(raw string) Result {
	subscriber, ok := subscriberNumber(raw)
	if !ok {
		return Result{Err: ErrInvalidFormat}
	}
	return Result{
		Valid:     true,
		Canonical: "+" + countryCode + subscriber,
		Carrier:   DetectCarrier(subscriber),
	}
}

// DetectCarrier classifies a nine-digit subscriber number by its two-digit
// prefix. The MTN and Airtel sets are disjoint.
func DetectCarrier(subscriber string) enums.Carrier {
	if len(subscriber) < 2 {
		return enums.CarrierUnknown
	}
	prefix := subscriber[:2]
	for _, candidate := range mtnPrefixes {
		if candidate == prefix {
			return enums.CarrierMTN
		}
	}
	for _, candidate := range airtelPrefixes {
		if candidate == prefix {
			return enums.CarrierAirtel
		}
	}
	return enums.CarrierUnknown
}

// subscriberNumber normalizes the input down to the nine-digit subscriber
// part, reporting false when no accepted shape matches.
func subscriberNumber(raw string) (string, bool) {
	cleaned := stripSeparators(raw)

	hasPlus := strings.HasPrefix(cleaned, "+")
	if hasPlus {
		cleaned = cleaned[1:]
	}
	if !isAllDigits(cleaned) {
		return "", false
	}

	switch {
	case hasPlus:
		// +256XXXXXXXXX only
		if len(cleaned) == 12 && strings.HasPrefix(cleaned, countryCode) {
			return cleaned[3:], true
		}
	case len(cleaned) == 10 && cleaned[0] == '0':
		return cleaned[1:], true
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, countryCode):
		return cleaned[3:], true
	case len(cleaned) == 9:
		return cleaned, true
	}
	return "", false
}

func stripSeparators(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', '\t', '-', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isAllDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
