package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

func TestValidate_AcceptedShapes(t *testing.T) {
	// The same subscriber in every accepted input shape must map to the
	// same canonical number.
	inputs := []string{
		"0771234567",
		"256771234567",
		"+256771234567",
		"771234567",
		"0771 234 567",
		"0771-234-567",
		"(0771) 234567",
		"+256 771 234 567",
	}
	for _, raw := range inputs {
		res := Validate(raw)
		require.True(t, res.Valid, "input %q", raw)
		assert.Equal(t, "+256771234567", res.Canonical, "input %q", raw)
		assert.Equal(t, enums.CarrierMTN, res.Carrier, "input %q", raw)
		assert.Empty(t, res.Err)
	}
}

func TestValidate_CarrierDetection(t *testing.T) {
	tests := []struct {
		raw     string
		carrier enums.Carrier
	}{
		{"0771234567", enums.CarrierMTN},
		{"0781234567", enums.CarrierMTN},
		{"0761234567", enums.CarrierMTN},
		{"0391234567", enums.CarrierMTN},
		{"0751234567", enums.CarrierAirtel},
		{"0741234567", enums.CarrierAirtel},
		{"0701234567", enums.CarrierAirtel},
		{"0201234567", enums.CarrierAirtel},
		{"0991234567", enums.CarrierUnknown},
	}
	for _, tc := range tests {
		res := Validate(tc.raw)
		require.True(t, res.Valid, "input %q", tc.raw)
		assert.Equal(t, tc.carrier, res.Carrier, "input %q", tc.raw)
	}
}

func TestValidate_UnknownCarrierStillValid(t *testing.T) {
	res := Validate("0991234567")
	require.True(t, res.Valid)
	assert.Equal(t, "+256991234567", res.Canonical)
	assert.Equal(t, enums.CarrierUnknown, res.Carrier)
}

func TestValidate_BareSubscriberStartingWithCountryCode(t *testing.T) {
	// Nine digits is an accepted shape even when they happen to begin with
	// 256; the digits are the subscriber number, not a country code.
	res := Validate("256 77 12 34")
	require.True(t, res.Valid)
	assert.Equal(t, "+256256771234", res.Canonical)
	assert.Equal(t, enums.CarrierUnknown, res.Carrier)
}

func TestValidate_Rejections(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"07712345",       // too short
		"07712345678",    // too long
		"25577123456",    // wrong length with country code
		"0771a34567",     // letter
		"+254771234567",  // wrong country code
		"++256771234567", // double plus
		"256 77 12 3",    // too short after stripping
		"hello",
	}
	for _, raw := range inputs {
		res := Validate(raw)
		assert.False(t, res.Valid, "input %q", raw)
		assert.Equal(t, ErrInvalidFormat, res.Err, "input %q", raw)
		assert.Empty(t, res.Canonical, "input %q", raw)
	}
}

func TestValidate_NeverPanics(t *testing.T) {
	for _, raw := range []string{"+", "-", "()", "+256", "0", "ç256771234567"} {
		assert.NotPanics(t, func() { Validate(raw) }, "input %q", raw)
	}
}

func TestDetectCarrier_DisjointPrefixSets(t *testing.T) {
	seen := map[string]enums.Carrier{}
	for _, p := range mtnPrefixes {
		seen[p] = enums.CarrierMTN
	}
	for _, p := range airtelPrefixes {
		_, dup := seen[p]
		require.False(t, dup, "prefix %q claimed by both carriers", p)
	}
}
