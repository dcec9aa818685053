package main

import (
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
)

// amountPattern is the only accepted amount shape: plain decimal digits with
// an optional non-empty fractional part. No sign, no exponent, no leading or
// trailing dot. The fractional length bound is enforced against the token
// scale after parsing.
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// NormalizeAmount parses a decimal amount string into smallest units at the
// given scale. Floating point is never involved: the string is validated
// against the exact accepted shape, then shifted as an arbitrary-precision
// decimal. Amounts finer than the scale are rejected, never rounded.
func NormalizeAmount(amount string, scale int32) (*big.Int, error) {
	if !amountPattern.MatchString(amount) {
		return nil, GatewayErrorf(ErrKindValidation, "invalid amount %q: expected decimal digits with an optional fractional part", amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, GatewayErrorf(ErrKindValidation, "invalid amount %q", amount)
	}

	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return nil, GatewayErrorf(ErrKindValidation, "invalid amount %q: more than %d decimal places", amount, scale)
	}

	return shifted.BigInt(), nil
}
