package entity

import (
	"fmt"

	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
)

// DefaultAmountCeiling caps a single push-payment request when no ceiling is
// configured. The provider itself rejects larger amounts, but catching them
// locally keeps accidental oversized requests off the wire.
const DefaultAmountCeiling int64 = 250_000

// ValidateAmount checks that the amount is a positive whole number of
// currency units not exceeding the ceiling. Fractional sub-units are rejected
// structurally: the amount is an integer everywhere in the core.
func ValidateAmount(amount, ceiling int64) error {
	if ceiling <= 0 {
		ceiling = DefaultAmountCeiling
	}
	if amount <= 0 {
		return fmt.Errorf("%w: must be a positive whole amount, got %d", errs.ErrInvalidAmount, amount)
	}
	if amount > ceiling {
		return fmt.Errorf("%w: %d exceeds ceiling %d", errs.ErrAmountTooLarge, amount, ceiling)
	}
	return nil
}
