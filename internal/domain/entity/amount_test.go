package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
)

func TestValidateAmount(t *testing.T) {
	testCases := []struct {
		name    string
		amount  int64
		ceiling int64
		wantErr error
	}{
		{"Minimum amount", 1, 250_000, nil},
		{"Typical amount", 1500, 250_000, nil},
		{"At ceiling", 250_000, 250_000, nil},
		{"Zero", 0, 250_000, errs.ErrInvalidAmount},
		{"Negative", -50, 250_000, errs.ErrInvalidAmount},
		{"Above ceiling", 250_001, 250_000, errs.ErrAmountTooLarge},
		{"Custom ceiling", 600, 500, errs.ErrAmountTooLarge},
		{"Default ceiling when unset", 100_000, 0, nil},
		{"Default ceiling enforced when unset", 300_000, 0, errs.ErrAmountTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(tc.amount, tc.ceiling)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
