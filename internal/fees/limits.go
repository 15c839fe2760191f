package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// Absolute floor for any single transaction, regardless of account type.
var minTransactionAmount = ugx(500)

// Single-transaction ceilings per wallet account type.
var accountCeilings = map[enums.AccountType]decimal.Decimal{
	enums.AccountTypeBasic:      ugx(1_000_000),
	enums.AccountTypeRegistered: ugx(5_000_000),
	enums.AccountTypeBusiness:   ugx(10_000_000),
}

// Fraction of the ceiling above which a non-blocking warning is emitted.
var warnCeilingFraction = decimal.NewFromFloat(0.8)

// LimitCheck reports whether an amount passes transaction-limit policy.
// Warnings never block; Errors do.
type LimitCheck struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// CheckTransactionLimits validates an amount against the absolute minimum and
// the account type's single-transaction ceiling. Amounts above 80% of the
// ceiling pass with a warning. Unknown account types fall back to the basic
// ceiling.
func CheckTransactionLimits(amount decimal.Decimal, accountType enums.AccountType) LimitCheck {
	check := LimitCheck{IsValid: true}

	ceiling, ok := accountCeilings[accountType]
	if !ok {
		ceiling = accountCeilings[enums.AccountTypeBasic]
	}

	if amount.LessThan(minTransactionAmount) {
		check.IsValid = false
		check.Errors = append(check.Errors,
			fmt.Sprintf("amount is below the minimum of %s UGX", minTransactionAmount))
	}
	if amount.GreaterThan(ceiling) {
		check.IsValid = false
		check.Errors = append(check.Errors,
			fmt.Sprintf("amount exceeds the %s account limit of %s UGX", accountType, ceiling))
	}
	if check.IsValid && amount.GreaterThan(ceiling.Mul(warnCeilingFraction)) {
		check.Warnings = append(check.Warnings,
			fmt.Sprintf("amount is above 80%% of the %s account limit", accountType))
	}
	return check
}
