// Package rules implements the declarative pattern model used to classify
// transactions: amount conditions, narration and field matchers, account
// splits and shared-expense specifications.
package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/larsfjeld/beanpost/internal/common"
)

// AmountOperator represents the type of amount comparison.
type AmountOperator string

// Amount operator constants.
const (
	AmountLessThan     AmountOperator = "lt"
	AmountLessEqual    AmountOperator = "lte"
	AmountGreaterThan  AmountOperator = "gt"
	AmountGreaterEqual AmountOperator = "gte"
	AmountEqual        AmountOperator = "eq"
	AmountRange        AmountOperator = "between"
)

// AmountCondition is a numeric predicate over the absolute value of a signed
// transaction amount. Sign never affects whether a condition matches, so the
// same rule covers both charges and refunds.
type AmountCondition struct {
	Value2   *decimal.Decimal // Upper bound, only used with AmountRange
	Operator AmountOperator
	Value    decimal.Decimal
}

// Validate checks the condition's configuration.
func (c *AmountCondition) Validate() error {
	switch c.Operator {
	case AmountLessThan, AmountLessEqual, AmountGreaterThan, AmountGreaterEqual, AmountEqual:
		return nil
	case AmountRange:
		if c.Value2 == nil {
			return fmt.Errorf("%w: value2 is required when operator is %q", common.ErrInvalidRule, AmountRange)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown amount operator %q", common.ErrInvalidRule, c.Operator)
	}
}

// Matches reports whether the given signed amount satisfies the condition.
// Comparison is exact decimal on abs(amount); boundary values like an even
// 50.00 compare reliably.
func (c *AmountCondition) Matches(amount decimal.Decimal) bool {
	abs := amount.Abs()

	switch c.Operator {
	case AmountLessThan:
		return abs.LessThan(c.Value)
	case AmountLessEqual:
		return abs.LessThanOrEqual(c.Value)
	case AmountGreaterThan:
		return abs.GreaterThan(c.Value)
	case AmountGreaterEqual:
		return abs.GreaterThanOrEqual(c.Value)
	case AmountEqual:
		return abs.Equal(c.Value)
	case AmountRange:
		// Inclusive on both ends.
		return c.Value2 != nil &&
			abs.GreaterThanOrEqual(c.Value) &&
			abs.LessThanOrEqual(*c.Value2)
	}

	return false
}

// AmountBelow matches amounts strictly less than v.
func AmountBelow(v decimal.Decimal) *AmountCondition {
	return &AmountCondition{Operator: AmountLessThan, Value: v}
}

// AmountAtMost matches amounts less than or equal to v.
func AmountAtMost(v decimal.Decimal) *AmountCondition {
	return &AmountCondition{Operator: AmountLessEqual, Value: v}
}

// AmountAbove matches amounts strictly greater than v.
func AmountAbove(v decimal.Decimal) *AmountCondition {
	return &AmountCondition{Operator: AmountGreaterThan, Value: v}
}

// AmountAtLeast matches amounts greater than or equal to v.
func AmountAtLeast(v decimal.Decimal) *AmountCondition {
	return &AmountCondition{Operator: AmountGreaterEqual, Value: v}
}

// AmountExactly matches amounts equal to v.
func AmountExactly(v decimal.Decimal) *AmountCondition {
	return &AmountCondition{Operator: AmountEqual, Value: v}
}

// AmountBetween matches amounts in [low, high], inclusive on both ends.
func AmountBetween(low, high decimal.Decimal) *AmountCondition {
	return &AmountCondition{Operator: AmountRange, Value: low, Value2: &high}
}
