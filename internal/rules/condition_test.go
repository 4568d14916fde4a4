package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsfjeld/beanpost/internal/common"
)

func TestAmountCondition_Matches(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name      string
		condition *AmountCondition
		amount    decimal.Decimal
		want      bool
	}{
		{
			name:      "less than matches below",
			condition: AmountBelow(d("50")),
			amount:    d("49.99"),
			want:      true,
		},
		{
			name:      "less than rejects boundary",
			condition: AmountBelow(d("50")),
			amount:    d("50.00"),
			want:      false,
		},
		{
			name:      "less equal accepts boundary",
			condition: AmountAtMost(d("50")),
			amount:    d("50.00"),
			want:      true,
		},
		{
			name:      "greater than rejects boundary",
			condition: AmountAbove(d("500")),
			amount:    d("500"),
			want:      false,
		},
		{
			name:      "greater than matches above",
			condition: AmountAbove(d("500")),
			amount:    d("500.01"),
			want:      true,
		},
		{
			name:      "greater equal accepts boundary",
			condition: AmountAtLeast(d("500")),
			amount:    d("500.00"),
			want:      true,
		},
		{
			name:      "equal matches exact decimal",
			condition: AmountExactly(d("99.90")),
			amount:    d("99.9"),
			want:      true,
		},
		{
			name:      "equal rejects near miss",
			condition: AmountExactly(d("99.90")),
			amount:    d("99.91"),
			want:      false,
		},
		{
			name:      "between inclusive lower bound",
			condition: AmountBetween(d("50"), d("100")),
			amount:    d("50.00"),
			want:      true,
		},
		{
			name:      "between inclusive upper bound",
			condition: AmountBetween(d("50"), d("100")),
			amount:    d("100.00"),
			want:      true,
		},
		{
			name:      "between rejects outside",
			condition: AmountBetween(d("50"), d("100")),
			amount:    d("100.01"),
			want:      false,
		},
		{
			name:      "sign is ignored for debits",
			condition: AmountBelow(d("50")),
			amount:    d("-25.00"),
			want:      true,
		},
		{
			name:      "sign is ignored for between",
			condition: AmountBetween(d("50"), d("100")),
			amount:    d("-75"),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.condition.Matches(tt.amount))
		})
	}
}

func TestAmountCondition_MatchesAbsoluteValue(t *testing.T) {
	// The same condition must agree on an amount and its negation.
	d := decimal.RequireFromString
	conditions := []*AmountCondition{
		AmountBelow(d("100")),
		AmountAtMost(d("100")),
		AmountAbove(d("10")),
		AmountAtLeast(d("10")),
		AmountExactly(d("42.50")),
		AmountBetween(d("10"), d("100")),
	}
	amounts := []string{"0", "9.99", "10", "42.50", "99.99", "100", "250"}

	for _, c := range conditions {
		for _, a := range amounts {
			amt := d(a)
			assert.Equal(t, c.Matches(amt), c.Matches(amt.Neg()),
				"operator %s disagrees on %s vs its negation", c.Operator, a)
		}
	}
}

func TestAmountCondition_Validate(t *testing.T) {
	d := decimal.RequireFromString

	t.Run("between requires value2", func(t *testing.T) {
		c := &AmountCondition{Operator: AmountRange, Value: d("50")}
		err := c.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidRule)
	})

	t.Run("value2 ignored for other operators", func(t *testing.T) {
		v2 := d("100")
		c := &AmountCondition{Operator: AmountLessThan, Value: d("50"), Value2: &v2}
		require.NoError(t, c.Validate())
		// value2 must have no effect on matching
		assert.True(t, c.Matches(d("49")))
		assert.False(t, c.Matches(d("75")))
	})

	t.Run("unknown operator rejected", func(t *testing.T) {
		c := &AmountCondition{Operator: "almost", Value: d("50")}
		assert.ErrorIs(t, c.Validate(), common.ErrInvalidRule)
	})
}
