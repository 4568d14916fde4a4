package rules

import "github.com/shopspring/decimal"

// Builder constructs TransactionPattern values through a fluent interface.
// It is construction-time sugar only; the resulting pattern behaves exactly
// like one assembled by hand.
//
//	p, err := rules.Match("COSTCO").
//		CaseInsensitive().
//		When(rules.AmountAbove(decimal.NewFromInt(100))).
//		SplitAcross(
//			rules.AccountSplit{Account: "Expenses:Groceries", Percentage: decimal.NewFromInt(80)},
//			rules.AccountSplit{Account: "Expenses:Household", Percentage: decimal.NewFromInt(20)},
//		).
//		Build()
type Builder struct {
	pattern TransactionPattern
}

// Match starts a rule whose narration must contain the given text as a
// literal substring.
func Match(narration string) *Builder {
	return &Builder{pattern: TransactionPattern{Narration: narration}}
}

// MatchRegex starts a rule whose narration must match the given regular
// expression.
func MatchRegex(expr string) *Builder {
	return &Builder{pattern: TransactionPattern{Narration: expr, Regex: true}}
}

// MatchAmount starts a rule with only an amount condition.
func MatchAmount(cond *AmountCondition) *Builder {
	return &Builder{pattern: TransactionPattern{Amount: cond}}
}

// CaseInsensitive makes the narration matcher case-insensitive.
func (b *Builder) CaseInsensitive() *Builder {
	b.pattern.CaseInsensitive = true
	return b
}

// When adds an amount condition that must also hold.
func (b *Builder) When(cond *AmountCondition) *Builder {
	b.pattern.Amount = cond
	return b
}

// Field requires the named metadata field to contain the given text. All
// field predicates on a rule must hold.
func (b *Builder) Field(name, subpattern string) *Builder {
	if b.pattern.Fields == nil {
		b.pattern.Fields = make(map[string]string)
	}
	b.pattern.Fields[name] = subpattern
	return b
}

// FieldsAsRegex treats all field subpatterns as regular expressions instead
// of literal substrings.
func (b *Builder) FieldsAsRegex() *Builder {
	b.pattern.FieldsRegex = true
	return b
}

// To routes the whole transaction to a single account.
func (b *Builder) To(account string) *Builder {
	b.pattern.Account = account
	return b
}

// SplitAcross routes the transaction across multiple accounts by percentage.
func (b *Builder) SplitAcross(splits ...AccountSplit) *Builder {
	b.pattern.Splits = splits
	return b
}

// SharedWith records that a percentage of the transaction is owed by a
// third party, offset against the default reimbursement account.
func (b *Builder) SharedWith(receivableAccount string, percentage decimal.Decimal) *Builder {
	return b.SharedVia(receivableAccount, "", percentage)
}

// SharedVia is SharedWith with an explicit offset account.
func (b *Builder) SharedVia(receivableAccount, offsetAccount string, percentage decimal.Decimal) *Builder {
	b.pattern.SharedWith = append(b.pattern.SharedWith, SharedExpense{
		ReceivableAccount: receivableAccount,
		OffsetAccount:     offsetAccount,
		Percentage:        percentage,
	})
	return b
}

// Build validates and compiles the pattern.
func (b *Builder) Build() (TransactionPattern, error) {
	p := b.pattern
	if err := p.Compile(); err != nil {
		return TransactionPattern{}, err
	}
	return p, nil
}
