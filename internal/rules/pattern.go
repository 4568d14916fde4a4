package rules

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/larsfjeld/beanpost/internal/common"
)

// DefaultOffsetAccount is the income account that offsets shared-expense
// receivables when a rule does not name one.
const DefaultOffsetAccount = "Income:Reimbursements"

var (
	percentFloor   = decimal.Zero
	percentCeiling = decimal.NewFromInt(100)
)

// AccountSplit assigns a percentage share of a transaction to one account.
type AccountSplit struct {
	Account    string
	Percentage decimal.Decimal
}

// Validate checks the split's configuration.
func (s *AccountSplit) Validate() error {
	if s.Account == "" {
		return fmt.Errorf("%w: split account is required", common.ErrInvalidRule)
	}
	if err := validatePercentage(s.Percentage); err != nil {
		return fmt.Errorf("%w: split for %s: %v", common.ErrInvalidRule, s.Account, err)
	}
	return nil
}

// SharedExpense records that a percentage of a transaction is owed by a
// third party. It generates a receivable posting and an offsetting income
// posting that cancel exactly, so the expense account still shows the full
// unshared cost.
type SharedExpense struct {
	ReceivableAccount string
	OffsetAccount     string // Defaults to DefaultOffsetAccount when empty
	Percentage        decimal.Decimal
}

// Validate checks the shared expense's configuration.
func (s *SharedExpense) Validate() error {
	if s.ReceivableAccount == "" {
		return fmt.Errorf("%w: shared expense receivable account is required", common.ErrInvalidRule)
	}
	if err := validatePercentage(s.Percentage); err != nil {
		return fmt.Errorf("%w: shared expense for %s: %v", common.ErrInvalidRule, s.ReceivableAccount, err)
	}
	return nil
}

// TransactionPattern is a single classification rule. A pattern matches a
// transaction only if every configured predicate holds: the narration
// matcher, the amount condition and all field matchers. It routes the
// transaction either to one account or across a list of splits, and may
// attach shared-expense specifications.
type TransactionPattern struct {
	Fields          map[string]string
	fieldMatchers   map[string]*regexp.Regexp
	narrationRE     *regexp.Regexp
	Amount          *AmountCondition
	Narration       string
	Account         string
	Splits          []AccountSplit
	SharedWith      []SharedExpense
	Regex           bool
	CaseInsensitive bool
	FieldsRegex     bool
}

// Validate checks the pattern's configuration without compiling matchers.
func (p *TransactionPattern) Validate() error {
	if p.Narration == "" && p.Amount == nil && len(p.Fields) == 0 {
		return fmt.Errorf("%w: at least one of narration, amount condition or fields must be specified", common.ErrInvalidRule)
	}

	hasAccount := p.Account != ""
	hasSplits := len(p.Splits) > 0
	if !hasAccount && !hasSplits {
		return fmt.Errorf("%w: either account or splits must be specified", common.ErrInvalidRule)
	}
	if hasAccount && hasSplits {
		return fmt.Errorf("%w: cannot specify both account and splits", common.ErrInvalidRule)
	}

	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}

	if hasSplits {
		total := decimal.Zero
		for i := range p.Splits {
			if err := p.Splits[i].Validate(); err != nil {
				return err
			}
			total = total.Add(p.Splits[i].Percentage)
		}
		if total.GreaterThan(percentCeiling) {
			return fmt.Errorf("%w: split percentages sum to %s, must be <= 100", common.ErrInvalidRule, total)
		}
	}

	if len(p.SharedWith) > 0 {
		total := decimal.Zero
		for i := range p.SharedWith {
			if err := p.SharedWith[i].Validate(); err != nil {
				return err
			}
			total = total.Add(p.SharedWith[i].Percentage)
		}
		if total.GreaterThan(percentCeiling) {
			return fmt.Errorf("%w: shared percentages sum to %s, must be <= 100", common.ErrInvalidRule, total)
		}
	}

	return nil
}

// Compile validates the pattern and builds its matchers. It is idempotent:
// compilation is a pure function of the pattern's immutable configuration,
// so a concurrent first use merely duplicates work.
func (p *TransactionPattern) Compile() error {
	if p.compiled() {
		return nil
	}

	if err := p.Validate(); err != nil {
		return err
	}

	if p.Narration != "" && p.narrationRE == nil {
		re, err := compileMatcher(p.Narration, p.Regex, p.CaseInsensitive)
		if err != nil {
			return fmt.Errorf("%w: narration pattern %q: %v", common.ErrInvalidRule, p.Narration, err)
		}
		p.narrationRE = re
	}

	if len(p.Fields) > 0 && p.fieldMatchers == nil {
		matchers := make(map[string]*regexp.Regexp, len(p.Fields))
		for name, sub := range p.Fields {
			re, err := compileMatcher(sub, p.FieldsRegex, false)
			if err != nil {
				return fmt.Errorf("%w: field %q pattern %q: %v", common.ErrInvalidRule, name, sub, err)
			}
			matchers[name] = re
		}
		p.fieldMatchers = matchers
	}

	// Shared-expense offset accounts default at compile time so results
	// downstream never see an empty offset.
	for i := range p.SharedWith {
		if p.SharedWith[i].OffsetAccount == "" {
			p.SharedWith[i].OffsetAccount = DefaultOffsetAccount
		}
	}

	return nil
}

// compiled reports whether every configured matcher has been built.
func (p *TransactionPattern) compiled() bool {
	if p.Narration != "" && p.narrationRE == nil {
		return false
	}
	if len(p.Fields) > 0 && p.fieldMatchers == nil {
		return false
	}
	// Patterns with neither text predicate have nothing to compile, but
	// must still be validated once.
	return p.Narration != "" || len(p.Fields) > 0
}

// Matches reports whether a transaction matches this pattern. Predicates are
// evaluated in a fixed order, short-circuiting on the first failure:
// narration, then amount, then fields. Predicates that are not configured
// hold vacuously.
func (p *TransactionPattern) Matches(narration string, amount decimal.Decimal, fields map[string]string) bool {
	if err := p.Compile(); err != nil {
		return false
	}

	if p.Narration != "" && !p.narrationRE.MatchString(narration) {
		return false
	}

	if p.Amount != nil && !p.Amount.Matches(amount) {
		return false
	}

	if len(p.Fields) > 0 {
		if fields == nil {
			return false
		}
		for name, re := range p.fieldMatchers {
			// A missing field key matches like an empty value, which
			// fails any non-empty subpattern.
			if !re.MatchString(fields[name]) {
				return false
			}
		}
	}

	return true
}

// GetSplits normalizes the pattern's destination to a split list. Single
// account patterns become one split carrying 100%.
func (p *TransactionPattern) GetSplits() []AccountSplit {
	if len(p.Splits) > 0 {
		return p.Splits
	}
	return []AccountSplit{{Account: p.Account, Percentage: percentCeiling}}
}

// compileMatcher builds the regexp for a narration or field predicate. In
// substring mode the stored text is escaped so it matches literally anywhere
// in the subject; in regex mode it is used as-is. Matching is unanchored.
func compileMatcher(expr string, isRegex, caseInsensitive bool) (*regexp.Regexp, error) {
	if !isRegex {
		expr = regexp.QuoteMeta(expr)
	}
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

func validatePercentage(v decimal.Decimal) error {
	if v.LessThan(percentFloor) || v.GreaterThan(percentCeiling) {
		return fmt.Errorf("percentage %s must be between 0 and 100", v)
	}
	return nil
}
