// Package engine evaluates an ordered rule list against transactions and
// turns classification results into balanced double-entry postings.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/larsfjeld/beanpost/internal/common"
	"github.com/larsfjeld/beanpost/internal/rules"
)

var oneHundred = decimal.NewFromInt(100)

// Classification is the outcome of classifying one transaction: the actual
// destination splits after default-percentage scaling, plus any shared
// expenses carried over verbatim from the matched rule.
type Classification struct {
	Splits     []rules.AccountSplit
	SharedWith []rules.SharedExpense
}

// Classifier matches transactions against an ordered rule list. Rules are
// evaluated in order and the first match wins. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	defaultAccount         string
	defaultSplitPercentage *decimal.Decimal
	patterns               []rules.TransactionPattern
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithDefaultAccount routes unmatched transactions 100% to the given
// account instead of leaving them uncategorized.
func WithDefaultAccount(account string) Option {
	return func(c *Classifier) {
		c.defaultAccount = account
	}
}

// WithDefaultSplitPercentage routes the given percentage of every matched
// transaction to the default account, scaling the matched splits down to
// the remainder. This expresses classification confidence: at 50, each
// matched destination keeps half its share and the other half goes to the
// default account for review. Requires WithDefaultAccount.
func WithDefaultSplitPercentage(percentage decimal.Decimal) Option {
	return func(c *Classifier) {
		c.defaultSplitPercentage = &percentage
	}
}

// NewClassifier builds a classifier from an ordered rule list. Every
// pattern is validated and compiled eagerly, so configuration errors
// surface here, before any transaction is processed.
func NewClassifier(patterns []rules.TransactionPattern, opts ...Option) (*Classifier, error) {
	c := &Classifier{patterns: patterns}
	for _, opt := range opts {
		opt(c)
	}

	if c.defaultSplitPercentage != nil {
		if c.defaultAccount == "" {
			return nil, fmt.Errorf("%w: default split percentage requires a default account", common.ErrInvalidRule)
		}
		if c.defaultSplitPercentage.LessThan(decimal.Zero) || c.defaultSplitPercentage.GreaterThan(oneHundred) {
			return nil, fmt.Errorf("%w: default split percentage %s must be between 0 and 100",
				common.ErrInvalidRule, c.defaultSplitPercentage)
		}
	}

	for i := range c.patterns {
		if err := c.patterns[i].Compile(); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
	}

	return c, nil
}

// Classify finds the destination splits for a transaction. It returns nil
// when no rule matches and no default account is configured; the caller
// must treat that as "leave the transaction uncategorized", not an error.
func (c *Classifier) Classify(narration string, amount decimal.Decimal, fields map[string]string) *Classification {
	var matched *rules.TransactionPattern
	for i := range c.patterns {
		if c.patterns[i].Matches(narration, amount, fields) {
			matched = &c.patterns[i]
			break
		}
	}

	if matched == nil {
		if c.defaultAccount != "" {
			return &Classification{
				Splits: []rules.AccountSplit{{Account: c.defaultAccount, Percentage: oneHundred}},
			}
		}
		return nil
	}

	splits := matched.GetSplits()

	if c.defaultSplitPercentage != nil {
		// Scale the matched splits to the remainder and append the
		// default entry. The entry is present even at 0 or 100; only
		// configuring the percentage at all controls its existence.
		scale := oneHundred.Sub(*c.defaultSplitPercentage).Shift(-2)
		scaled := make([]rules.AccountSplit, 0, len(splits)+1)
		for _, s := range splits {
			scaled = append(scaled, rules.AccountSplit{
				Account:    s.Account,
				Percentage: s.Percentage.Mul(scale),
			})
		}
		scaled = append(scaled, rules.AccountSplit{
			Account:    c.defaultAccount,
			Percentage: *c.defaultSplitPercentage,
		})
		return &Classification{Splits: scaled, SharedWith: matched.SharedWith}
	}

	return &Classification{Splits: splits, SharedWith: matched.SharedWith}
}
