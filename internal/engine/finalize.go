package engine

import (
	"github.com/shopspring/decimal"

	"github.com/larsfjeld/beanpost/internal/model"
	"github.com/larsfjeld/beanpost/internal/rules"
)

// FieldsFunc supplies the named metadata fields a transaction's field
// predicates match against. Embedding importers override it to expose
// source-specific attributes; the default uses the transaction's own
// Fields map.
type FieldsFunc func(txn model.Transaction) map[string]string

// FinalizerConfig configures a Finalizer. Optional values have explicit
// zero defaults: an empty DefaultAccount means unmatched transactions pass
// through unchanged, a nil DefaultSplitPercentage disables review splits,
// and a nil Fields falls back to the transaction's Fields map.
type FinalizerConfig struct {
	Fields                 FieldsFunc
	DefaultSplitPercentage *decimal.Decimal
	DefaultAccount         string
	Patterns               []rules.TransactionPattern
}

// Finalizer is the per-transaction integration point between an import
// pipeline and the classification engine. The importer calls Finalize once
// for each extracted transaction.
type Finalizer struct {
	classifier *Classifier
	fields     FieldsFunc
}

// NewFinalizer builds a finalizer, validating the rule configuration
// eagerly. When no rules and no default account are configured, the
// finalizer takes a fast path and never constructs a classifier.
func NewFinalizer(cfg FinalizerConfig) (*Finalizer, error) {
	f := &Finalizer{fields: cfg.Fields}
	if f.fields == nil {
		f.fields = func(txn model.Transaction) map[string]string { return txn.Fields }
	}

	if len(cfg.Patterns) == 0 && cfg.DefaultAccount == "" {
		return f, nil
	}

	var opts []Option
	if cfg.DefaultAccount != "" {
		opts = append(opts, WithDefaultAccount(cfg.DefaultAccount))
	}
	if cfg.DefaultSplitPercentage != nil {
		opts = append(opts, WithDefaultSplitPercentage(*cfg.DefaultSplitPercentage))
	}

	classifier, err := NewClassifier(cfg.Patterns, opts...)
	if err != nil {
		return nil, err
	}
	f.classifier = classifier

	return f, nil
}

// Finalize classifies a transaction and appends its balancing postings.
// Transactions that match no rule (with no default configured) are returned
// unchanged; that is a normal outcome, not an error. A nil return signals
// the caller to drop the transaction entirely.
func (f *Finalizer) Finalize(txn model.Transaction) *model.Transaction {
	primary := txn.PrimaryPosting()
	if primary == nil || f.classifier == nil {
		return &txn
	}

	result := f.classifier.Classify(txn.Narration, primary.Amount, f.fields(txn))
	if result == nil {
		return &txn
	}

	finalized := AddBalancingPostings(txn, result)
	return &finalized
}
